package invoker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arc-self/messaging-core/endpoint"
	"github.com/arc-self/messaging-core/natsclient"
)

type employeeUpdated struct {
	Name string `json:"name"`
}

type mapHeaders map[string]string

func (m mapHeaders) Get(key string) string { return m[key] }
func (m mapHeaders) Set(key, value string) { m[key] = value }

func TestInvoke_DecodesRequestAndBindsSubject(t *testing.T) {
	var gotReq any
	var gotBinding map[string]string

	d := endpoint.Descriptor{
		ControllerName: "employee",
		MethodName:     "update",
		Version:        "1",
		SubjectPattern: "[controller].v{version}.{id}.update",
		RequestDecoder: endpoint.DecodeAs[employeeUpdated](),
		Handler: func(ctx context.Context, request any, binding map[string]string) (any, error) {
			gotReq = request
			gotBinding = binding
			return "ok", nil
		},
	}

	dispatch := NewDispatch(d, natsclient.JSONCodec{})
	resp, err := dispatch.Invoke(context.Background(), "employee.v1.42.update", mapHeaders{}, []byte(`{"name":"Ada"}`))

	require.NoError(t, err)
	assert.Equal(t, "ok", resp)
	assert.Equal(t, employeeUpdated{Name: "Ada"}, gotReq)
	assert.Equal(t, "42", gotBinding["id"])
}

func TestInvoke_EmptyPayloadYieldsNilRequest(t *testing.T) {
	var gotReq any
	seen := false

	d := endpoint.Descriptor{
		ControllerName: "employee",
		MethodName:     "delete",
		Version:        "1",
		SubjectPattern: "[controller].v{version}.{id}.delete",
		RequestDecoder: endpoint.DecodeAs[employeeUpdated](),
		Handler: func(ctx context.Context, request any, binding map[string]string) (any, error) {
			gotReq = request
			seen = true
			return nil, nil
		},
	}

	dispatch := NewDispatch(d, natsclient.JSONCodec{})
	_, err := dispatch.Invoke(context.Background(), "employee.v1.7.delete", mapHeaders{}, nil)

	require.NoError(t, err)
	require.True(t, seen)
	assert.Nil(t, gotReq)
}

func TestInvoke_NoRequestDecoderSkipsDecoding(t *testing.T) {
	d := endpoint.Descriptor{
		ControllerName: "employee",
		MethodName:     "ping",
		Version:        "1",
		SubjectPattern: "[controller].v{version}.ping",
		Handler: func(ctx context.Context, request any, binding map[string]string) (any, error) {
			assert.Nil(t, request)
			return nil, nil
		},
	}

	dispatch := NewDispatch(d, natsclient.JSONCodec{})
	_, err := dispatch.Invoke(context.Background(), "employee.v1.ping", mapHeaders{}, []byte("irrelevant"))
	require.NoError(t, err)
}

func TestInvoke_SegmentMismatchYieldsEmptyBinding(t *testing.T) {
	var gotBinding map[string]string

	d := endpoint.Descriptor{
		ControllerName: "employee",
		MethodName:     "get",
		Version:        "1",
		SubjectPattern: "[controller].v{version}.{id}.get",
		Handler: func(ctx context.Context, request any, binding map[string]string) (any, error) {
			gotBinding = binding
			return nil, nil
		},
	}

	dispatch := NewDispatch(d, natsclient.JSONCodec{})
	_, err := dispatch.Invoke(context.Background(), "employee.v1.get", mapHeaders{}, nil)

	require.NoError(t, err)
	assert.Empty(t, gotBinding)
}

func TestInvoke_HandlerErrorPropagates(t *testing.T) {
	boom := assert.AnError
	d := endpoint.Descriptor{
		ControllerName: "employee",
		MethodName:     "fail",
		Version:        "1",
		SubjectPattern: "[controller].v{version}.fail",
		Handler: func(ctx context.Context, request any, binding map[string]string) (any, error) {
			return nil, boom
		},
	}

	dispatch := NewDispatch(d, natsclient.JSONCodec{})
	_, err := dispatch.Invoke(context.Background(), "employee.v1.fail", mapHeaders{}, nil)
	assert.ErrorIs(t, err, boom)
}
