package endpoint

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arc-self/messaging-core/subject"
)

func noopHandler(ctx context.Context, req any, binding map[string]string) (any, error) {
	return nil, nil
}

func newTestCatalog() *Catalog {
	return NewCatalog("default", subject.ControllerName)
}

func TestClassify_ResponsePresentIsRequestReply(t *testing.T) {
	c := newTestCatalog()
	d, err := c.Register(Options{
		Controller: "EmployeeEventController", Method: "GetEmployee",
		SubjectPattern: "[controller].v{version}.{id}.get",
		HasResponse:    true,
		Handler:        noopHandler,
	})
	require.NoError(t, err)
	assert.Equal(t, ModeRequestReply, d.Mode)
}

func TestClassify_CoreDeliveryIsCorePubSub(t *testing.T) {
	c := newTestCatalog()
	d, err := c.Register(Options{
		Controller: "EmployeeEventController", Method: "OnCreated",
		SubjectPattern: "[controller].v{version}.created",
		DeliveryMode:   DeliveryCore,
		Handler:        noopHandler,
	})
	require.NoError(t, err)
	assert.Equal(t, ModeCorePubSub, d.Mode)
}

func TestClassify_DefaultsToJetStreamConsume(t *testing.T) {
	c := newTestCatalog()
	d, err := c.Register(Options{
		Controller: "EmployeeEventController", Method: "OnUpdated",
		SubjectPattern: "[controller].v{version}.updated",
		Handler:        noopHandler,
	})
	require.NoError(t, err)
	assert.Equal(t, ModeJSConsume, d.Mode)
}

func TestClassify_FetchConsumerModeIsJetStreamFetch(t *testing.T) {
	c := newTestCatalog()
	d, err := c.Register(Options{
		Controller: "EmployeeEventController", Method: "OnBatch",
		SubjectPattern: "[controller].v{version}.batch",
		ConsumerMode:   ConsumerModeFetch,
		Handler:        noopHandler,
	})
	require.NoError(t, err)
	assert.Equal(t, ModeJSFetch, d.Mode)
}

func TestRegister_DefaultStreamAndConsumerNames(t *testing.T) {
	c := newTestCatalog()
	d, err := c.Register(Options{
		Controller: "EmployeeEventController", Method: "OnUpdated",
		SubjectPattern: "[controller].v{version}.updated",
		Handler:        noopHandler,
	})
	require.NoError(t, err)
	assert.Equal(t, "employee_v1_stream", d.StreamName)
	assert.Equal(t, "employee_onupdated_consumer", d.ConsumerName)
}

func TestRegister_MissingHandlerIsError(t *testing.T) {
	c := newTestCatalog()
	_, err := c.Register(Options{
		Controller: "EmployeeEventController", Method: "OnUpdated",
		SubjectPattern: "[controller].v{version}.updated",
	})
	assert.Error(t, err)
}

func TestCatalog_PartitionsByMode(t *testing.T) {
	c := newTestCatalog()
	_, _ = c.Register(Options{Controller: "X", Method: "A", SubjectPattern: "x.a", HasResponse: true, Handler: noopHandler})
	_, _ = c.Register(Options{Controller: "X", Method: "B", SubjectPattern: "x.b", DeliveryMode: DeliveryCore, Handler: noopHandler})

	assert.Len(t, c.ByMode(ModeRequestReply), 1)
	assert.Len(t, c.ByMode(ModeCorePubSub), 1)
	assert.Len(t, c.All(), 2)
}
