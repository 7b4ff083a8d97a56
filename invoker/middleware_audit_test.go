package invoker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/arc-self/messaging-core/endpoint"
)

func TestAuditLogging_PassesThroughResultAndError(t *testing.T) {
	logger := zap.NewNop()

	terminal := func(ctx context.Context, request any, binding map[string]string) (any, error) {
		return "ok", nil
	}
	h := Build(terminal, AuditLogging(logger))

	resp, err := h(context.Background(), nil, nil)
	assert.NoError(t, err)
	assert.Equal(t, "ok", resp)
}

func TestAuditLogging_RethrowsHandlerError(t *testing.T) {
	logger := zap.NewNop()
	boom := assert.AnError

	terminal := func(ctx context.Context, request any, binding map[string]string) (any, error) {
		return nil, boom
	}
	h := Build(terminal, AuditLogging(logger))

	_, err := h(context.Background(), nil, nil)
	assert.ErrorIs(t, err, boom)
}

func TestRecover_ConvertsPanicToError(t *testing.T) {
	logger := zap.NewNop()

	terminal := endpoint.HandlerFunc(func(ctx context.Context, request any, binding map[string]string) (any, error) {
		panic("boom")
	})
	h := Build(terminal, Recover(logger))

	_, err := h(context.Background(), nil, nil)
	assert.Error(t, err)
}

func TestBuild_AppliesMiddlewareOutermostFirst(t *testing.T) {
	var order []string

	mk := func(name string) Middleware {
		return func(next endpoint.HandlerFunc) endpoint.HandlerFunc {
			return func(ctx context.Context, request any, binding map[string]string) (any, error) {
				order = append(order, name+":before")
				resp, err := next(ctx, request, binding)
				order = append(order, name+":after")
				return resp, err
			}
		}
	}

	terminal := func(ctx context.Context, request any, binding map[string]string) (any, error) {
		order = append(order, "terminal")
		return nil, nil
	}

	h := Build(terminal, mk("outer"), mk("inner"))
	_, _ = h(context.Background(), nil, nil)

	assert.Equal(t, []string{"outer:before", "inner:before", "terminal", "inner:after", "outer:after"}, order)
}
