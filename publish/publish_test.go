package publish

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestResilienceConfig_Defaults(t *testing.T) {
	cfg := ResilienceConfig{}.withDefaults()

	assert.Equal(t, uint(3), cfg.MaxAttempts)
	assert.Equal(t, time.Second, cfg.BaseInterval)
	assert.Equal(t, 0.5, cfg.FailureRatio)
	assert.Equal(t, 30*time.Second, cfg.SamplingWindow)
	assert.Equal(t, 30*time.Second, cfg.BreakDuration)
	assert.Equal(t, uint32(10), cfg.MinThroughput)
}

func TestResilienceConfig_ExplicitValuesSurvive(t *testing.T) {
	cfg := ResilienceConfig{MaxAttempts: 5, BaseInterval: 2 * time.Second}.withDefaults()

	assert.Equal(t, uint(5), cfg.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.BaseInterval)
}
