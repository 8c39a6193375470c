package worker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextDelay(t *testing.T) {
	policy := DefaultRetryPolicy()

	t.Run("ExponentialGrowth", func(t *testing.T) {
		assert.Equal(t, 2*time.Second, policy.NextDelay(1))
		assert.Equal(t, 4*time.Second, policy.NextDelay(2))
		assert.Equal(t, 8*time.Second, policy.NextDelay(3))
		assert.Equal(t, 16*time.Second, policy.NextDelay(4))
	})

	t.Run("ClampedToMaxDelay", func(t *testing.T) {
		assert.Equal(t, time.Minute, policy.NextDelay(10))
		assert.Equal(t, time.Minute, policy.NextDelay(100))
	})

	t.Run("AttemptBelowOne", func(t *testing.T) {
		assert.Equal(t, policy.NextDelay(1), policy.NextDelay(0))
		assert.Equal(t, policy.NextDelay(1), policy.NextDelay(-5))
	})

	t.Run("ZeroPolicyGetsSaneDefaults", func(t *testing.T) {
		var zero RetryPolicy
		assert.Equal(t, time.Second, zero.NextDelay(1))
		assert.Equal(t, 2*time.Second, zero.NextDelay(2))
	})
}
