package time

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRealTimeProviderSleep(t *testing.T) {
	p := NewRealTimeProvider()

	t.Run("Completes", func(t *testing.T) {
		assert.NoError(t, p.Sleep(context.Background(), time.Millisecond))
	})

	t.Run("Cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := p.Sleep(ctx, time.Hour)

		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("Now is UTC", func(t *testing.T) {
		assert.Equal(t, time.UTC, p.Now().Location())
	})
}
