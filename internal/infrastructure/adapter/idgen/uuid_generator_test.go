package idgen

import (
	"regexp"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUUIDGenerator(t *testing.T) {
	gen := NewUUIDGenerator()

	t.Run("Transaction IDs are UUIDs", func(t *testing.T) {
		_, err := uuid.Parse(gen.NewTransactionID())
		require.NoError(t, err)
		assert.NotEqual(t, gen.NewTransactionID(), gen.NewTransactionID())
	})

	t.Run("Link tokens are 32 hex characters", func(t *testing.T) {
		token := gen.NewLinkToken()
		assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{32}$`), token)

		parsed, err := uuid.Parse(token)
		require.NoError(t, err)
		assert.Equal(t, uuid.Version(4), parsed.Version())
	})
}
