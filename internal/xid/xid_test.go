package xid

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPrefixesUUID(t *testing.T) {
	id := New("tx")
	require.True(t, strings.HasPrefix(id, "tx-"))

	_, err := uuid.Parse(strings.TrimPrefix(id, "tx-"))
	assert.NoError(t, err)
}

func TestNewIsUnique(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		id := New("P")
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
}
