package embedded

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polystore/internal/core/backend"
)

func TestEmbeddedBackend_RoundTrip(t *testing.T) {
	b, err := New()
	require.NoError(t, err)
	defer b.Close()
	ctx := context.Background()

	require.NoError(t, b.Set(ctx, "ui.theme", []byte("dark"), 0))

	value, found, err := b.Get(ctx, "ui.theme")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("dark"), value)

	assert.NotEmpty(t, b.Addr())
}

func TestEmbeddedBackend_LocalOnlyCapability(t *testing.T) {
	b, err := New()
	require.NoError(t, err)
	defer b.Close()

	assert.Equal(t, []backend.Capability{backend.CapLocalOnly}, b.Capabilities())
}
