package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPublicURL(t *testing.T) {
	require.Equal(t, "https://storage.googleapis.com/flaelle-media/products/1700000000000_robe.png",
		PublicURL("flaelle-media", "products/1700000000000_robe.png"))
}

func TestNewGCSRequiresBucket(t *testing.T) {
	_, err := NewGCS(context.Background(), "  ", "")
	require.Error(t, err)
}
