package app

import (
	"testing"

	"github.com/stretchr/testify/require"

	_ "github.com/flaelle/flaelle/internal/testing/guard"
)

func TestGuardEnablesTestMode(t *testing.T) {
	RefreshTestMode()
	require.True(t, InTestMode())

	t.Setenv(testModeEnv, "0")
	RefreshTestMode()
	require.False(t, InTestMode())
	t.Cleanup(RefreshTestMode)
}
