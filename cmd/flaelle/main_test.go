package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	_ "github.com/flaelle/flaelle/testing"
)

func TestHashPasswordCommand(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetIn(strings.NewReader("correct horse\n"))
	root.SetArgs([]string{"hash-password"})

	require.NoError(t, root.Execute())
	hash := strings.TrimSpace(out.String())
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("correct horse")))
}

func TestHashPasswordRejectsEmptyInput(t *testing.T) {
	_, err := hashFromReader(strings.NewReader("\n"))
	require.Error(t, err)
}

func TestRootRegistersCommands(t *testing.T) {
	root := newRootCmd()
	for _, path := range [][]string{{"serve"}, {"migrate"}, {"hash-password"}, {"jobs", "trigger"}, {"jobs", "stats"}} {
		cmd, _, err := root.Find(path)
		require.NoError(t, err)
		require.Equal(t, path[len(path)-1], strings.Fields(cmd.Use)[0])
	}
}
