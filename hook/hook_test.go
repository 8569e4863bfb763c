package hook

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hook.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755))
	return path
}

func TestRunExitStatus(t *testing.T) {
	accept := writeScript(t, "exit 0")
	rc, err := Run(accept, MethodBegin, "dns-01", "example.com", "token", "keyauth")
	require.NoError(t, err)
	assert.Equal(t, 0, rc)

	decline := writeScript(t, "exit 3")
	rc, err = Run(decline, MethodBegin, "dns-01", "example.com", "token", "keyauth")
	require.NoError(t, err)
	assert.Equal(t, 3, rc)
}

func TestRunPassesArguments(t *testing.T) {
	out := filepath.Join(t.TempDir(), "args.txt")
	t.Setenv("HOOK_OUT", out)
	script := writeScript(t, `echo "$1 $2 $3 $4 $5" > "$HOOK_OUT"`)

	rc, err := Run(script, MethodDone, "http-01", "example.com", "tok", "tok.thumb")
	require.NoError(t, err)
	require.Equal(t, 0, rc)

	recorded, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "done http-01 example.com tok tok.thumb\n", string(recorded))
}

func TestRunSpawnFailure(t *testing.T) {
	rc, err := Run(filepath.Join(t.TempDir(), "missing"), MethodBegin, "dns-01", "a", "b", "c")
	assert.Error(t, err)
	assert.Equal(t, -1, rc)
}

func TestUsable(t *testing.T) {
	script := writeScript(t, "exit 0")
	assert.NoError(t, Usable(script))

	plain := filepath.Join(t.TempDir(), "plain.txt")
	require.NoError(t, os.WriteFile(plain, []byte("data"), 0644))
	assert.Error(t, Usable(plain))

	assert.Error(t, Usable(filepath.Join(t.TempDir(), "missing")))
}
