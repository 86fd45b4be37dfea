package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, stdin string, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	root := rootCmd()
	root.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "none.env")}, args...))
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	require.NoError(t, root.Execute(), out.String())
	return out.String()
}

func TestCLIFileBackend(t *testing.T) {
	t.Setenv("KURO_DATA_DIR", t.TempDir())
	t.Setenv("KURO_WEB_ENABLED", "false")
	t.Setenv("KURO_LOG_LEVEL", "error")

	out := run(t, "", "teach", "capital da frança", "Paris")
	assert.Contains(t, out, "Learned: 'capital da frança' → 'Paris'")

	out = run(t, "", "ask", "o", "que", "é", "capital", "da", "frança?")
	assert.Contains(t, out, "kuro> Paris")

	out = run(t, "", "ask", "quem é Ada Lovelace")
	assert.Contains(t, out, "I don't know that yet")

	out = run(t, "", "stats")
	assert.Contains(t, out, "storage:   file")
	assert.Contains(t, out, "1 canonical")
	assert.Contains(t, out, "classifier: not trained")

	out = run(t, "", "train")
	assert.Contains(t, out, "could not be trained")

	out = run(t, "", "forget", "capital da frança")
	assert.Contains(t, out, `forgot "capital da frança"`)
	out = run(t, "", "forget", "capital da frança")
	assert.Contains(t, out, "nothing stored")
}

func TestCLIChatSQLite(t *testing.T) {
	t.Setenv("KURO_DATA_DIR", t.TempDir())
	t.Setenv("KURO_STORAGE_DRIVER", "sqlite")
	t.Setenv("KURO_WEB_ENABLED", "false")
	t.Setenv("KURO_LOG_LEVEL", "error")

	out := run(t, "aprenda isso: bom dia -> Bom dia!\nbom dia\nsair\nnão chega aqui\n", "chat")
	assert.Contains(t, out, "Learned: 'bom dia' → 'Bom dia!'")
	assert.Contains(t, out, "kuro> Bom dia!")
	assert.NotContains(t, out, "não chega aqui")

	out = run(t, "", "stats")
	assert.Contains(t, out, "storage:   sqlite")
}

func TestVersion(t *testing.T) {
	assert.Contains(t, run(t, "", "version"), "kuro dev")
}
