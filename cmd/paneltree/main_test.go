package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "paneltree version")
}

func TestStack(t *testing.T) {
	out, err := execute(t, "stack", "string", "--store", "memory")
	require.NoError(t, err)
	assert.Contains(t, out, "* String")
	assert.Contains(t, out, "Expression")

	out, err = execute(t, "stack", "string", "--store", "memory", "--handler", "Expression")
	require.NoError(t, err)
	assert.Contains(t, out, "* Expression")

	_, err = execute(t, "stack", "strin", "--store", "memory")
	assert.Error(t, err)
}

func TestDocumentLifecycle(t *testing.T) {
	dir := t.TempDir()
	data := filepath.Join(dir, "data.yaml")
	require.NoError(t, os.WriteFile(data, []byte("run:\n  name: baseline\n  loss: 0.25\n"), 0o644))
	store := []string{"--store", "file", "--data-dir", filepath.Join(dir, "docs")}

	out, err := execute(t, append([]string{"new", "report", "run", "--data", data}, store...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "created report (version 0)")

	out, err = execute(t, append([]string{"list"}, store...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "report")

	out, err = execute(t, append([]string{"inspect", "report", "--path", "main"}, store...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "**main** `Object`")
	assert.Contains(t, out, "<root>.main.loss")

	out, err = execute(t, append([]string{"graph", "report"}, store...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "graph TD")
	assert.Contains(t, out, "root_main")

	out, err = execute(t, append([]string{"configure", "report", "--path", "main.loss"}, store...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "is now at version 1")

	out, err = execute(t, append([]string{"remove-child", "report", "--path", "main.name"}, store...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "report <root>.main is now at version 2")

	_, err = execute(t, append([]string{"remove-child", "report", "--path", "main.name"}, store...)...)
	assert.Error(t, err)
	_, err = execute(t, append([]string{"remove-child", "report", "--path", "<root>"}, store...)...)
	assert.Error(t, err)

	out, err = execute(t, append([]string{"set-input", "report", "run.name", "--path", "main"}, store...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "is now at version 3")
	assert.Contains(t, out, "rule: reinitialized")

	_, err = execute(t, append([]string{"set-input", "report", "missing", "--path", "main"}, store...)...)
	assert.Error(t, err)

	_, err = execute(t, append([]string{"delete", "report"}, store...)...)
	require.NoError(t, err)
	_, err = execute(t, append([]string{"inspect", "report"}, store...)...)
	assert.Error(t, err)
}
