package cli

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/paneltree/pkg/adapters/file"
	"github.com/aretw0/paneltree/pkg/adapters/memory"
	"github.com/aretw0/paneltree/pkg/domain"
	"github.com/aretw0/paneltree/pkg/expr"
	"github.com/aretw0/paneltree/pkg/observability"
)

func TestParseData(t *testing.T) {
	data, err := ParseData([]byte("run:\n  name: baseline\n  loss: 0.25\ntags: [a, b]\n"))
	require.NoError(t, err)
	frame := BindData(data)
	assert.Equal(t, []string{"run", "tags"}, frame.Names())

	run, ok := frame.Get("run")
	require.True(t, ok)
	assert.Equal(t, "{loss: number, name: string}", run.Type().String())

	tags, _ := frame.Get("tags")
	assert.Equal(t, "[string]", tags.Type().String())
}

func TestParseData_JSON(t *testing.T) {
	data, err := ParseData([]byte(`{"n": 3}`))
	require.NoError(t, err)
	n, _ := BindData(data).Get("n")
	assert.Equal(t, "number", n.Type().String())
}

func TestParseData_NestedYAMLMaps(t *testing.T) {
	data, err := ParseData([]byte("grid:\n  1: one\n  2: two\n"))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"1": "one", "2": "two"}, data["grid"])
}

func TestParseData_RejectsBadKeys(t *testing.T) {
	_, err := ParseData([]byte(`{"input": 1}`))
	assert.True(t, errors.Is(err, domain.ErrInvalidVarName))

	_, err = ParseData([]byte(`{"not-ident": 1}`))
	assert.True(t, errors.Is(err, domain.ErrInvalidVarName))
}

func TestLoadData(t *testing.T) {
	data, err := LoadData("")
	require.NoError(t, err)
	assert.Empty(t, data)

	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"x": "y"}`), 0o644))
	data, err = LoadData(path)
	require.NoError(t, err)
	assert.True(t, BindData(data).Has("x"))

	_, err = LoadData(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestOptions_DocumentStore(t *testing.T) {
	codec := expr.Codec{}

	store, locker, err := Options{}.DocumentStore(codec)
	require.NoError(t, err)
	assert.IsType(t, &memory.Store{}, store)
	assert.Nil(t, locker)

	store, _, err = Options{Store: StoreFile, DataDir: t.TempDir(), FileFormat: "yaml"}.DocumentStore(codec)
	require.NoError(t, err)
	assert.IsType(t, &file.Store{}, store)

	_, _, err = Options{Store: "sqlite"}.DocumentStore(codec)
	assert.Error(t, err)
}

func TestOptions_Engine(t *testing.T) {
	opts := Options{LogLevel: "debug", AllowList: []string{"Expression", "String"}, PinTo: "Expression"}
	logger, err := opts.Logger()
	require.NoError(t, err)

	engine, err := opts.Engine(logger, observability.NewMetrics("test"))
	require.NoError(t, err)

	res := engine.ResolveStack(context.Background(), expr.MustParse("1").Type(), "", nil)
	assert.Equal(t, []string{"Expression"}, res.IDs())

	_, err = Options{LogLevel: "loud"}.Logger()
	assert.Error(t, err)
}

func TestOptions_Manager(t *testing.T) {
	mgr, err := Options{}.Manager(expr.Codec{}, nil)
	require.NoError(t, err)

	doc, err := mgr.LoadOrCreate(context.Background(), "d", domain.DefaultNode())
	require.NoError(t, err)
	assert.Equal(t, "d", doc.ID)
}
