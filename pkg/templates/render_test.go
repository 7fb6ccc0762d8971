package templates

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func noLimit() *RenderOptions {
	opts := DefaultRenderOptions()
	opts.DisableRateLimiting = true
	return opts
}

func TestRenderString(t *testing.T) {
	r := NewRenderer(zap.NewNop())
	out, err := r.RenderString(context.Background(), "t", `listen = "0.0.0.0:{{ .Port }}"`, map[string]int{"Port": 3893}, noLimit())
	require.NoError(t, err)
	assert.Equal(t, `listen = "0.0.0.0:3893"`, out)
}

func TestRenderString_MissingKeyIsError(t *testing.T) {
	r := NewRenderer(zap.NewNop())
	_, err := r.RenderString(context.Background(), "t", `{{ .Nope }}`, map[string]int{}, noLimit())
	assert.Error(t, err)
}

func TestRenderString_ParseError(t *testing.T) {
	r := NewRenderer(zap.NewNop())
	_, err := r.RenderString(context.Background(), "t", `{{ .Port `, nil, noLimit())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse template t")
}

func TestRenderString_SizeLimit(t *testing.T) {
	r := NewRenderer(zap.NewNop())
	opts := noLimit()
	opts.MaxSize = 4
	_, err := r.RenderString(context.Background(), "t", "too long", nil, opts)
	assert.Error(t, err)
}

func TestRenderFS(t *testing.T) {
	fsys := fstest.MapFS{"templates/a.tmpl": {Data: []byte("hello {{ .Name }}")}}
	r := NewRenderer(zap.NewNop())

	out, err := r.RenderFS(context.Background(), fsys, "templates/a.tmpl", map[string]string{"Name": "glauth"}, noLimit())
	require.NoError(t, err)
	assert.Equal(t, "hello glauth", out)

	_, err = r.RenderFS(context.Background(), fsys, "templates/missing.tmpl", nil, noLimit())
	assert.Error(t, err)
}

func TestRenderFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.tmpl")
	require.NoError(t, os.WriteFile(path, []byte("{{ .A }}-{{ .B }}"), 0o600))

	out, err := NewRenderer(nil).RenderFile(context.Background(), path, map[string]int{"A": 1, "B": 2}, noLimit())
	require.NoError(t, err)
	assert.Equal(t, "1-2", out)
}
