package xconf

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testYAML = `
log:
  level: debug
queues:
  - name: orders
    source: /data/orders.txt
`

const testJSON = `{
  "log": {"level": "debug"},
  "queues": [{"name": "orders", "source": "/data/orders.txt"}]
}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestNew(t *testing.T) {
	tests := []struct {
		file    string
		content string
		format  Format
	}{
		{"queues.yaml", testYAML, FormatYAML},
		{"queues.YML", testYAML, FormatYAML},
		{"queues.json", testJSON, FormatJSON},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			path := writeFile(t, tt.file, tt.content)
			cfg, err := New(path)
			require.NoError(t, err)
			assert.Equal(t, tt.format, cfg.Format())
			assert.Equal(t, path, cfg.Path())
			assert.Equal(t, "debug", cfg.Client().String("log.level"))
		})
	}
}

func TestNew_Errors(t *testing.T) {
	_, err := New("")
	assert.ErrorIs(t, err, ErrEmptyPath)

	_, err = New(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, ErrLoadFailed)

	_, err = New(writeFile(t, "queues.toml", "a = 1"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = New(writeFile(t, "bad.yaml", "queues: [unterminated"))
	assert.ErrorIs(t, err, ErrParseFailed)

	_, err = New(writeFile(t, "bad.json", "{"))
	assert.ErrorIs(t, err, ErrParseFailed)
}

func TestNew_EmptyFile(t *testing.T) {
	cfg, err := New(writeFile(t, "empty.yaml", ""))
	require.NoError(t, err)
	assert.Empty(t, cfg.Client().Keys())
}

func TestNewFromBytes(t *testing.T) {
	cfg, err := NewFromBytes([]byte(testJSON), FormatJSON)
	require.NoError(t, err)
	assert.Empty(t, cfg.Path())
	assert.Equal(t, "orders", cfg.Client().String("queues.0.name"))

	_, err = NewFromBytes([]byte(testYAML), Format("toml"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	empty, err := NewFromBytes(nil, FormatYAML)
	require.NoError(t, err)
	assert.ErrorIs(t, empty.Reload(), ErrNotReloadable)
}

func TestUnmarshal(t *testing.T) {
	cfg, err := NewFromBytes([]byte(testYAML), FormatYAML)
	require.NoError(t, err)

	var log LogSettings
	require.NoError(t, cfg.Unmarshal("log", &log))
	assert.Equal(t, "debug", log.Level)

	var wrong struct {
		Log int `koanf:"log"`
	}
	assert.ErrorIs(t, cfg.Unmarshal("", &wrong), ErrUnmarshalFailed)

	assert.Panics(t, func() { MustUnmarshal(cfg, "", &wrong) })
	assert.NotPanics(t, func() { MustUnmarshal(cfg, "log", &log) })
}

func TestReload(t *testing.T) {
	path := writeFile(t, "queues.yaml", testYAML)
	cfg, err := New(path)
	require.NoError(t, err)
	before := cfg.Client()

	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: warn\n"), 0o600))
	require.NoError(t, cfg.Reload())
	assert.Equal(t, "warn", cfg.Client().String("log.level"))
	assert.Equal(t, "debug", before.String("log.level"), "old snapshot stays readable")

	require.NoError(t, os.WriteFile(path, []byte("log: [broken"), 0o600))
	assert.ErrorIs(t, cfg.Reload(), ErrParseFailed)
	assert.Equal(t, "warn", cfg.Client().String("log.level"), "failed reload keeps previous config")

	require.NoError(t, os.Remove(path))
	assert.ErrorIs(t, cfg.Reload(), ErrLoadFailed)
}

func TestReload_Concurrent(t *testing.T) {
	path := writeFile(t, "queues.yaml", testYAML)
	cfg, err := New(path)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.NoError(t, cfg.Reload())
		}()
		go func() {
			defer wg.Done()
			assert.Equal(t, "debug", cfg.Client().String("log.level"))
		}()
	}
	wg.Wait()
}
