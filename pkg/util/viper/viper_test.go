package viper

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type section struct {
	Name  string `mapstructure:"name"`
	Level int    `mapstructure:"level"`
}

type root struct {
	Demo section `mapstructure:"demo"`
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "config.yaml", "demo:\n  name: hook\n  level: 3\n")

	cfg := New()
	require.NoError(t, cfg.LoadFile(path))
	assert.True(t, cfg.IsSet("demo.name"))
	assert.False(t, cfg.IsSet("missing"))

	var s section
	require.NoError(t, cfg.UnmarshalKey("demo", &s))
	assert.Equal(t, section{Name: "hook", Level: 3}, s)
}

func TestLoadJSON(t *testing.T) {
	path := writeFile(t, "config.json", `{"name":"hook","level":7}`)

	cfg := New()
	require.NoError(t, cfg.LoadFile(path))

	var s section
	require.NoError(t, cfg.Unmarshal(&s))
	assert.Equal(t, 7, s.Level)
}

func TestLoadMissingFile(t *testing.T) {
	cfg := New()
	assert.Error(t, cfg.LoadFile(filepath.Join(t.TempDir(), "absent.yaml")))
}

func TestEnvOverride(t *testing.T) {
	path := writeFile(t, "config.yaml", "demo:\n  name: hook\n  level: 3\n")
	t.Setenv("TESTHOOK_DEMO_LEVEL", "9")

	cfg := New()
	cfg.SetEnvPrefix("TESTHOOK")
	require.NoError(t, cfg.LoadFile(path))

	var r root
	require.NoError(t, cfg.Unmarshal(&r))
	assert.Equal(t, "hook", r.Demo.Name)
	assert.Equal(t, 9, r.Demo.Level)
}

func TestDefaults(t *testing.T) {
	var cfg Config
	cfg.SetDefault("demo.level", 5)

	var r root
	require.NoError(t, cfg.Unmarshal(&r))
	assert.Equal(t, 5, r.Demo.Level)
	assert.True(t, cfg.IsSet("demo.level"))
}
