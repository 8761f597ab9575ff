package gulconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, dir, contents string) string {
	t.Helper()
	path := filepath.Join(dir, "gul.toml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func Test_Load_fillsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, `entry = "main.gul"`)

	m, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "main.gul", m.Entry)
	assert.Equal(t, "main.ll", m.Output)
	assert.Equal(t, TargetObject, m.CodegenTarget)
	assert.True(t, m.Cache.Enabled)
	assert.Equal(t, ".gulcache.db", m.Cache.Path)
}

func Test_Load_honorsExplicitFields(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, `
entry = "src/app.gul"
output = "build/app.ll"

[cache]
enabled = false
path = "build/cache.db"
`)

	m, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "build/app.ll", m.Output)
	assert.False(t, m.Cache.Enabled)
	assert.Equal(t, "build/cache.db", m.Cache.Path)
}

func Test_Load_missingEntry(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, `output = "app.ll"`)

	_, err := Load(path)

	assert.ErrorIs(t, err, ErrNoEntry)
}

func Test_Load_missingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))

	assert.True(t, os.IsNotExist(err))
}

func Test_deriveOutputPath(t *testing.T) {
	assert.Equal(t, "main.ll", deriveOutputPath("main.gul"))
	assert.Equal(t, "src/app.ll", deriveOutputPath("src/app.gul"))
	assert.Equal(t, "noext.ll", deriveOutputPath("noext"))
}
