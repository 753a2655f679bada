package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesToFile(t *testing.T) {
	dir := t.TempDir()

	log, err := New(&Config{LogDir: dir, Level: LevelDebug, Console: false})
	require.NoError(t, err)
	defer log.Close()

	comp := log.Component("test")
	comp.Info().Str("key", "value").Msg("hello")

	data, err := os.ReadFile(log.GetLogPath())
	require.NoError(t, err)

	content := string(data)
	assert.Contains(t, content, `"component":"test"`)
	assert.Contains(t, content, `"key":"value"`)
	assert.Contains(t, content, "hello")
	assert.Contains(t, content, `"app":"mdview"`)
}

func TestNewCreatesLogDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "logs")

	log, err := New(&Config{LogDir: dir, Level: LevelInfo, Console: false})
	require.NoError(t, err)
	defer log.Close()

	assert.True(t, strings.HasPrefix(log.GetLogPath(), dir))
	_, err = os.Stat(dir)
	assert.NoError(t, err)
}
