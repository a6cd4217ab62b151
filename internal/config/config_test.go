package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetConfigValue_Precedence(t *testing.T) {
	t.Setenv("SHELFMARK_TEST_KEY", "from-env")

	// Flag wins over env.
	assert.Equal(t, "from-flag", getConfigValue("from-flag", "SHELFMARK_TEST_KEY", "default"))
	// Env wins over default.
	assert.Equal(t, "from-env", getConfigValue("", "SHELFMARK_TEST_KEY", "default"))
	// Default when nothing else is set.
	assert.Equal(t, "default", getConfigValue("", "SHELFMARK_TEST_UNSET", "default"))
}

func TestGetIntConfigValue(t *testing.T) {
	t.Setenv("SHELFMARK_TEST_INT", "7")
	assert.Equal(t, 7, getIntConfigValue("", "SHELFMARK_TEST_INT", 3))

	t.Setenv("SHELFMARK_TEST_INT", "not-a-number")
	assert.Equal(t, 3, getIntConfigValue("", "SHELFMARK_TEST_INT", 3))
}

func TestParseDurationValue(t *testing.T) {
	d, err := parseDurationValue("", "SHELFMARK_TEST_DUR_UNSET", "24h")
	require.NoError(t, err)
	assert.Equal(t, "24h0m0s", d.String())

	t.Setenv("SHELFMARK_TEST_DUR", "oops")
	_, err = parseDurationValue("", "SHELFMARK_TEST_DUR", "30s")
	assert.Error(t, err)
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "# comment\nSHELFMARK_ENVFILE_A=hello\nSHELFMARK_ENVFILE_B=\"quoted\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("SHELFMARK_ENVFILE_A", "") // ensure unset semantics
	os.Unsetenv("SHELFMARK_ENVFILE_A")
	os.Unsetenv("SHELFMARK_ENVFILE_B")
	t.Cleanup(func() {
		os.Unsetenv("SHELFMARK_ENVFILE_A")
		os.Unsetenv("SHELFMARK_ENVFILE_B")
	})

	require.NoError(t, loadEnvFile(path))
	assert.Equal(t, "hello", os.Getenv("SHELFMARK_ENVFILE_A"))
	assert.Equal(t, "quoted", os.Getenv("SHELFMARK_ENVFILE_B"))
}

func TestLoadEnvFile_MissingIsError(t *testing.T) {
	err := loadEnvFile(filepath.Join(t.TempDir(), "nope.env"))
	assert.Error(t, err)
}
