package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	workdir := t.TempDir()
	t.Setenv("WEBSTORE_SYSTEM_WORKDIR", workdir)

	cfg := LoadConfig("")
	assert.Equal(t, "webstore", cfg.System.Appid)
	assert.Equal(t, "postgres", cfg.Database.Type)
	assert.Equal(t, workdir, cfg.System.Workdir)
	assert.DirExists(t, cfg.GetLogDir())
	assert.DirExists(t, cfg.GetBackupDir())
}

func TestLoadConfigFileAndEnvOverride(t *testing.T) {
	workdir := t.TempDir()
	cfile := filepath.Join(workdir, "webstore.yml")
	content := `
system:
  appid: storefront
  workdir: ` + workdir + `
web:
  port: 9090
database:
  type: sqlite
  name: store.db
`
	require.NoError(t, os.WriteFile(cfile, []byte(content), 0o644))
	t.Setenv("WEBSTORE_WEB_PORT", "9191")
	t.Setenv("WEBSTORE_DB_DEBUG", "true")

	cfg := LoadConfig(cfile)
	assert.Equal(t, "storefront", cfg.System.Appid)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, 9191, cfg.Web.Port, "env should win over file")
	assert.True(t, cfg.Database.Debug)
}
