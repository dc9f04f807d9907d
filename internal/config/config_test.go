package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raysh454/respond/internal/config"
	"github.com/raysh454/respond/respond"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "respond.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultConfig_MatchesFormatterDefaults(t *testing.T) {
	cfg := config.DefaultConfig()
	require.NoError(t, cfg.Validate())

	got := cfg.Formatter.Respond()
	want := respond.DefaultConfig()
	assert.Equal(t, want, got)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := writeFile(t, `
server:
  listen_addr: ":9000"
  read_timeout: 5s
storage:
  path: ":memory:"
log:
  level: debug
formatter:
  add_status: false
  jsonl_callbacks: [boo]
  jsonl_optional: false
`)

	cfg, err := config.LoadWithEnv(path, map[string]string{
		"RESPOND_SERVER_LISTEN_ADDR":          ":9100",
		"RESPOND_FORMATTER_JSONP_CALLBACKS":   "cb,fn",
		"RESPOND_FORMATTER_ADD_RECORD_STATUS": "true",
	})
	require.NoError(t, err)

	assert.Equal(t, ":9100", cfg.Server.ListenAddr)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, ":memory:", cfg.Storage.Path)
	assert.Equal(t, "debug", cfg.Log.Level)

	rc := cfg.Formatter.Respond()
	assert.False(t, rc.AddStatus)
	assert.True(t, rc.AddRecordStatus)
	assert.Equal(t, []string{"boo"}, rc.JSONL.QueryCallbacks)
	assert.False(t, rc.JSONL.Optional)
	assert.Equal(t, []string{"cb", "fn"}, rc.JSONP.QueryCallbacks)
	// Untouched keys keep their defaults.
	assert.Equal(t, "status", rc.StatusField)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.LoadWithEnv(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.Error(t, err)
}

func TestLoad_InvalidValues(t *testing.T) {
	cases := map[string]string{
		"log level":    "log:\n  level: chatty\n",
		"ndjson type":  "formatter:\n  ndjson_content_type: text/plain\n",
		"listen addr":  "server:\n  listen_addr: \"\"\n",
		"broken yaml":  "server: [\n",
		"status field": "formatter:\n  status_field: \"\"\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := config.LoadWithEnv(writeFile(t, body), nil)
			assert.Error(t, err)
		})
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := config.ExpandPath("~/x/records.db")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "x", "records.db"), got)

	got, err = config.ExpandPath("/abs/records.db")
	require.NoError(t, err)
	assert.Equal(t, "/abs/records.db", got)
}
