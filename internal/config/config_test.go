package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeConfig writes content to a temp file with the given name and
// returns its path.
func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const validTOML = `
[matrix]
homeserver = "https://matrix.example.org"
user_id = "@setlist:example.org"
access_token = "syt_secret"

[database]
path = "/tmp/catalog.db"
`

func TestLoad_TOML(t *testing.T) {
	path := writeConfig(t, "config.toml", validTOML)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://matrix.example.org", cfg.Matrix.Homeserver)
	assert.Equal(t, "@setlist:example.org", cfg.Matrix.UserID)
	assert.Equal(t, "/tmp/catalog.db", cfg.Database.Path)
}

func TestLoad_YAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
matrix:
  homeserver: https://matrix.example.org
  user_id: "@setlist:example.org"
  access_token: syt_secret
bot:
  command_prefix: "!"
  allowed_rooms:
    - "!band:example.org"
  moderator_power_level: 75
  edit_window: 30m
database:
  path: /tmp/catalog.db
logging:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "!", cfg.Bot.CommandPrefix)
	assert.Equal(t, []string{"!band:example.org"}, cfg.Bot.AllowedRooms)
	assert.Equal(t, 75, cfg.Bot.ModeratorPowerLevel)
	assert.Equal(t, 30*time.Minute, cfg.Bot.EditWindow)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "config.toml", validTOML)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DefaultCommandPrefix, cfg.Bot.CommandPrefix)
	assert.Equal(t, DefaultModeratorRole, cfg.Bot.ModeratorRole)
	assert.Equal(t, DefaultModeratorPowerLevel, cfg.Bot.ModeratorPowerLevel)
	assert.Equal(t, DefaultEditWindow, cfg.Bot.EditWindow)
	assert.Equal(t, DefaultWorkers, cfg.Bot.Workers)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_ExplicitZeroPowerLevel(t *testing.T) {
	path := writeConfig(t, "config.toml", validTOML+`
[bot]
moderator_power_level = 0
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	// Zero is a real power level, not an absent key
	assert.Equal(t, 0, cfg.Bot.ModeratorPowerLevel)
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("SETLIST_TEST_TOKEN", "syt_from_env")

	path := writeConfig(t, "config.toml", `
[matrix]
homeserver = "https://matrix.example.org"
user_id = "@setlist:example.org"
access_token = "${SETLIST_TEST_TOKEN}"

[database]
path = "/tmp/catalog.db"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "syt_from_env", cfg.Matrix.AccessToken)
}

func TestLoad_UnsetEnvVarFailsValidation(t *testing.T) {
	path := writeConfig(t, "config.toml", `
[matrix]
homeserver = "https://matrix.example.org"
user_id = "@setlist:example.org"
access_token = "${SETLIST_DEFINITELY_UNSET_VAR}"

[database]
path = "/tmp/catalog.db"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access_token")
}

func TestLoad_ValidationFailures(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "missing homeserver",
			content: `
[matrix]
user_id = "@setlist:example.org"
access_token = "syt_secret"
[database]
path = "/tmp/catalog.db"
`,
			wantErr: "matrix.homeserver",
		},
		{
			name: "homeserver not a URL",
			content: `
[matrix]
homeserver = "matrix.example.org"
user_id = "@setlist:example.org"
access_token = "syt_secret"
[database]
path = "/tmp/catalog.db"
`,
			wantErr: "http(s)",
		},
		{
			name: "bare username",
			content: `
[matrix]
homeserver = "https://matrix.example.org"
user_id = "setlist"
access_token = "syt_secret"
[database]
path = "/tmp/catalog.db"
`,
			wantErr: "user_id",
		},
		{
			name: "missing database path",
			content: `
[matrix]
homeserver = "https://matrix.example.org"
user_id = "@setlist:example.org"
access_token = "syt_secret"
`,
			wantErr: "database.path",
		},
		{
			name: "negative workers",
			content: `
[matrix]
homeserver = "https://matrix.example.org"
user_id = "@setlist:example.org"
access_token = "syt_secret"
[bot]
workers = -2
[database]
path = "/tmp/catalog.db"
`,
			wantErr: "bot.workers",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, "config.toml", tt.content)
			_, err := Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_BadDuration(t *testing.T) {
	path := writeConfig(t, "config.toml", validTOML+`
[bot]
edit_window = "soon"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "edit_window")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}
