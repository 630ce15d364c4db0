package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	conf, err := LoadFromTomlFileAndValidate(writeConfig(t, `
base_url = "https://dash.example.org"
`))
	require.NoError(t, err)
	require.Equal(t, 8080, conf.ListenPort)
	require.Equal(t, "http://localhost:8000/api", conf.Backend.Address)
	require.Equal(t, 30*time.Second, conf.BackendTimeout())
	require.Equal(t, StorageMemory, conf.Session.Storage)
	require.Equal(t, 24*time.Hour, conf.SessionLifetime())
	require.Equal(t, time.Hour, conf.SessionIdleTimeout())
	require.Equal(t, "_dashboard_client", conf.Session.Cookie.Name)
	require.True(t, conf.Session.Cookie.Secure)
	// A secret is generated when none is configured.
	require.NotEmpty(t, conf.Session.Cookie.Secret)
	require.True(t, conf.AccessControl.AllowAllEmails)
	require.Equal(t, "https://dash.example.org", conf.Origin())
}

func TestLoadFull(t *testing.T) {
	conf, err := LoadFromTomlFileAndValidate(writeConfig(t, `
port = 9000
base_url = "https://dash.example.org"

[backend]
address = "https://api.example.org/api"
timeout = 5

[session]
storage = "redis"
lifetime = 3600
idle_timeout = 120

[session.cookie]
secret = "0123456789abcdef0123"
name = "_c"
secure = false

[session.redis]
address = "redis:6379"
db = 2
key_prefix = "dash"

[access_control]
email_allow_list = ["*@clinic.org"]
required_user_types = [1, 2]
`))
	require.NoError(t, err)
	require.Equal(t, 9000, conf.ListenPort)
	require.Equal(t, "https://api.example.org/api", conf.Backend.Address)
	require.Equal(t, 5*time.Second, conf.BackendTimeout())
	require.Equal(t, StorageRedis, conf.Session.Storage)
	require.Equal(t, 2*time.Minute, conf.SessionIdleTimeout())
	require.Equal(t, "redis:6379", conf.Session.Redis.Address)
	require.Equal(t, 2, conf.Session.Redis.DB)
	require.Equal(t, "dash", conf.Session.Redis.KeyPrefix)
	require.False(t, conf.Session.Cookie.Secure)
	require.Equal(t, []string{"*@clinic.org"}, conf.AccessControl.EmailAllowlist)
	require.False(t, conf.AccessControl.AllowAllEmails)
	require.Equal(t, []int{1, 2}, conf.AccessControl.RequiredUserTypes)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("DASHBOARD_BACKEND_ADDRESS", "https://override.example.org/api")
	t.Setenv("DASHBOARD_LISTEN_PORT", "7000")
	t.Setenv("DASHBOARD_SESSION_COOKIE_SECRET", "an-env-provided-secret")

	conf, err := LoadFromTomlFileAndValidate(writeConfig(t, `
base_url = "https://dash.example.org"

[backend]
address = "https://file.example.org/api"
`))
	require.NoError(t, err)
	require.Equal(t, "https://override.example.org/api", conf.Backend.Address)
	require.Equal(t, 7000, conf.ListenPort)
	require.Equal(t, "an-env-provided-secret", conf.Session.Cookie.Secret)
}

func TestValidationErrors(t *testing.T) {
	testCases := map[string]string{
		"missing base url": ``,
		"relative base url": `
base_url = "/dashboard"
`,
		"relative backend": `
base_url = "https://dash"
[backend]
address = "/api"
`,
		"bad storage": `
base_url = "https://dash"
[session]
storage = "sqlite"
`,
		"short secret": `
base_url = "https://dash"
[session.cookie]
secret = "short"
`,
		"bad user type": `
base_url = "https://dash"
[access_control]
required_user_types = [4]
`,
	}
	for name, contents := range testCases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadFromTomlFileAndValidate(writeConfig(t, contents))
			require.Error(t, err)
		})
	}
}

func TestOriginDropsPath(t *testing.T) {
	conf := &Config{BaseURL: "https://dash.example.org:8443/screening/"}
	require.Equal(t, "https://dash.example.org:8443", conf.Origin())
}

func TestMissingFile(t *testing.T) {
	_, err := LoadFromTomlFileAndValidate(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
}
