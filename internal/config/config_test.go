package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("Load config from file", func(t *testing.T) {
		// Create temp config file
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.yaml")

		configContent := `
server:
  port: 9000
  host: 127.0.0.1
database:
  type: sqlite
  sqlite:
    path: /tmp/test.db
jwt:
  secret: test-secret
  expiration: 48h
  issuer: test-udnm
radius:
  users_file: /tmp/udn_users
logging:
  level: debug
  format: console
  output: stdout
`
		err := os.WriteFile(configPath, []byte(configContent), 0644)
		require.NoError(t, err)

		cfg, err := Load(configPath, nil)
		require.NoError(t, err)
		assert.NotNil(t, cfg)
		assert.Equal(t, 9000, cfg.Server.Port)
		assert.Equal(t, "127.0.0.1", cfg.Server.Host)
		assert.Equal(t, "sqlite", cfg.Database.Type)
		assert.Equal(t, "test-secret", cfg.JWT.Secret)
		assert.Equal(t, "debug", cfg.Logging.Level)
	})

	t.Run("Load with non-existent file uses defaults", func(t *testing.T) {
		cfg, err := Load("/non/existent/path.yaml", nil)
		require.NoError(t, err)
		assert.NotNil(t, cfg)
		// Should have default values
		assert.Equal(t, 8000, cfg.Server.Port)
		assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	})

	t.Run("Load with invalid YAML fails", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.yaml")

		configContent := `invalid: yaml: content:`
		err := os.WriteFile(configPath, []byte(configContent), 0644)
		require.NoError(t, err)

		_, err = Load(configPath, nil)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse config file")
	})

	t.Run("Load with invalid config values fails validation", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.yaml")

		configContent := `
server:
  port: 70000
database:
  type: sqlite
  sqlite:
    path: /tmp/test.db
`
		err := os.WriteFile(configPath, []byte(configContent), 0644)
		require.NoError(t, err)

		_, err = Load(configPath, nil)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid configuration")
	})
}

func TestDefaultConfig(t *testing.T) {
	t.Run("Default config has sensible values", func(t *testing.T) {
		cfg := defaultConfig()
		assert.Equal(t, 8000, cfg.Server.Port)
		assert.Equal(t, "0.0.0.0", cfg.Server.Host)
		assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
		assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)
		assert.False(t, cfg.Server.TLSEnabled)

		assert.Equal(t, "sqlite", cfg.Database.Type)
		assert.Equal(t, "./data/udnm.db", cfg.Database.SQLite.Path)

		assert.Equal(t, 24*time.Hour, cfg.JWT.Expiration)
		assert.Equal(t, "udnm", cfg.JWT.Issuer)

		assert.Equal(t, "info", cfg.Logging.Level)
		assert.Equal(t, "json", cfg.Logging.Format)

		assert.True(t, cfg.Security.CORSEnabled)
		assert.Equal(t, []string{"*"}, cfg.Security.CORSOrigins)

		assert.Empty(t, cfg.Radius.UsersFile)
		assert.Equal(t, "Device not registered", cfg.Radius.RejectMessage)
	})
}

func TestApplyEnvOverrides(t *testing.T) {
	testCases := []struct {
		name  string
		env   map[string]string
		check func(t *testing.T, cfg *Config)
	}{
		{
			name: "Server",
			env:  map[string]string{"UDNM_SERVER_PORT": "9090", "UDNM_SERVER_HOST": "127.0.0.1"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.Equal(t, "127.0.0.1", cfg.Server.Host)
			},
		},
		{
			name: "Non-numeric port is ignored",
			env:  map[string]string{"UDNM_SERVER_PORT": "eighty"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 8000, cfg.Server.Port)
			},
		},
		{
			name: "SQLite",
			env:  map[string]string{"UDNM_DB_TYPE": "sqlite", "UDNM_DB_SQLITE_PATH": "/var/lib/udnm/udnm.db"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "/var/lib/udnm/udnm.db", cfg.Database.SQLite.Path)
			},
		},
		{
			name: "PostgreSQL",
			env: map[string]string{
				"UDNM_DB_TYPE":              "postgres",
				"UDNM_DB_POSTGRES_HOST":     "db.internal",
				"UDNM_DB_POSTGRES_PORT":     "5433",
				"UDNM_DB_POSTGRES_DATABASE": "udnm",
				"UDNM_DB_POSTGRES_USER":     "udnm",
				"UDNM_DB_POSTGRES_PASSWORD": "hunter2",
				"UDNM_DB_POSTGRES_SSL_MODE": "verify-full",
			},
			check: func(t *testing.T, cfg *Config) {
				pg := cfg.Database.Postgres
				assert.Equal(t, "postgres", cfg.Database.Type)
				assert.Equal(t, "db.internal", pg.Host)
				assert.Equal(t, 5433, pg.Port)
				assert.Equal(t, "udnm", pg.Database)
				assert.Equal(t, "udnm", pg.User)
				assert.Equal(t, "hunter2", pg.Password)
				assert.Equal(t, "verify-full", pg.SSLMode)
			},
		},
		{
			name: "JWT and logging",
			env: map[string]string{
				"UDNM_JWT_SECRET": "from-env",
				"UDNM_LOG_LEVEL":  "debug",
				"UDNM_LOG_FORMAT": "console",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "from-env", cfg.JWT.Secret)
				assert.Equal(t, "debug", cfg.Logging.Level)
				assert.Equal(t, "console", cfg.Logging.Format)
			},
		},
		{
			name: "RADIUS",
			env: map[string]string{
				"UDNM_RADIUS_USERS_FILE":     "/etc/freeradius/udn",
				"UDNM_RADIUS_REJECT_MESSAGE": "Register first",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "/etc/freeradius/udn", cfg.Radius.UsersFile)
				assert.Equal(t, "Register first", cfg.Radius.RejectMessage)
			},
		},
		{
			name: "CORS origins from a comma separated list",
			env:  map[string]string{"UDNM_CORS_ORIGINS": "https://a.example.com, https://b.example.com,"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Security.CORSOrigins)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			cfg := defaultConfig()
			cfg.applyEnvOverrides()
			tc.check(t, cfg)
		})
	}
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr string
	}{
		{"Defaults", func(cfg *Config) {}, ""},
		{"Port zero", func(cfg *Config) { cfg.Server.Port = 0 }, "invalid server port"},
		{"Port too high", func(cfg *Config) { cfg.Server.Port = 65536 }, "invalid server port"},
		{"Lowest port", func(cfg *Config) { cfg.Server.Port = 1 }, ""},
		{"Highest port", func(cfg *Config) { cfg.Server.Port = 65535 }, ""},
		{"TLS without cert", func(cfg *Config) {
			cfg.Server.TLSEnabled = true
			cfg.Server.TLSKey = "/etc/udnm/tls.key"
		}, "TLS enabled"},
		{"TLS without key", func(cfg *Config) {
			cfg.Server.TLSEnabled = true
			cfg.Server.TLSCert = "/etc/udnm/tls.crt"
		}, "TLS enabled"},
		{"TLS with cert and key", func(cfg *Config) {
			cfg.Server.TLSEnabled = true
			cfg.Server.TLSCert = "/etc/udnm/tls.crt"
			cfg.Server.TLSKey = "/etc/udnm/tls.key"
		}, ""},
		{"Unknown database", func(cfg *Config) { cfg.Database.Type = "mysql" }, "invalid database type"},
		{"SQLite without path", func(cfg *Config) { cfg.Database.SQLite.Path = "" }, "SQLite path"},
		{"PostgreSQL without host", func(cfg *Config) {
			cfg.Database.Type = "postgres"
			cfg.Database.Postgres.Database = "udnm"
		}, "PostgreSQL host and database"},
		{"PostgreSQL without database", func(cfg *Config) {
			cfg.Database.Type = "postgres"
			cfg.Database.Postgres.Host = "db.internal"
		}, "PostgreSQL host and database"},
		{"PostgreSQL complete", func(cfg *Config) {
			cfg.Database.Type = "postgres"
			cfg.Database.Postgres.Host = "db.internal"
			cfg.Database.Postgres.Database = "udnm"
		}, ""},
		{"Unknown log level", func(cfg *Config) { cfg.Logging.Level = "trace" }, "invalid log level"},
		{"Unknown log format", func(cfg *Config) { cfg.Logging.Format = "xml" }, "invalid log format"},
		{"Blank reject message", func(cfg *Config) { cfg.Radius.RejectMessage = "   " }, "reject message"},
	}

	for _, level := range []string{"debug", "info", "warn", "error"} {
		testCases = append(testCases, struct {
			name    string
			mutate  func(cfg *Config)
			wantErr string
		}{"Log level " + level, func(cfg *Config) { cfg.Logging.Level = level }, ""})
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaultConfig()
			tc.mutate(cfg)

			err := cfg.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestGetDSN(t *testing.T) {
	t.Run("SQLite path is used as is", func(t *testing.T) {
		cfg := defaultConfig()
		cfg.Database.SQLite.Path = "/var/lib/udnm/udnm.db"
		assert.Equal(t, "/var/lib/udnm/udnm.db", cfg.GetDSN())
	})

	t.Run("PostgreSQL key value string", func(t *testing.T) {
		cfg := defaultConfig()
		cfg.Database.Type = "postgres"
		cfg.Database.Postgres = PostgresConfig{
			Host:     "db.internal",
			Port:     5433,
			User:     "udnm",
			Password: "hunter2",
			Database: "udnm",
			SSLMode:  "require",
		}
		assert.Equal(t, "host=db.internal port=5433 user=udnm password=hunter2 dbname=udnm sslmode=require", cfg.GetDSN())
	})

	t.Run("Unknown type", func(t *testing.T) {
		cfg := defaultConfig()
		cfg.Database.Type = "unknown"
		assert.Empty(t, cfg.GetDSN())
	})
}

func TestLoadWithEnvAndFlags_Integration(t *testing.T) {
	t.Run("Priority: flags > env > file > defaults", func(t *testing.T) {
		// Create config file
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.yaml")

		configContent := `
server:
  port: 7000
database:
  type: sqlite
  sqlite:
    path: /file/path.db
radius:
  users_file: /tmp/udn_users
logging:
  level: info
  format: json
  output: stdout
`
		err := os.WriteFile(configPath, []byte(configContent), 0644)
		require.NoError(t, err)

		t.Setenv("UDNM_SERVER_PORT", "8100")

		// Without flags the environment wins over the file
		cfg, err := Load(configPath, nil)
		require.NoError(t, err)
		assert.Equal(t, 8100, cfg.Server.Port)
		assert.Equal(t, "/file/path.db", cfg.Database.SQLite.Path)
	})
}

func TestLoadWithFlags(t *testing.T) {
	t.Run("Flags override env and file", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.yaml")
		err := os.WriteFile(configPath, []byte("server:\n  port: 7000\n"), 0644)
		require.NoError(t, err)

		t.Setenv("UDNM_SERVER_PORT", "8100")

		flags := NewFlags("udnm")
		require.NoError(t, flags.Parse([]string{
			"--config", configPath,
			"--server.port", "9100",
			"--radius.users-file", "/tmp/users",
			"--jwt.expiration", "2h",
		}))
		assert.Equal(t, configPath, flags.GetConfigFile())

		cfg, err := Load(flags.GetConfigFile(), flags)
		require.NoError(t, err)
		assert.Equal(t, 9100, cfg.Server.Port)
		assert.Equal(t, "/tmp/users", cfg.Radius.UsersFile)
		assert.Equal(t, 2*time.Hour, cfg.JWT.Expiration)
	})

	t.Run("Unset flags do not override", func(t *testing.T) {
		flags := NewFlags("udnm")
		require.NoError(t, flags.Parse(nil))

		_, changed := flags.GetServerPort()
		assert.False(t, changed)

		cfg, err := Load("/non/existent/path.yaml", flags)
		require.NoError(t, err)
		assert.Equal(t, 8000, cfg.Server.Port)
	})

	t.Run("Invalid duration flag fails", func(t *testing.T) {
		flags := NewFlags("udnm")
		require.NoError(t, flags.Parse([]string{"--server.read-timeout", "soon"}))

		_, err := Load("/non/existent/path.yaml", flags)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "server.read-timeout")
	})

	t.Run("Env file is loaded before env overrides", func(t *testing.T) {
		tmpDir := t.TempDir()
		envPath := filepath.Join(tmpDir, ".env")
		err := os.WriteFile(envPath, []byte("UDNM_RADIUS_REJECT_MESSAGE=From env file\n"), 0644)
		require.NoError(t, err)
		defer os.Unsetenv("UDNM_RADIUS_REJECT_MESSAGE")

		flags := NewFlags("udnm")
		require.NoError(t, flags.Parse([]string{"--env-file", envPath}))

		cfg, err := Load("/non/existent/path.yaml", flags)
		require.NoError(t, err)
		assert.Equal(t, "From env file", cfg.Radius.RejectMessage)
	})

	t.Run("Missing env file fails", func(t *testing.T) {
		flags := NewFlags("udnm")
		require.NoError(t, flags.Parse([]string{"--env-file", "/non/existent/.env"}))

		_, err := Load("/non/existent/path.yaml", flags)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to load env file")
	})
}
