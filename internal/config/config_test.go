package config

import (
	"os"
	"testing"
	"time"
)

// ---------------------------------------------------------------------------
// DatabaseConfig.GetDSN
// ---------------------------------------------------------------------------

func TestGetDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  DatabaseConfig
		want string
	}{
		{
			name: "standard config",
			cfg: DatabaseConfig{
				Host:     "localhost",
				Port:     5432,
				User:     "orbit",
				Password: "secret",
				Name:     "orbit",
				SSLMode:  "require",
			},
			want: "host=localhost port=5432 user=orbit password=secret dbname=orbit sslmode=require",
		},
		{
			name: "disable ssl mode",
			cfg: DatabaseConfig{
				Host:     "db.example.com",
				Port:     5433,
				User:     "admin",
				Password: "pass",
				Name:     "mydb",
				SSLMode:  "disable",
			},
			want: "host=db.example.com port=5433 user=admin password=pass dbname=mydb sslmode=disable",
		},
		{
			name: "empty password",
			cfg: DatabaseConfig{
				Host:     "localhost",
				Port:     5432,
				User:     "user",
				Password: "",
				Name:     "dbname",
				SSLMode:  "prefer",
			},
			want: "host=localhost port=5432 user=user password= dbname=dbname sslmode=prefer",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.cfg.GetDSN()
			if got != tt.want {
				t.Errorf("GetDSN() = %q, want %q", got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// ServerConfig.GetAddress
// ---------------------------------------------------------------------------

func TestGetAddress(t *testing.T) {
	tests := []struct {
		name string
		cfg  ServerConfig
		want string
	}{
		{"default", ServerConfig{Host: "0.0.0.0", Port: 8080}, "0.0.0.0:8080"},
		{"localhost", ServerConfig{Host: "localhost", Port: 3000}, "localhost:3000"},
		{"empty host", ServerConfig{Host: "", Port: 8080}, ":8080"},
		{"port 443", ServerConfig{Host: "0.0.0.0", Port: 443}, "0.0.0.0:443"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.cfg.GetAddress()
			if got != tt.want {
				t.Errorf("GetAddress() = %q, want %q", got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Config.Validate
// ---------------------------------------------------------------------------

func minimalValidConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:    8080,
			BaseURL: "http://localhost:8080",
		},
		Database: DatabaseConfig{
			Host: "localhost",
			Name: "orbit",
			User: "orbit",
		},
		Storage: StorageConfig{
			DefaultBackend: "local",
			Local:          LocalStorageConfig{BasePath: "./storage"},
		},
		Auth: AuthConfig{
			JWT: JWTConfig{
				AccessTTL:  15 * time.Minute,
				RefreshTTL: 168 * time.Hour,
			},
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

func TestValidate(t *testing.T) {
	t.Run("valid minimal config passes", func(t *testing.T) {
		if err := minimalValidConfig().Validate(); err != nil {
			t.Errorf("Validate() unexpected error: %v", err)
		}
	})

	t.Run("invalid server port 0", func(t *testing.T) {
		cfg := minimalValidConfig()
		cfg.Server.Port = 0
		if err := cfg.Validate(); err == nil {
			t.Error("Validate() expected error for port 0, got nil")
		}
	})

	t.Run("invalid server port 70000", func(t *testing.T) {
		cfg := minimalValidConfig()
		cfg.Server.Port = 70000
		if err := cfg.Validate(); err == nil {
			t.Error("Validate() expected error for port 70000, got nil")
		}
	})

	t.Run("missing base_url", func(t *testing.T) {
		cfg := minimalValidConfig()
		cfg.Server.BaseURL = ""
		if err := cfg.Validate(); err == nil {
			t.Error("Validate() expected error for empty base_url, got nil")
		}
	})

	t.Run("missing database host", func(t *testing.T) {
		cfg := minimalValidConfig()
		cfg.Database.Host = ""
		if err := cfg.Validate(); err == nil {
			t.Error("Validate() expected error for empty database host, got nil")
		}
	})

	t.Run("missing database name", func(t *testing.T) {
		cfg := minimalValidConfig()
		cfg.Database.Name = ""
		if err := cfg.Validate(); err == nil {
			t.Error("Validate() expected error for empty database name, got nil")
		}
	})

	t.Run("missing database user", func(t *testing.T) {
		cfg := minimalValidConfig()
		cfg.Database.User = ""
		if err := cfg.Validate(); err == nil {
			t.Error("Validate() expected error for empty database user, got nil")
		}
	})

	t.Run("invalid storage backend", func(t *testing.T) {
		cfg := minimalValidConfig()
		cfg.Storage.DefaultBackend = "ftp"
		if err := cfg.Validate(); err == nil {
			t.Error("Validate() expected error for invalid storage backend, got nil")
		}
	})

	t.Run("s3 backend missing region", func(t *testing.T) {
		cfg := minimalValidConfig()
		cfg.Storage.DefaultBackend = "s3"
		cfg.Storage.S3 = S3StorageConfig{}
		if err := cfg.Validate(); err == nil {
			t.Error("Validate() expected error for missing s3 region, got nil")
		}
	})

	t.Run("valid s3 config passes", func(t *testing.T) {
		cfg := minimalValidConfig()
		cfg.Storage.DefaultBackend = "s3"
		cfg.Storage.S3 = S3StorageConfig{Region: "us-east-1"}
		if err := cfg.Validate(); err != nil {
			t.Errorf("Validate() unexpected error for valid s3 config: %v", err)
		}
	})

	t.Run("azure backend missing account_name", func(t *testing.T) {
		cfg := minimalValidConfig()
		cfg.Storage.DefaultBackend = "azure"
		cfg.Storage.Azure = AzureStorageConfig{AccountKey: "key"}
		if err := cfg.Validate(); err == nil {
			t.Error("Validate() expected error for missing azure account_name, got nil")
		}
	})

	t.Run("azure backend missing account_key", func(t *testing.T) {
		cfg := minimalValidConfig()
		cfg.Storage.DefaultBackend = "azure"
		cfg.Storage.Azure = AzureStorageConfig{AccountName: "name"}
		if err := cfg.Validate(); err == nil {
			t.Error("Validate() expected error for missing azure account_key, got nil")
		}
	})

	t.Run("valid azure config passes", func(t *testing.T) {
		cfg := minimalValidConfig()
		cfg.Storage.DefaultBackend = "azure"
		cfg.Storage.Azure = AzureStorageConfig{AccountName: "myaccount", AccountKey: "mykey"}
		if err := cfg.Validate(); err != nil {
			t.Errorf("Validate() unexpected error for valid azure config: %v", err)
		}
	})

	t.Run("local backend missing base_path", func(t *testing.T) {
		cfg := minimalValidConfig()
		cfg.Storage.Local = LocalStorageConfig{BasePath: ""}
		if err := cfg.Validate(); err == nil {
			t.Error("Validate() expected error for missing local base_path, got nil")
		}
	})

	t.Run("non-positive access_ttl", func(t *testing.T) {
		cfg := minimalValidConfig()
		cfg.Auth.JWT.AccessTTL = 0
		if err := cfg.Validate(); err == nil {
			t.Error("Validate() expected error for zero access_ttl, got nil")
		}
	})

	t.Run("refresh_ttl not longer than access_ttl", func(t *testing.T) {
		cfg := minimalValidConfig()
		cfg.Auth.JWT.AccessTTL = time.Hour
		cfg.Auth.JWT.RefreshTTL = time.Hour
		if err := cfg.Validate(); err == nil {
			t.Error("Validate() expected error for refresh_ttl == access_ttl, got nil")
		}
	})

	t.Run("tls enabled missing cert_file", func(t *testing.T) {
		cfg := minimalValidConfig()
		cfg.Security.TLS = TLSConfig{Enabled: true, KeyFile: "key.pem"}
		if err := cfg.Validate(); err == nil {
			t.Error("Validate() expected error for missing tls cert_file, got nil")
		}
	})

	t.Run("tls enabled missing key_file", func(t *testing.T) {
		cfg := minimalValidConfig()
		cfg.Security.TLS = TLSConfig{Enabled: true, CertFile: "cert.pem"}
		if err := cfg.Validate(); err == nil {
			t.Error("Validate() expected error for missing tls key_file, got nil")
		}
	})

	t.Run("audit enabled without destination", func(t *testing.T) {
		cfg := minimalValidConfig()
		cfg.Audit = AuditConfig{Enabled: true}
		if err := cfg.Validate(); err == nil {
			t.Error("Validate() expected error for audit with no destination, got nil")
		}
	})

	t.Run("audit file destination missing path", func(t *testing.T) {
		cfg := minimalValidConfig()
		cfg.Audit = AuditConfig{
			Enabled: true,
			File:    AuditFileConfig{Enabled: true},
		}
		if err := cfg.Validate(); err == nil {
			t.Error("Validate() expected error for file destination without path, got nil")
		}
	})

	t.Run("audit webhook destination missing url", func(t *testing.T) {
		cfg := minimalValidConfig()
		cfg.Audit = AuditConfig{
			Enabled: true,
			Webhook: AuditWebhookConfig{Enabled: true},
		}
		if err := cfg.Validate(); err == nil {
			t.Error("Validate() expected error for webhook destination without url, got nil")
		}
	})

	t.Run("valid audit file config passes", func(t *testing.T) {
		cfg := minimalValidConfig()
		cfg.Audit = AuditConfig{
			Enabled: true,
			File:    AuditFileConfig{Enabled: true, Path: "./audit.log"},
		}
		if err := cfg.Validate(); err != nil {
			t.Errorf("Validate() unexpected error for valid audit config: %v", err)
		}
	})
}

// ---------------------------------------------------------------------------
// expandEnv
// ---------------------------------------------------------------------------

func TestExpandEnv(t *testing.T) {
	t.Run("expands ${VAR} syntax", func(t *testing.T) {
		t.Setenv("CONFIG_TEST_SECRET", "super-secret")
		got := expandEnv("${CONFIG_TEST_SECRET}")
		if got != "super-secret" {
			t.Errorf("expandEnv() = %q, want %q", got, "super-secret")
		}
	})

	t.Run("plain string passthrough", func(t *testing.T) {
		got := expandEnv("no-vars-here")
		if got != "no-vars-here" {
			t.Errorf("expandEnv() = %q, want %q", got, "no-vars-here")
		}
	})

	t.Run("unset variable expands to empty string", func(t *testing.T) {
		os.Unsetenv("CONFIG_TEST_DEFINITELY_UNSET_12345")
		got := expandEnv("${CONFIG_TEST_DEFINITELY_UNSET_12345}")
		if got != "" {
			t.Errorf("expandEnv() = %q, want empty string", got)
		}
	})
}

// ---------------------------------------------------------------------------
// Load – with config file
// ---------------------------------------------------------------------------

// writeTempConfig creates a temp YAML file and registers a cleanup to remove it.
func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	f, err := os.CreateTemp("", "config-test-*.yaml")
	if err != nil {
		t.Fatal("CreateTemp:", err)
	}
	t.Cleanup(func() { os.Remove(f.Name()) })
	if _, err := f.WriteString(content); err != nil {
		t.Fatal("WriteString:", err)
	}
	f.Close()
	return f.Name()
}

func TestLoad_WithConfigFile(t *testing.T) {
	const content = `
server:
  host: "testhost"
  port: 9999
  base_url: "http://testhost:9999"
database:
  host: "dbhost"
  name: "testdb"
  user: "testuser"
storage:
  default_backend: "local"
  local:
    base_path: "./test-storage"
logging:
  level: "debug"
`
	path := writeTempConfig(t, content)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.Host != "testhost" {
		t.Errorf("Server.Host = %q, want testhost", cfg.Server.Host)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("Server.Port = %d, want 9999", cfg.Server.Port)
	}
	if cfg.Database.Host != "dbhost" {
		t.Errorf("Database.Host = %q, want dbhost", cfg.Database.Host)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoad_DefaultsApplied(t *testing.T) {
	// Config without server.host, server.port, or jwt TTLs — setDefaults()
	// should fill them in.
	const content = `
server:
  base_url: "http://localhost:8080"
database:
  host: "localhost"
  name: "orbit"
  user: "orbit"
storage:
  default_backend: "local"
  local:
    base_path: "./storage"
`
	path := writeTempConfig(t, content)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("default Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("default Server.Host = %q, want 0.0.0.0", cfg.Server.Host)
	}
	if cfg.Database.Port != 5432 {
		t.Errorf("default Database.Port = %d, want 5432", cfg.Database.Port)
	}
	if cfg.Database.SSLMode != "require" {
		t.Errorf("default Database.SSLMode = %q, want require", cfg.Database.SSLMode)
	}
	if cfg.Auth.JWT.AccessTTL != 15*time.Minute {
		t.Errorf("default Auth.JWT.AccessTTL = %v, want 15m", cfg.Auth.JWT.AccessTTL)
	}
	if cfg.Auth.JWT.RefreshTTL != 168*time.Hour {
		t.Errorf("default Auth.JWT.RefreshTTL = %v, want 168h", cfg.Auth.JWT.RefreshTTL)
	}
	if cfg.Storage.ProfileImagesBucket != "orbit-profile-images" {
		t.Errorf("default ProfileImagesBucket = %q, want orbit-profile-images", cfg.Storage.ProfileImagesBucket)
	}
	if cfg.Storage.OrphanSweepInterval != time.Hour {
		t.Errorf("default Storage.OrphanSweepInterval = %v, want 1h", cfg.Storage.OrphanSweepInterval)
	}
	if cfg.Audit.Enabled {
		t.Error("default Audit.Enabled = true, want false")
	}
	if !cfg.Security.RateLimiting.Enabled {
		t.Error("default RateLimiting.Enabled = false, want true")
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_DB_PASS", "mysecret")
	const content = `
server:
  port: 8080
  base_url: "http://localhost:8080"
database:
  host: "localhost"
  name: "orbit"
  user: "orbit"
  password: "${TEST_DB_PASS}"
storage:
  default_backend: "local"
  local:
    base_path: "./storage"
`
	path := writeTempConfig(t, content)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Database.Password != "mysecret" {
		t.Errorf("Database.Password = %q, want mysecret", cfg.Database.Password)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("ORB_SERVER_PORT", "9001")
	t.Setenv("ORB_DATABASE_HOST", "env-db-host")
	const content = `
server:
  port: 8080
  base_url: "http://localhost:8080"
database:
  host: "filehost"
  name: "orbit"
  user: "orbit"
storage:
  default_backend: "local"
  local:
    base_path: "./storage"
`
	path := writeTempConfig(t, content)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Server.Port != 9001 {
		t.Errorf("Server.Port = %d, want 9001 from ORB_SERVER_PORT", cfg.Server.Port)
	}
	if cfg.Database.Host != "env-db-host" {
		t.Errorf("Database.Host = %q, want env-db-host from ORB_DATABASE_HOST", cfg.Database.Host)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeTempConfig(t, "server: [unclosed")
	_, err := Load(path)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}
