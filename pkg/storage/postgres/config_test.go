package postgres

import (
	"errors"
	"strings"
	"testing"
)

func TestConfig_IsValid(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want bool
	}{
		{
			name: "valid config",
			cfg: Config{
				User:     "user",
				Password: "password",
				Host:     "localhost",
				Port:     "5432",
				DBName:   "test",
			},
			want: true,
		},
		{
			name: "empty config",
			cfg:  Config{},
			want: false,
		},
		{
			name: "config with empty DBName",
			cfg: Config{
				User:     "user",
				Password: "password",
				Host:     "localhost",
				Port:     "5432",
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.IsValid(); got != tt.want {
				t.Errorf("Config.IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConfig_String(t *testing.T) {
	cfg := Config{User: "user", Password: "secret", Host: "localhost", Port: "5432", DBName: "test"}

	got := cfg.String()
	if strings.Contains(got, "secret") {
		t.Errorf("String() leaks the password: %s", got)
	}
	if !strings.Contains(got, `"******"`) {
		t.Errorf("String() = %s; want masked password", got)
	}
	if cfg.Password != "secret" {
		t.Error("String() must not modify the config")
	}
}

func TestConfig_ConString(t *testing.T) {
	cfg := Config{User: "user", Password: "pass", Host: "db", Port: "5432", DBName: "test"}

	want := "postgres://user:pass@db:5432/test"
	if got := cfg.ConString(); got != want {
		t.Errorf("ConString() = %q, want %q", got, want)
	}
}

func TestNewConfig(t *testing.T) {
	t.Setenv("POSTGRES_USER", "")
	t.Setenv("POSTGRES_DB", "")
	t.Setenv("POSTGRES_HOST", "db")
	t.Setenv("POSTGRES_PORT", "5432")
	t.Setenv("POSTGRES_PASSWORD", "pass")

	cfg, err := NewConfig()
	if err != nil {
		t.Fatalf("NewConfig() error = %v", err)
	}
	if cfg.User != "postgres" || cfg.DBName != defaultDBName {
		t.Errorf("NewConfig() = %+v; want default user and database", cfg)
	}
	if !cfg.IsValid() {
		t.Errorf("NewConfig() = %+v; want valid config", cfg)
	}

	t.Setenv("POSTGRES_HOST", "")
	_, err = NewConfig()
	if !errors.Is(err, ErrConfParamMissing) {
		t.Errorf("want ErrConfParamMissing, got %v", err)
	}
	if err == nil || !strings.Contains(err.Error(), "POSTGRES_HOST") {
		t.Errorf("want error naming POSTGRES_HOST, got %v", err)
	}
}
