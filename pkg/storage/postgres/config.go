package postgres

import (
	"fmt"
	"os"
	"strings"
)

var ErrConfParamMissing = fmt.Errorf("configuration parameter missing")

const defaultDBName = "wordguard"

type Config struct {
	User     string
	Password string
	Host     string
	Port     string
	DBName   string
}

// NewConfig reads the connection parameters from POSTGRES_* environment
// variables. POSTGRES_USER and POSTGRES_DB default to postgres and wordguard.
func NewConfig() (*Config, error) {
	conf := &Config{
		User:     os.Getenv("POSTGRES_USER"),
		Password: os.Getenv("POSTGRES_PASSWORD"),
		Host:     os.Getenv("POSTGRES_HOST"),
		Port:     os.Getenv("POSTGRES_PORT"),
		DBName:   os.Getenv("POSTGRES_DB"),
	}
	if conf.User == "" {
		conf.User = "postgres"
	}
	if conf.DBName == "" {
		conf.DBName = defaultDBName
	}

	if conf.Host == "" {
		return nil, fmt.Errorf("%w: POSTGRES_HOST", ErrConfParamMissing)
	}
	if conf.Port == "" {
		return nil, fmt.Errorf("%w: POSTGRES_PORT", ErrConfParamMissing)
	}
	if conf.Password == "" {
		return nil, fmt.Errorf("%w: POSTGRES_PASSWORD", ErrConfParamMissing)
	}

	return conf, nil
}

func (c *Config) ConString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s", c.User, c.Password, c.Host, c.Port, c.DBName)
}

func (c Config) String() string {
	c.Password = strings.Repeat("*", len([]rune(c.Password)))
	return fmt.Sprintf("%#v", c)
}

func (c *Config) IsValid() bool {
	return c.User != "" && c.Password != "" && c.Host != "" && c.Port != "" && c.DBName != ""
}
