package mongo

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrConfParamMissing = fmt.Errorf("configuration parameter missing")

const defaultDBName = "wordguard"

// Config locates the quarantine database. URI, when set, takes precedence
// over Host, Port, User and Pass.
type Config struct {
	URI    string
	Host   string
	Port   string
	DBName string
	User   string
	Pass   string
}

// NewConfig reads MONGO_URI, or MONGO_HOST and MONGO_PORT with optional
// MONGO_USER and MONGO_PASS. MONGO_DB_NAME defaults to wordguard.
func NewConfig() (*Config, error) {
	conf := &Config{
		URI:    os.Getenv("MONGO_URI"),
		Host:   os.Getenv("MONGO_HOST"),
		Port:   os.Getenv("MONGO_PORT"),
		DBName: os.Getenv("MONGO_DB_NAME"),
		User:   os.Getenv("MONGO_USER"),
		Pass:   os.Getenv("MONGO_PASS"),
	}
	if conf.DBName == "" {
		conf.DBName = defaultDBName
	}

	if conf.URI != "" {
		return conf, nil
	}
	if conf.Host == "" {
		return nil, fmt.Errorf("%w: MONGO_HOST or MONGO_URI", ErrConfParamMissing)
	}
	if conf.Port == "" {
		return nil, fmt.Errorf("%w: MONGO_PORT", ErrConfParamMissing)
	}

	return conf, nil
}

func (c *Config) conString() string {
	if c.URI != "" {
		return c.URI
	}
	if c.User != "" && c.Pass != "" {
		return fmt.Sprintf("mongodb://%s:%s@%s/", url.QueryEscape(c.User), url.QueryEscape(c.Pass), c.hostPort())
	}
	return fmt.Sprintf("mongodb://%s/", c.hostPort())
}

func (c *Config) hostPort() string {
	return c.Host + ":" + c.Port
}

func (c *Config) Options() *options.ClientOptions {
	return options.Client().ApplyURI(c.conString())
}

// String is safe to log: the password and any credentials in URI are masked.
func (c Config) String() string {
	c.Pass = strings.Repeat("*", len([]rune(c.Pass)))
	if u, err := url.Parse(c.URI); err == nil {
		c.URI = u.Redacted()
	} else if c.URI != "" {
		c.URI = "<invalid>"
	}
	return fmt.Sprintf("%#v", c)
}

func (c *Config) IsValid() bool {
	if c.DBName == "" {
		return false
	}
	return c.URI != "" || (c.Host != "" && c.Port != "")
}
