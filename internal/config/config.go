package config

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/labstack/gommon/log"
	toml "github.com/pelletier/go-toml/v2"
)

const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
)

type Config struct {
	ListenPort int `toml:"port" split_words:"true"`
	// Public URL the dashboard is served from. State-changing requests from
	// any other origin are refused
	BaseURL string `toml:"base_url" split_words:"true"`

	Backend struct {
		// Address of the screening REST API, e.g. https://screening.example.org/api
		Address string `toml:"address"`
		// Request timeout in seconds
		Timeout       int  `toml:"timeout"`
		AllowInsecure bool `toml:"allow_insecure" split_words:"true"`
	} `toml:"backend"`

	Session struct {
		// Where persisted tokens live: "memory" or "redis"
		Storage string `toml:"storage"`
		// Lifetime of the client cookie and of persisted tokens, in seconds
		Lifetime int `toml:"lifetime"`
		// Seconds after which an unused in-memory session store is dropped
		IdleTimeout int `toml:"idle_timeout" split_words:"true"`

		Cookie struct {
			Secret string `toml:"secret"`
			Domain string `toml:"domain"`
			Name   string `toml:"name"`
			Secure bool   `toml:"secure"`
		} `toml:"cookie"`

		Redis struct {
			Address   string `toml:"address"`
			Password  string `toml:"password"`
			DB        int    `toml:"db"`
			KeyPrefix string `toml:"key_prefix" split_words:"true"`
		} `toml:"redis"`
	} `toml:"session"`

	AccessControl struct {
		// List of emails to allow, "*@clinic.org" style wildcards supported. If empty, all emails will be allowed
		EmailAllowlist []string `toml:"email_allow_list" envconfig:"EMAIL_ALLOW_LIST"`
		// Will default to false if an allow list is supplied, will default to true if allow list is empty
		AllowAllEmails bool `toml:"allow_all_emails" split_words:"true"`
		// Backend user types (1 = admin, 2 = clinician, 3 = field worker) allowed in. Empty = any
		RequiredUserTypes []int `toml:"required_user_types" split_words:"true"`
	} `toml:"access_control" split_words:"true"`
}

// TOML marshaller doesn't override fields that weren't set in the TOML, so we can apply defaults here
func (c *Config) setDefaults() {
	c.ListenPort = 8080

	c.Backend.Address = "http://localhost:8000/api"
	c.Backend.Timeout = 30

	c.Session.Storage = StorageMemory
	c.Session.Lifetime = 60 * 60 * 24 // 24 hours
	c.Session.IdleTimeout = 60 * 60

	c.Session.Cookie.Name = "_dashboard_client"
	c.Session.Cookie.Secure = true

	c.Session.Redis.Address = "localhost:6379"
	c.Session.Redis.KeyPrefix = "dashboard"
}

func (c *Config) BackendTimeout() time.Duration {
	return time.Duration(c.Backend.Timeout) * time.Second
}

func (c *Config) SessionLifetime() time.Duration {
	return time.Duration(c.Session.Lifetime) * time.Second
}

func (c *Config) SessionIdleTimeout() time.Duration {
	return time.Duration(c.Session.IdleTimeout) * time.Second
}

// Origin is the scheme and host of BaseURL, as browsers send it in the
// Origin header.
func (c *Config) Origin() string {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

// LoadFromTomlFileAndValidate reads the TOML file, applies DASHBOARD_*
// environment overrides, then validates the result.
func LoadFromTomlFileAndValidate(filepath string) (*Config, error) {
	file, err := os.ReadFile(filepath)
	if err != nil {
		return nil, err
	}

	conf := new(Config)
	conf.setDefaults()

	err = toml.Unmarshal(file, conf)
	if err != nil {
		return nil, err
	}

	if err := conf.applyEnv(); err != nil {
		return nil, err
	}

	if err := conf.validate(); err != nil {
		return nil, err
	}

	return conf, nil
}

func (c *Config) applyEnv() error {
	if err := envconfig.Process("dashboard", c); err != nil {
		return fmt.Errorf("couldn't apply environment overrides: %w", err)
	}
	return nil
}

func (c *Config) validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("please supply base_url")
	}
	if u, err := url.Parse(c.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("base_url (%s) must be an absolute URL", c.BaseURL)
	}

	if c.Backend.Address == "" {
		return fmt.Errorf("please supply backend.address")
	}
	if u, err := url.Parse(c.Backend.Address); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("backend.address (%s) must be an absolute URL", c.Backend.Address)
	}

	if c.Backend.Timeout <= 0 {
		return fmt.Errorf("backend.timeout must be positive")
	}

	if c.Session.Storage != StorageMemory && c.Session.Storage != StorageRedis {
		return fmt.Errorf("invalid session storage supplied (%s), valid types are %q and %q", c.Session.Storage, StorageMemory, StorageRedis)
	}

	if c.Session.Storage == StorageRedis && c.Session.Redis.Address == "" {
		return fmt.Errorf("session.redis.address is required when session storage is %q", StorageRedis)
	}

	if len(c.Session.Cookie.Secret) == 0 {
		log.Warnf("No cookie secret was provided, randomly generating one...")
		buff := make([]byte, 16)
		_, err := rand.Read(buff)
		if err != nil {
			return fmt.Errorf("failed to generate random cookie secret: %w", err)
		}

		c.Session.Cookie.Secret = base64.RawStdEncoding.EncodeToString(buff)
		log.Warnf("Note: because your cookie secret was randomly generated, if the dashboard restarts, or you are trying to load balance across multiple instances, clients will have to log in again.")

	} else if len(c.Session.Cookie.Secret) < 16 {
		return fmt.Errorf("your cookie.secret was less than 16 characters. Please supply a long, random secret")
	}

	if len(c.AccessControl.EmailAllowlist) == 0 {
		c.AccessControl.AllowAllEmails = true
	}

	for _, userType := range c.AccessControl.RequiredUserTypes {
		if userType < 1 || userType > 3 {
			return fmt.Errorf("invalid user type %d in required_user_types, valid types are 1, 2 and 3", userType)
		}
	}

	return nil
}
