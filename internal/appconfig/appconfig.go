package appconfig

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/template"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v2"
)

const (
	BackendMemory = "memory"
	BackendSQL    = "sql"
)

// Config holds all configuration details
type Config struct {
	Host     string         `yaml:"host"`
	BasePath string         `yaml:"basePath"`
	DocsPath string         `yaml:"docsPath"`
	Store    StoreConfig    `yaml:"store"`
	Database DatabaseConfig `yaml:"database"`
	Pulsar   PulsarConfig   `yaml:"pulsar"`
	AWS      AWSConfig      `yaml:"aws"`
	Tunnel   TunnelConfig   `yaml:"tunnel"`
}

// StoreConfig selects the directory backend
type StoreConfig struct {
	Backend string `yaml:"backend"`
}

// DatabaseConfig defines the database connection details. When SecretName is
// set the connection string is read from AWS Secrets Manager instead of Source.
type DatabaseConfig struct {
	Driver     string `yaml:"driver"`
	Source     string `yaml:"source"`
	SecretName string `yaml:"secretName"`
}

// PulsarConfig defines the messaging system connection details
type PulsarConfig struct {
	URL           string `yaml:"url"`
	TopicProducer string `yaml:"topicProducer"`
	TopicConsumer string `yaml:"topicConsumer"`
	Subscription  string `yaml:"subscription"`
}

type AWSConfig struct {
	Region string `yaml:"region"`
}

// TunnelConfig describes an SSH port-forward to a database host.
type TunnelConfig struct {
	SSHUser        string `yaml:"sshUser"`
	SSHHost        string `yaml:"sshHost"`
	SSHPort        string `yaml:"sshPort"`
	RemoteHost     string `yaml:"remoteHost"`
	RemotePort     string `yaml:"remotePort"`
	LocalPort      string `yaml:"localPort"`
	PrivateKeyPath string `yaml:"privateKeyPath"`
}

// LoadConfig loads and parses the configuration from a given file path. The
// file is rendered as a template over the environment before YAML parsing, so
// values such as {{ .DATABASE_PASSWORD }} are filled in from env vars.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		err := errors.New("config file path is required")
		log.Error().Err(err).Msg("config file not provided")
		return nil, err
	}

	// Parse the template file
	tmpl, err := template.ParseFiles(path)
	if err != nil {
		log.Error().Err(err).Msg("error parsing config file template")
		return nil, err
	}

	// Execute the template with environment variables
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, loadEnvVars()); err != nil {
		log.Error().Err(err).Msg("error executing config file template")
		return nil, err
	}

	// Load and unmarshal the YAML
	var config Config
	if err := yaml.Unmarshal(buf.Bytes(), &config); err != nil {
		log.Error().Err(err).Msg("failed to unmarshal config YAML")
		return nil, err
	}

	config.applyDefaults()

	// DATABASE_URL takes precedence over the file
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		config.Database.Source = dsn
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Store.Backend == "" {
		c.Store.Backend = BackendMemory
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}
	if c.DocsPath == "" {
		c.DocsPath = "/docs"
	}
	if c.Tunnel.SSHPort == "" {
		c.Tunnel.SSHPort = "22"
	}
}

// Validate reports settings that cannot work together.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendMemory:
	case BackendSQL:
		switch c.Database.Driver {
		case "postgres", "sqlite":
		default:
			return fmt.Errorf("unsupported database driver '%s'", c.Database.Driver)
		}
		if c.Database.Source == "" && c.Database.SecretName == "" {
			return errors.New("sql backend requires database.source, database.secretName or DATABASE_URL")
		}
	default:
		return fmt.Errorf("unknown store backend '%s'", c.Store.Backend)
	}
	if c.BasePath != "" && !strings.HasPrefix(c.BasePath, "/") {
		return fmt.Errorf("basePath '%s' must start with '/'", c.BasePath)
	}
	return nil
}

// loadEnvVars loads environment variables into a map
func loadEnvVars() map[string]string {
	envVars := make(map[string]string)
	for _, env := range os.Environ() {
		kv := strings.SplitN(env, "=", 2)
		if len(kv) == 2 {
			envVars[kv[0]] = kv[1]
		}
	}
	return envVars
}
