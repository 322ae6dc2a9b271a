package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration settings
type Config struct {
	Neo4j   Neo4jConfig   `mapstructure:"neo4j" yaml:"neo4j"`
	RDF     RDFConfig     `mapstructure:"rdf" yaml:"rdf"`
	Load    LoadConfig    `mapstructure:"load" yaml:"load"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Verbose enables client logs at all; Debug lowers the level to debug.
	Verbose bool `mapstructure:"verbose" yaml:"verbose"`
	Debug   bool `mapstructure:"debug" yaml:"debug"`
}

type Neo4jConfig struct {
	Host     string `mapstructure:"host" yaml:"host" validate:"required,neo4juri"`
	User     string `mapstructure:"user" yaml:"user" validate:"required_unless=NoAuth true"`
	Password string `mapstructure:"password" yaml:"password,omitempty"`
	NoAuth   bool   `mapstructure:"no_auth" yaml:"no_auth"`
	Database string `mapstructure:"database" yaml:"database"`
	// APOC marks the APOC plugin as installed on the server.
	APOC bool `mapstructure:"apoc" yaml:"apoc"`
}

type RDFConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Host    string `mapstructure:"host" yaml:"host" validate:"omitempty,url"`
}

type LoadConfig struct {
	MaxChunkSize int `mapstructure:"max_chunk_size" yaml:"max_chunk_size" validate:"min=1"`
	DeleteBatch  int `mapstructure:"delete_batch" yaml:"delete_batch" validate:"min=0"`
	MaxDepth     int `mapstructure:"max_depth" yaml:"max_depth" validate:"min=1,max=100"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level" yaml:"level" validate:"omitempty,oneof=trace debug info warn warning error"`
	File  string `mapstructure:"file" yaml:"file"`
	JSON  bool   `mapstructure:"json" yaml:"json"`
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Neo4j: Neo4jConfig{
			Host: "bolt://localhost:7687",
			User: "neo4j",
		},
		Load: LoadConfig{
			MaxChunkSize: 10000,
			DeleteBatch:  50000,
			MaxDepth:     10,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Verbose: true,
	}
}

// Dir returns ~/.neointerface
func Dir() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".neointerface")
}

// Load loads configuration from file
func Load(path string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.SetConfigType("yaml")

	cfg := Default()
	v.SetDefault("neo4j.host", cfg.Neo4j.Host)
	v.SetDefault("neo4j.user", cfg.Neo4j.User)
	v.SetDefault("neo4j.database", cfg.Neo4j.Database)
	v.SetDefault("load.max_chunk_size", cfg.Load.MaxChunkSize)
	v.SetDefault("load.delete_batch", cfg.Load.DeleteBatch)
	v.SetDefault("load.max_depth", cfg.Load.MaxDepth)
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("verbose", cfg.Verbose)

	v.SetEnvPrefix("NEOI")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".neointerface")
		v.AddConfigPath(Dir())
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// loadEnvFiles loads .env files in order of precedence. godotenv never
// overrides a variable that is already set, so earlier files win.
func loadEnvFiles() {
	envFiles := []string{
		".env.local",
		".env",
		filepath.Join(Dir(), ".env"),
	}

	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			godotenv.Load(file)
		}
	}
}

// applyEnvOverrides applies the NEO4J_* variables understood by the
// library as well as the NEOI_* switches.
func applyEnvOverrides(cfg *Config) {
	if host := os.Getenv("NEO4J_HOST"); host != "" {
		cfg.Neo4j.Host = host
	}
	if user := os.Getenv("NEO4J_USER"); user != "" {
		cfg.Neo4j.User = user
	}
	// The keychain is consulted later by CredentialManager, so only the
	// environment is applied here.
	if password := os.Getenv("NEO4J_PASSWORD"); password != "" {
		cfg.Neo4j.Password = password
	}
	if db := os.Getenv("NEO4J_DATABASE"); db != "" {
		cfg.Neo4j.Database = db
	}
	if rdfHost := os.Getenv("NEO4J_RDF_HOST"); rdfHost != "" {
		cfg.RDF.Host = rdfHost
	}

	applyBool("NEOI_APOC", &cfg.Neo4j.APOC)
	applyBool("NEOI_RDF", &cfg.RDF.Enabled)
	applyBool("NEOI_NO_AUTH", &cfg.Neo4j.NoAuth)
	applyBool("NEOI_VERBOSE", &cfg.Verbose)
	applyBool("NEOI_DEBUG", &cfg.Debug)

	if chunk := os.Getenv("NEOI_MAX_CHUNK_SIZE"); chunk != "" {
		if n, err := strconv.Atoi(chunk); err == nil {
			cfg.Load.MaxChunkSize = n
		}
	}
	if file := os.Getenv("NEOI_LOG_FILE"); file != "" {
		cfg.Logging.File = expandPath(file)
	}
}

func applyBool(name string, dst *bool) {
	if raw := os.Getenv(name); raw != "" {
		if b, err := strconv.ParseBool(raw); err == nil {
			*dst = b
		}
	}
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, path[1:])
	}
	return path
}

// Save writes the configuration to path. The password is never written;
// use the keychain for it.
func (c *Config) Save(path string) error {
	v := viper.New()
	v.SetConfigType("yaml")

	neo := c.Neo4j
	v.Set("neo4j.host", neo.Host)
	v.Set("neo4j.user", neo.User)
	v.Set("neo4j.no_auth", neo.NoAuth)
	v.Set("neo4j.database", neo.Database)
	v.Set("neo4j.apoc", neo.APOC)
	v.Set("rdf.enabled", c.RDF.Enabled)
	v.Set("rdf.host", c.RDF.Host)
	v.Set("load.max_chunk_size", c.Load.MaxChunkSize)
	v.Set("load.delete_batch", c.Load.DeleteBatch)
	v.Set("load.max_depth", c.Load.MaxDepth)
	v.Set("logging.level", c.Logging.Level)
	v.Set("logging.file", c.Logging.File)
	v.Set("logging.json", c.Logging.JSON)
	v.Set("verbose", c.Verbose)
	v.Set("debug", c.Debug)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}
