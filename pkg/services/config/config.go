package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/de-tools/export-consolidator/pkg/models/domain"
	"github.com/de-tools/export-consolidator/pkg/services/engine"
	"github.com/spf13/viper"
)

const (
	EnvPrefix = "EXPORTS"

	DefaultFileName      = "OrderDetails.csv"
	DefaultPrivateKeyEnv = "SFTP_PRIVATE_KEY"
)

type Config struct {
	Connection  ConnectionConfig `mapstructure:"connection"`
	Engine      engine.Options   `mapstructure:"engine"`
	Output      OutputConfig     `mapstructure:"output"`
	Ledger      LedgerConfig     `mapstructure:"ledger"`
	OwnersFile  string           `mapstructure:"owners_file"`
	DefaultFile string           `mapstructure:"default_file"`
	Server      ServerConfig     `mapstructure:"server"`
}

type ConnectionConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	User string `mapstructure:"user"`
	// PrivateKeyPath takes precedence over PrivateKeyEnv.
	PrivateKeyPath string                     `mapstructure:"private_key_path"`
	PrivateKeyEnv  string                     `mapstructure:"private_key_env"`
	Passphrase     string                     `mapstructure:"passphrase"`
	KnownHosts     string                     `mapstructure:"known_hosts"`
	DialTimeout    time.Duration              `mapstructure:"dial_timeout"`
	Profiles       []domain.ConnectionProfile `mapstructure:"profiles"`
}

// Address is host:port, or just host when no port is configured.
func (c ConnectionConfig) Address() string {
	if c.Port == 0 {
		return c.Host
	}
	return c.Host + ":" + strconv.Itoa(c.Port)
}

type OutputConfig struct {
	Dir    string `mapstructure:"dir"`
	Bucket string `mapstructure:"bucket"`
	Prefix string `mapstructure:"prefix"`
	Region string `mapstructure:"region"`
}

type LedgerConfig struct {
	// Path of the DuckDB file. Empty disables the run ledger.
	Path string `mapstructure:"path"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("connection.host", "")
	v.SetDefault("connection.port", 22)
	v.SetDefault("connection.user", "")
	v.SetDefault("connection.private_key_path", "")
	v.SetDefault("connection.private_key_env", DefaultPrivateKeyEnv)
	v.SetDefault("connection.passphrase", "")
	v.SetDefault("connection.known_hosts", "")
	v.SetDefault("connection.dial_timeout", 30*time.Second)
	v.SetDefault("engine.operation_timeout", time.Minute)
	v.SetDefault("engine.concurrency", 1)
	v.SetDefault("engine.consolidation.date_column", "Date")
	v.SetDefault("engine.consolidation.owner_column", "Restaurant")
	v.SetDefault("engine.consolidation.include_owner", true)
	v.SetDefault("output.dir", "reports")
	v.SetDefault("output.bucket", "")
	v.SetDefault("output.prefix", "")
	v.SetDefault("output.region", "")
	v.SetDefault("ledger.path", "")
	v.SetDefault("owners_file", "owners.ini")
	v.SetDefault("default_file", DefaultFileName)
	v.SetDefault("server.addr", ":8080")
}

// LoadConfig reads the YAML file at path, when given, on top of the defaults.
// Every key can be overridden from the environment, e.g. EXPORTS_CONNECTION_HOST.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
