package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"inviteregistry/crypto"
)

type Config struct {
	RPCAddress           string    `toml:"RPCAddress"`
	DataDir              string    `toml:"DataDir"`
	ChainID              uint64    `toml:"ChainID"`
	RegistryAddress      string    `toml:"RegistryAddress"`
	Environment          string    `toml:"Environment"`
	LogFile              string    `toml:"LogFile"`
	AllowMigrate         bool      `toml:"AllowMigrate"`
	RPCReadHeaderTimeout int       `toml:"RPCReadHeaderTimeout"`
	RPCWriteTimeout      int       `toml:"RPCWriteTimeout"`
	RateLimit            RateLimit `toml:"rate_limit"`
	Telemetry            Telemetry `toml:"telemetry"`
	Auth                 Auth      `toml:"auth"`
}

// Auth protects transaction submission with an HS256 bearer token. The
// secret itself is read from the environment variable named by SecretEnv.
type Auth struct {
	SecretEnv string `toml:"SecretEnv"`
	Issuer    string `toml:"Issuer"`
	Audience  string `toml:"Audience"`
}

// Secret resolves the submission token secret; empty disables auth.
func (a Auth) Secret() (string, error) {
	name := strings.TrimSpace(a.SecretEnv)
	if name == "" {
		return "", nil
	}
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return "", fmt.Errorf("auth: %s is not set", name)
	}
	return value, nil
}

// RateLimit bounds transaction submissions per client.
type RateLimit struct {
	RequestsPerSecond float64 `toml:"RequestsPerSecond"`
	Burst             int     `toml:"Burst"`
}

// Telemetry configures the OTLP exporters.
type Telemetry struct {
	Enabled  bool   `toml:"Enabled"`
	Endpoint string `toml:"Endpoint"`
	Insecure bool   `toml:"Insecure"`
	Headers  string `toml:"Headers"`
	Metrics  bool   `toml:"Metrics"`
	Traces   bool   `toml:"Traces"`

	// SampleRatio samples root spans; zero keeps every trace.
	SampleRatio float64 `toml:"SampleRatio"`
}

const (
	DefaultChainID              = 1337
	defaultRPCReadHeaderTimeout = 5
	defaultRPCWriteTimeout      = 15
)

// Load loads the configuration from the given path. A missing file is created
// with defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		return nil, fmt.Errorf("config file %s has unknown keys: %s", path, strings.Join(keys, ", "))
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.ChainID == 0 {
		cfg.ChainID = DefaultChainID
	}
	if strings.TrimSpace(cfg.RegistryAddress) == "" {
		cfg.RegistryAddress = DefaultRegistryAddress(cfg.ChainID).Hex()
	}
	if cfg.RPCReadHeaderTimeout <= 0 {
		cfg.RPCReadHeaderTimeout = defaultRPCReadHeaderTimeout
	}
	if cfg.RPCWriteTimeout <= 0 {
		cfg.RPCWriteTimeout = defaultRPCWriteTimeout
	}
	if cfg.RateLimit.RequestsPerSecond == 0 {
		cfg.RateLimit.RequestsPerSecond = 10
	}
	if cfg.RateLimit.Burst == 0 {
		cfg.RateLimit.Burst = 20
	}
}

// DefaultRegistryAddress derives the registry address the way a contract
// deployment would: from the zero deployer at nonce chainID.
func DefaultRegistryAddress(chainID uint64) crypto.Address {
	derived := ethcrypto.CreateAddress(common.Address{}, chainID)
	return crypto.MustNewAddress(crypto.InvitePrefix, derived.Bytes())
}

// Registry returns the decoded registry address.
func (c *Config) Registry() ([20]byte, error) {
	addr, err := crypto.DecodeAddress(c.RegistryAddress)
	if err != nil {
		return [20]byte{}, fmt.Errorf("RegistryAddress: %w", err)
	}
	return addr.Array(), nil
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := &Config{
		RPCAddress:  "127.0.0.1:8547",
		DataDir:     "./invite-data",
		ChainID:     DefaultChainID,
		Environment: "local",
	}
	applyDefaults(cfg)
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
