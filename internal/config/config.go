package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config application configuration structure
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	NATS     NATSConfig     `yaml:"nats"`
	Vesting  VestingConfig  `yaml:"vesting"`
	Attester AttesterConfig `yaml:"attester"`
	Auth     AuthConfig     `yaml:"auth"`
	Admin    AdminConfig    `yaml:"admin"`
	CORS     CORSConfig     `yaml:"cors"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig server configuration
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig Database configuration. An empty DSN disables the event journal.
type DatabaseConfig struct {
	DSN    string `yaml:"dsn"`
	Driver string `yaml:"driver"`
}

// NATSConfig NATS message server configuration. An empty URL disables publishing.
type NATSConfig struct {
	URL           string `yaml:"url"`
	Timeout       int    `yaml:"timeout"`
	ReconnectWait int    `yaml:"reconnect_wait"`
	MaxReconnects int    `yaml:"max_reconnects"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

// VestingConfig describes the vesting contract instance served by this process
type VestingConfig struct {
	ContractAddress  string        `yaml:"contractAddress"`
	Owner            string        `yaml:"owner"`
	AuthorityAddress string        `yaml:"authorityAddress"` // Trusted attestation key; defaults to the attester address
	VerifierID       uint64        `yaml:"verifierId"`       // Attestation entry carrying the vested amount
	DevMode          bool          `yaml:"devMode"`          // Enables faucet/approve endpoints on in-memory tokens
	Tokens           []TokenConfig `yaml:"tokens"`
}

// TokenConfig one in-memory ERC20 token
type TokenConfig struct {
	Address string `yaml:"address"`
	Symbol  string `yaml:"symbol"`
}

// AttesterConfig off-chain attester that signs authorization payloads
type AttesterConfig struct {
	Enabled    bool   `yaml:"enabled"`
	PrivateKey string `yaml:"privateKey"` // hex, with or without 0x prefix
}

// AuthConfig wallet login configuration
type AuthConfig struct {
	JWTSecret     string `yaml:"jwtSecret"`
	TokenTTLHours int    `yaml:"tokenTtlHours"`
	NonceTTL      int    `yaml:"nonceTtl"` // seconds a login nonce stays valid
}

// AdminConfig Admin API access control configuration
type AdminConfig struct {
	AllowedIPs   []string `yaml:"allowedIPs"`   // List of allowed IP addresses or CIDR ranges
	Username     string   `yaml:"username"`     // Admin login name
	PasswordHash string   `yaml:"passwordHash"` // bcrypt hash of the admin password
	TOTPSecret   string   `yaml:"totpSecret"`   // base32 TOTP secret
	JWTSecret    string   `yaml:"jwtSecret"`
}

// CORSConfig CORS configuration
type CORSConfig struct {
	AllowedOrigins   []string `yaml:"allowedOrigins"`
	AllowCredentials bool     `yaml:"allowCredentials"`
	MaxAge           int      `yaml:"maxAge"`
}

// LogConfig logrus configuration
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

var AppConfig *Config

// LoadConfig Load configuration file
func LoadConfig(configPath string) error {
	config, err := Load(configPath)
	if err != nil {
		return err
	}
	AppConfig = config
	return nil
}

// Load reads, overrides and validates a configuration without touching AppConfig
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
		if _, err := os.Stat("config.local.yaml"); err == nil {
			configPath = "config.local.yaml"
			log.Printf("🔧 Using local configuration file: config.local.yaml")
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	fmt.Printf("✅ [%s] Loading configuration from config file: %s\n", time.Now().Format("2006-01-02 15:04:05"), configPath)

	// .env never overrides variables already set in the environment
	if err := godotenv.Load(); err == nil {
		log.Printf("🔧 Loaded environment overrides from .env")
	}
	overrideFromEnv(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	fmt.Printf("📋 [Config] Vesting contract %s, verifier id %d, %d token(s), dev mode %v\n",
		config.Vesting.ContractAddress, config.Vesting.VerifierID, len(config.Vesting.Tokens), config.Vesting.DevMode)
	if config.Database.DSN == "" {
		fmt.Printf("📋 [Config] Database: not configured (event journal disabled)\n")
	}
	if config.NATS.URL == "" {
		fmt.Printf("📋 [Config] NATS: not configured (event publishing disabled)\n")
	}
	if len(config.Admin.AllowedIPs) > 0 {
		fmt.Printf("📋 [Config] Admin IP whitelist loaded: %d IPs/CIDRs configured\n", len(config.Admin.AllowedIPs))
	}
	return config, nil
}

// Default returns the values used for keys missing from the file
func Default() *Config {
	return &Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8080},
		Database: DatabaseConfig{
			Driver: "postgres",
		},
		NATS: NATSConfig{
			Timeout:       10,
			ReconnectWait: 2,
			MaxReconnects: 10,
			SubjectPrefix: "vesting.events",
		},
		Vesting: VestingConfig{VerifierID: 1},
		Auth:    AuthConfig{TokenTTLHours: 24, NonceTTL: 300},
		Admin:   AdminConfig{Username: "admin"},
		Log:     LogConfig{Level: "info", Format: "text"},
	}
}

// overrideFromEnv Override configuration from environment variables
func overrideFromEnv(config *Config) {
	if dsn := os.Getenv("DATABASE_DSN"); dsn != "" {
		config.Database.DSN = dsn
	}

	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if natsURL := os.Getenv("NATS_URL"); natsURL != "" {
		config.NATS.URL = natsURL
	}
	if natsTimeout := os.Getenv("NATS_TIMEOUT"); natsTimeout != "" {
		if t, err := strconv.Atoi(natsTimeout); err == nil {
			config.NATS.Timeout = t
		}
	}

	if addr := os.Getenv("VESTING_CONTRACT_ADDRESS"); addr != "" {
		config.Vesting.ContractAddress = addr
	}
	if owner := os.Getenv("VESTING_OWNER"); owner != "" {
		config.Vesting.Owner = owner
	}
	if authority := os.Getenv("AUTHORITY_ADDRESS"); authority != "" {
		config.Vesting.AuthorityAddress = authority
	}
	if id := os.Getenv("VERIFIER_ID"); id != "" {
		if v, err := strconv.ParseUint(id, 10, 64); err == nil {
			config.Vesting.VerifierID = v
		}
	}
	if devMode := os.Getenv("VESTING_DEV_MODE"); devMode != "" {
		config.Vesting.DevMode = devMode == "true"
	}

	if key := os.Getenv("ATTESTER_PRIVATE_KEY"); key != "" {
		config.Attester.PrivateKey = key
		config.Attester.Enabled = true
		fmt.Printf("✅ [Config] Loaded attester key from environment variable: ATTESTER_PRIVATE_KEY\n")
	}

	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		config.Auth.JWTSecret = secret
	}

	if secret := os.Getenv("ADMIN_JWT_SECRET"); secret != "" {
		config.Admin.JWTSecret = secret
	}
	if hash := os.Getenv("ADMIN_PASSWORD_HASH"); hash != "" {
		config.Admin.PasswordHash = hash
	}
	if secret := os.Getenv("ADMIN_TOTP_SECRET"); secret != "" {
		config.Admin.TOTPSecret = secret
	}

	if corsOrigins := os.Getenv("CORS_ALLOWED_ORIGINS"); corsOrigins != "" {
		origins := strings.Split(corsOrigins, ",")
		config.CORS.AllowedOrigins = make([]string, 0, len(origins))
		for _, origin := range origins {
			if trimmed := strings.TrimSpace(origin); trimmed != "" {
				config.CORS.AllowedOrigins = append(config.CORS.AllowedOrigins, trimmed)
			}
		}
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Log.Level = level
	}
}

// Validate checks the fields the server cannot start without
func (c *Config) Validate() error {
	var errs []error

	if !isAddress(c.Vesting.ContractAddress) {
		errs = append(errs, fmt.Errorf("vesting.contractAddress %q is not a valid non-zero address", c.Vesting.ContractAddress))
	}
	if !isAddress(c.Vesting.Owner) {
		errs = append(errs, fmt.Errorf("vesting.owner %q is not a valid non-zero address", c.Vesting.Owner))
	}
	if c.Vesting.AuthorityAddress != "" && !isAddress(c.Vesting.AuthorityAddress) {
		errs = append(errs, fmt.Errorf("vesting.authorityAddress %q is not a valid non-zero address", c.Vesting.AuthorityAddress))
	}
	if c.Vesting.AuthorityAddress == "" && c.Attester.PrivateKey == "" {
		errs = append(errs, errors.New("either vesting.authorityAddress or attester.privateKey is required"))
	}
	if c.Attester.Enabled && c.Attester.PrivateKey == "" {
		errs = append(errs, errors.New("attester.enabled requires attester.privateKey"))
	}
	seen := make(map[string]struct{}, len(c.Vesting.Tokens))
	for i, token := range c.Vesting.Tokens {
		if !isAddress(token.Address) {
			errs = append(errs, fmt.Errorf("vesting.tokens[%d].address %q is not a valid non-zero address", i, token.Address))
			continue
		}
		key := strings.ToLower(token.Address)
		if _, dup := seen[key]; dup {
			errs = append(errs, fmt.Errorf("vesting.tokens[%d].address %s is duplicated", i, token.Address))
		}
		seen[key] = struct{}{}
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwtSecret (JWT_SECRET) is required"))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d is out of range", c.Server.Port))
	}

	return errors.Join(errs...)
}

// AdminEnabled reports whether admin login is fully configured
func (c *Config) AdminEnabled() bool {
	return c.Admin.PasswordHash != "" && c.Admin.TOTPSecret != "" && c.Admin.JWTSecret != ""
}

// ListenAddr returns host:port for the HTTP server
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func isAddress(s string) bool {
	return common.IsHexAddress(s) && common.HexToAddress(s) != (common.Address{})
}
