// Package config holds the client configuration: node endpoint, network
// selection, data directory, and logging. Values come from defaults, an
// optional key = value config file, and MESH_* environment variables, in
// that order.
package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
)

// Config holds all client settings.
type Config struct {
	// DataDir is where the wallet database and vault file live.
	DataDir string `envconfig:"DATA_DIR"`

	// NodeURL is the JSON-RPC endpoint of the node.
	NodeURL string `envconfig:"NODE_URL"`

	// NodeUser and NodePass are optional basic-auth credentials for the node.
	NodeUser string `envconfig:"NODE_USER"`
	NodePass string `envconfig:"NODE_PASS"`

	// Network selects the ledger network: "mainnet", "testnet", or "localnet".
	Network string `envconfig:"NETWORK"`

	// LogLevel is one of "debug", "info", "warn", "error".
	LogLevel string `envconfig:"LOG_LEVEL"`

	// LogFile, when set, receives log output instead of stderr.
	LogFile string `envconfig:"LOG_FILE"`
}

// networkNodeURLs are the default node endpoints per network. Mainnet has no
// default on purpose: pointing real funds at a node must be an explicit
// decision.
var networkNodeURLs = map[string]string{
	"testnet":  "https://rpc.testnet.meshledger.net",
	"localnet": "http://127.0.0.1:14265",
}

// DefaultConfig returns the default configuration: testnet, info logging,
// and a data directory under the user's home.
func DefaultConfig() Config {
	return Config{
		DataDir:  DefaultDataDir(),
		NodeURL:  networkNodeURLs["testnet"],
		Network:  "testnet",
		LogLevel: "info",
	}
}

// DefaultDataDir returns the default data directory, ~/.mesh.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".mesh"
	}
	return filepath.Join(home, ".mesh")
}

// ConfigPath returns the path of the config file inside dataDir.
func ConfigPath(dataDir string) string {
	return filepath.Join(dataDir, "config")
}

// FromEnv builds a configuration from defaults, the config file in the data
// directory if one exists, and MESH_* environment variables. A network set
// without an explicit node URL picks the network's default endpoint.
func FromEnv() (Config, error) {
	cfg := DefaultConfig()

	// MESH_DATA_DIR decides which config file to read, so resolve it first.
	if dir := os.Getenv("MESH_DATA_DIR"); dir != "" {
		cfg.DataDir = dir
	}
	if loaded, err := LoadConfig(ConfigPath(cfg.DataDir)); err == nil {
		cfg = loaded
	}

	explicitURL := cfg.NodeURL != DefaultConfig().NodeURL || os.Getenv("MESH_NODE_URL") != ""
	if err := envconfig.Process("mesh", &cfg); err != nil {
		return Config{}, fmt.Errorf("config: process environment: %w", err)
	}
	if !explicitURL {
		if url, ok := networkNodeURLs[cfg.Network]; ok {
			cfg.NodeURL = url
		}
	}

	if err := ValidateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads a key = value config file. Unknown keys are ignored so
// older clients tolerate newer files; unset keys keep their defaults.
func LoadConfig(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return Config{}, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	cfg := DefaultConfig()
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, err := parseKeyValue(line)
		if err != nil {
			return Config{}, fmt.Errorf("%w: line %d", ErrInvalidConfigLine, lineNo)
		}
		switch key {
		case "datadir":
			cfg.DataDir = value
		case "nodeurl":
			cfg.NodeURL = value
		case "nodeuser":
			cfg.NodeUser = value
		case "nodepass":
			cfg.NodePass = value
		case "network":
			cfg.Network = value
		case "loglevel":
			cfg.LogLevel = value
		case "logfile":
			cfg.LogFile = value
		}
	}
	if err := scanner.Err(); err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	return cfg, nil
}

// parseKeyValue splits a "key = value" line on the first '='.
func parseKeyValue(line string) (key, value string, err error) {
	idx := strings.Index(line, "=")
	if idx < 0 {
		return "", "", fmt.Errorf("no '=' separator")
	}
	key = strings.ToLower(strings.TrimSpace(line[:idx]))
	value = strings.TrimSpace(line[idx+1:])
	if key == "" {
		return "", "", fmt.Errorf("empty key")
	}
	return key, value, nil
}

// SaveConfig writes the configuration as a key = value file, creating parent
// directories as needed.
func SaveConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}

	entries := map[string]string{
		"datadir":  cfg.DataDir,
		"nodeurl":  cfg.NodeURL,
		"nodeuser": cfg.NodeUser,
		"nodepass": cfg.NodePass,
		"network":  cfg.Network,
		"loglevel": cfg.LogLevel,
		"logfile":  cfg.LogFile,
	}
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("# Mesh client configuration\n")
	for _, k := range keys {
		fmt.Fprintf(&b, "%s = %s\n", k, entries[k])
	}
	if err := os.WriteFile(path, []byte(b.String()), 0600); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// InitLogging applies the configured log level and destination to the global
// logger.
func InitLogging(cfg Config) error {
	level, err := logrus.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		return ErrInvalidLogLevel
	}
	logrus.SetLevel(level)
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return fmt.Errorf("config: open log file: %w", err)
		}
		logrus.SetOutput(f)
	}
	return nil
}
