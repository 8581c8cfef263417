/*
Package config manages TOML or YAML config for SentServe services.

A missing file is created with defaults. A file that fails to decode is
recovered section by section, so one bad value does not discard the rest.
*/
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/bastiangx/sentserve/internal/utils"
	"github.com/charmbracelet/log"
)

// Config holds the entire config structure
type Config struct {
	Server   ServerConfig   `toml:"server" yaml:"server"`
	Trie     TrieConfig     `toml:"trie" yaml:"trie"`
	Corpus   CorpusConfig   `toml:"corpus" yaml:"corpus"`
	Store    StoreConfig    `toml:"store" yaml:"store"`
	Fallback FallbackConfig `toml:"fallback" yaml:"fallback"`
	CLI      CliConfig      `toml:"cli" yaml:"cli"`
}

// ServerConfig has server related options.
type ServerConfig struct {
	Addr         string        `toml:"addr" yaml:"addr"`
	MaxLimit     int           `toml:"max_limit" yaml:"max_limit"`
	DefaultLimit int           `toml:"default_limit" yaml:"default_limit"`
	MinPrefix    int           `toml:"min_prefix" yaml:"min_prefix"`
	MaxPrefix    int           `toml:"max_prefix" yaml:"max_prefix"`
	ReadTimeout  time.Duration `toml:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `toml:"write_timeout" yaml:"write_timeout"`
	MaxConns     int           `toml:"max_conns" yaml:"max_conns"`
}

// TrieConfig holds trie limits.
type TrieConfig struct {
	MaxSentenceLen int `toml:"max_sentence_len" yaml:"max_sentence_len"`
}

// CorpusConfig lists the corpus inputs.
type CorpusConfig struct {
	Paths          []string `toml:"paths" yaml:"paths"`
	SplitSentences bool     `toml:"split_sentences" yaml:"split_sentences"`
	SQLDriver      string   `toml:"sql_driver" yaml:"sql_driver"`
	SQLDSN         string   `toml:"sql_dsn" yaml:"sql_dsn"`
	SQLQuery       string   `toml:"sql_query" yaml:"sql_query"`
}

// StoreConfig selects where snapshots live.
type StoreConfig struct {
	Backend   string `toml:"backend" yaml:"backend"` // "file", "redis" or "none"
	Path      string `toml:"path" yaml:"path"`
	RedisAddr string `toml:"redis_addr" yaml:"redis_addr"`
	RedisKey  string `toml:"redis_key" yaml:"redis_key"`
	RedisDB   int    `toml:"redis_db" yaml:"redis_db"`
}

// FallbackConfig configures the generative fallback.
type FallbackConfig struct {
	Provider  string        `toml:"provider" yaml:"provider"` // "none", "ollama" or "genai"
	Model     string        `toml:"model" yaml:"model"`
	Endpoint  string        `toml:"endpoint" yaml:"endpoint"`
	APIKeyEnv string        `toml:"api_key_env" yaml:"api_key_env"`
	Timeout   time.Duration `toml:"timeout" yaml:"timeout"`
	MaxChars  int           `toml:"max_chars" yaml:"max_chars"`
	CacheSize int           `toml:"cache_size" yaml:"cache_size"`
}

// CliConfig holds cli interface options.
type CliConfig struct {
	DefaultLimit int `toml:"default_limit" yaml:"default_limit"`
}

// APIKey reads the fallback API key from the configured environment variable.
func (f FallbackConfig) APIKey() string {
	if f.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(f.APIKeyEnv)
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:         ":13000",
			MaxLimit:     64,
			DefaultLimit: 10,
			MinPrefix:    1,
			MaxPrefix:    120,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			MaxConns:     256,
		},
		Trie: TrieConfig{
			MaxSentenceLen: 0,
		},
		Corpus: CorpusConfig{
			Paths:          []string{"data"},
			SplitSentences: true,
			SQLQuery:       "SELECT text FROM messages",
		},
		Store: StoreConfig{
			Backend:  "file",
			Path:     "trie.msgpack",
			RedisKey: "sentserve:snapshot",
		},
		Fallback: FallbackConfig{
			Provider:  "none",
			APIKeyEnv: "GEMINI_API_KEY",
			Timeout:   3 * time.Second,
			MaxChars:  200,
			CacheSize: 1024,
		},
		CLI: CliConfig{
			DefaultLimit: 10,
		},
	}
}

// GetConfigDir returns the config directory with fallback priority:
// 1. ~/.config/sentserve
// 2. ~/Library/Application Support/sentserve (macOS)
// 3. Current executable dir
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Errorf("Failed to get home directory: %v", err)
		return utils.GetExecutableDir()
	}
	primaryPath := filepath.Join(homeDir, ".config", "sentserve")
	if result := utils.CheckDirStatus(primaryPath); result.Writable {
		return primaryPath, nil
	}
	macOSPath := filepath.Join(homeDir, "Library", "Application Support", "sentserve")
	if result := utils.CheckDirStatus(macOSPath); result.Writable {
		return macOSPath, nil
	}
	execDir, err := utils.GetExecutableDir()
	if err != nil {
		log.Errorf("Failed to get executable directory: %v", err)
		return "", err
	}
	return execDir, nil
}

// GetDefaultConfigPath returns the default path for config.toml
func GetDefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}

// LoadConfigWithPriority loads config with priority:
// 1. Custom path from --config flag
// 2. Default path: [UserConfigDir]/sentserve/config.toml
// 3. Builtin defaults
func LoadConfigWithPriority(customConfigPath string) (*Config, string, error) {
	if customConfigPath != "" {
		if _, statErr := os.Stat(customConfigPath); statErr == nil {
			config, err := LoadConfig(customConfigPath)
			if err == nil {
				log.Debugf("Loaded config from custom path: %s", customConfigPath)
				return config, customConfigPath, nil
			}
			log.Warnf("Failed to load custom config from %s: %v. Trying default path...", customConfigPath, err)
		} else {
			log.Warnf("Custom config file not found at %s: %v. Trying default path...", customConfigPath, statErr)
		}
	}
	defaultPath, err := GetDefaultConfigPath()
	if err != nil {
		log.Warnf("Failed to determine default config path: %v. Using built-in defaults...", err)
		return DefaultConfig(), "", nil
	}

	config, err := InitConfig(defaultPath)
	if err != nil {
		log.Warnf("Failed to load/create config at default path %s: %v. Using builtin defaults...", defaultPath, err)
		return DefaultConfig(), "", nil
	}
	log.Debugf("Loaded config from default path: %s", defaultPath)
	return config, defaultPath, nil
}

// InitConfig loads config from file or creates default if missing
func InitConfig(configPath string) (*Config, error) {
	configDir := filepath.Dir(configPath)
	if err := utils.EnsureDir(configDir); err != nil {
		log.Warnf("Failed to create config directory %s: %v. Using built-in defaults...", configDir, err)
		return DefaultConfig(), nil
	}

	if !utils.FileExists(configPath) {
		config := DefaultConfig()
		if err := SaveConfig(config, configPath); err != nil {
			log.Warnf("Failed to create default config file at %s: %v. Using built-in defaults...", configPath, err)
			return DefaultConfig(), nil
		}
		log.Debugf("Created default config file at: %s", configPath)
		return config, nil
	}
	return LoadConfig(configPath)
}

// LoadConfig loads from a TOML or YAML file. Values missing from the file keep
// their defaults.
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()
	if err := utils.LoadConfigFile(configPath, config); err != nil {
		return tryPartialParse(configPath)
	}
	config.normalize()
	return config, nil
}

// tryPartialParse salvages every section that still decodes
func tryPartialParse(configPath string) (*Config, error) {
	config := DefaultConfig()

	tempConfig, err := utils.ParseWithRecovery(configPath)
	if err != nil {
		log.Warnf("Could not parse any valid configuration from %s: %v. Using all defaults.", configPath, err)
		return config, nil
	}

	if section, ok := utils.ExtractSection(tempConfig, "server"); ok {
		extractServerConfig(section, &config.Server)
	}
	if section, ok := utils.ExtractSection(tempConfig, "trie"); ok {
		if val, ok := utils.ExtractInt(section, "max_sentence_len"); ok {
			config.Trie.MaxSentenceLen = val
		}
	}
	if section, ok := utils.ExtractSection(tempConfig, "corpus"); ok {
		extractCorpusConfig(section, &config.Corpus)
	}
	if section, ok := utils.ExtractSection(tempConfig, "store"); ok {
		extractStoreConfig(section, &config.Store)
	}
	if section, ok := utils.ExtractSection(tempConfig, "fallback"); ok {
		extractFallbackConfig(section, &config.Fallback)
	}
	if section, ok := utils.ExtractSection(tempConfig, "cli"); ok {
		if val, ok := utils.ExtractInt(section, "default_limit"); ok {
			config.CLI.DefaultLimit = val
		}
	}
	config.normalize()
	return config, nil
}

func extractServerConfig(data map[string]any, server *ServerConfig) {
	if val, ok := utils.ExtractString(data, "addr"); ok {
		server.Addr = val
	}
	if val, ok := utils.ExtractInt(data, "max_limit"); ok {
		server.MaxLimit = val
	}
	if val, ok := utils.ExtractInt(data, "default_limit"); ok {
		server.DefaultLimit = val
	}
	if val, ok := utils.ExtractInt(data, "min_prefix"); ok {
		server.MinPrefix = val
	}
	if val, ok := utils.ExtractInt(data, "max_prefix"); ok {
		server.MaxPrefix = val
	}
	if val, ok := utils.ExtractDuration(data, "read_timeout"); ok {
		server.ReadTimeout = val
	}
	if val, ok := utils.ExtractDuration(data, "write_timeout"); ok {
		server.WriteTimeout = val
	}
	if val, ok := utils.ExtractInt(data, "max_conns"); ok {
		server.MaxConns = val
	}
}

func extractCorpusConfig(data map[string]any, corpus *CorpusConfig) {
	if val, ok := utils.ExtractStrings(data, "paths"); ok {
		corpus.Paths = val
	}
	if val, ok := utils.ExtractBool(data, "split_sentences"); ok {
		corpus.SplitSentences = val
	}
	if val, ok := utils.ExtractString(data, "sql_driver"); ok {
		corpus.SQLDriver = val
	}
	if val, ok := utils.ExtractString(data, "sql_dsn"); ok {
		corpus.SQLDSN = val
	}
	if val, ok := utils.ExtractString(data, "sql_query"); ok {
		corpus.SQLQuery = val
	}
}

func extractStoreConfig(data map[string]any, st *StoreConfig) {
	if val, ok := utils.ExtractString(data, "backend"); ok {
		st.Backend = val
	}
	if val, ok := utils.ExtractString(data, "path"); ok {
		st.Path = val
	}
	if val, ok := utils.ExtractString(data, "redis_addr"); ok {
		st.RedisAddr = val
	}
	if val, ok := utils.ExtractString(data, "redis_key"); ok {
		st.RedisKey = val
	}
	if val, ok := utils.ExtractInt(data, "redis_db"); ok {
		st.RedisDB = val
	}
}

func extractFallbackConfig(data map[string]any, fb *FallbackConfig) {
	if val, ok := utils.ExtractString(data, "provider"); ok {
		fb.Provider = val
	}
	if val, ok := utils.ExtractString(data, "model"); ok {
		fb.Model = val
	}
	if val, ok := utils.ExtractString(data, "endpoint"); ok {
		fb.Endpoint = val
	}
	if val, ok := utils.ExtractString(data, "api_key_env"); ok {
		fb.APIKeyEnv = val
	}
	if val, ok := utils.ExtractDuration(data, "timeout"); ok {
		fb.Timeout = val
	}
	if val, ok := utils.ExtractInt(data, "max_chars"); ok {
		fb.MaxChars = val
	}
	if val, ok := utils.ExtractInt(data, "cache_size"); ok {
		fb.CacheSize = val
	}
}

// normalize replaces values that would break the server with defaults.
func (c *Config) normalize() {
	def := DefaultConfig()
	if c.Server.MaxLimit <= 0 {
		log.Warnf("Invalid server.max_limit %d, using %d", c.Server.MaxLimit, def.Server.MaxLimit)
		c.Server.MaxLimit = def.Server.MaxLimit
	}
	if c.Server.DefaultLimit <= 0 || c.Server.DefaultLimit > c.Server.MaxLimit {
		c.Server.DefaultLimit = min(def.Server.DefaultLimit, c.Server.MaxLimit)
	}
	if c.Server.MinPrefix < 1 {
		c.Server.MinPrefix = 1
	}
	if c.Server.MaxPrefix < c.Server.MinPrefix {
		log.Warnf("server.max_prefix %d is below min_prefix %d, using %d", c.Server.MaxPrefix, c.Server.MinPrefix, def.Server.MaxPrefix)
		c.Server.MaxPrefix = max(def.Server.MaxPrefix, c.Server.MinPrefix)
	}
	if c.Trie.MaxSentenceLen < 0 {
		c.Trie.MaxSentenceLen = def.Trie.MaxSentenceLen
	}
	if c.CLI.DefaultLimit <= 0 {
		c.CLI.DefaultLimit = def.CLI.DefaultLimit
	}
}

// ResolvePaths makes relative corpus and store paths relative to baseDir,
// usually the directory of the config file.
func (c *Config) ResolvePaths(baseDir string) {
	for i, p := range c.Corpus.Paths {
		c.Corpus.Paths[i] = utils.ResolvePath(baseDir, p)
	}
	c.Store.Path = utils.ResolvePath(baseDir, c.Store.Path)
}

// GetActiveConfigPath returns the absolute path of loaded config file
func GetActiveConfigPath(configPath string) string {
	if configPath == "" {
		if defaultPath, err := GetDefaultConfigPath(); err == nil {
			return defaultPath
		}
		return "unknown"
	}
	return utils.GetAbsolutePath(configPath)
}

// SaveConfig saves into a TOML or YAML file based on the extension
func SaveConfig(config *Config, configPath string) error {
	return utils.SaveConfigFile(config, configPath)
}

// Update changes the server limits and saves to file
func (c *Config) Update(configPath string, maxLimit, defaultLimit, minPrefix, maxPrefix *int) error {
	server := &c.Server
	if maxLimit != nil {
		server.MaxLimit = *maxLimit
	}
	if defaultLimit != nil {
		server.DefaultLimit = *defaultLimit
	}
	if minPrefix != nil {
		server.MinPrefix = *minPrefix
	}
	if maxPrefix != nil {
		server.MaxPrefix = *maxPrefix
	}
	c.normalize()
	return SaveConfig(c, configPath)
}
