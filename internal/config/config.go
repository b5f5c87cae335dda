package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the argrank configuration.
type Config struct {
	HTTP         HTTPConfig         `yaml:"http"`
	Auth         AuthConfig         `yaml:"auth"`
	Database     DatabaseConfig     `yaml:"database"`
	Storage      StorageConfig      `yaml:"storage"`
	Index        IndexConfig        `yaml:"index"`
	Embedding    EmbeddingConfig    `yaml:"embedding"`
	CrossEncoder CrossEncoderConfig `yaml:"crossencoder"`
	Retrieval    RetrievalConfig    `yaml:"retrieval"`
	Passages     PassagesConfig     `yaml:"passages"`
	Fusion       FusionConfig       `yaml:"fusion"`
	PRF          PRFConfig          `yaml:"prf"`
	Rerank       RerankConfig       `yaml:"rerank"`
	Tracker      TrackerConfig      `yaml:"tracker"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds search store connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // redis
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// StorageConfig holds key layout settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// IndexConfig names the prebuilt search indexes and their fields.
type IndexConfig struct {
	Lexical          string `yaml:"lexical"`
	LexicalKeyPrefix string `yaml:"lexical_key_prefix"`
	IDField          string `yaml:"id_field"`
	Passages         string `yaml:"passages"`
	PassageKeyPrefix string `yaml:"passage_key_prefix"`
	ContentField     string `yaml:"content_field"`
	VectorField      string `yaml:"vector_field"`
}

// ProviderConfig holds embedding provider credentials.
type ProviderConfig struct {
	Name    string `yaml:"name"`
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// EmbeddingConfig holds the query and passage encoder settings.
type EmbeddingConfig struct {
	Provider   ProviderConfig `yaml:"provider"`
	Model      string         `yaml:"model"`
	Dimensions int            `yaml:"dimensions"`
	Cache      bool           `yaml:"cache"`
	// CacheTTLSec expires cached vectors. 0 keeps them until evicted.
	CacheTTLSec int `yaml:"cache_ttl_sec"`
}

// CrossEncoderConfig holds the reranking model endpoint.
type CrossEncoderConfig struct {
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
	Model      string `yaml:"model"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// RetrievalConfig holds first-stage retrieval depths. K1 and B document the
// BM25 parameters the lexical index was tuned with.
type RetrievalConfig struct {
	LexicalK  int     `yaml:"lexical_k"`
	K1        float64 `yaml:"k1"`
	B         float64 `yaml:"b"`
	SemanticK int     `yaml:"semantic_k"`
}

// PassagesConfig locates the passage lookup tables.
type PassagesConfig struct {
	LookupPath string `yaml:"lookup_path"`
	Grouping   string `yaml:"grouping"` // document | passage
}

// FusionConfig holds interpolation settings.
type FusionConfig struct {
	Alpha float64 `yaml:"alpha"`
}

// PRFConfig holds pseudo-relevance feedback settings.
type PRFConfig struct {
	RelDocs int `yaml:"rel_docs"`
	K       int `yaml:"k"`
	Cutoff  int `yaml:"cutoff"`
}

// RerankConfig holds cross-encoder reranking settings.
type RerankConfig struct {
	TopK int `yaml:"top_k"`
}

// TrackerConfig holds live rank tracker settings.
type TrackerConfig struct {
	Lookback  int    `yaml:"lookback"`
	KNN       int    `yaml:"knn"`
	SearchK   int    `yaml:"search_k"`
	Weighting string `yaml:"weighting"` // uniform | discount
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads, expands, defaults and validates the configuration at path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "redis"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "argrank:"
	}

	if c.Index.Lexical == "" {
		c.Index.Lexical = "idx:corpus"
	}
	if c.Index.IDField == "" {
		c.Index.IDField = "docno"
	}
	if c.Index.Passages == "" {
		c.Index.Passages = "idx:passages"
	}
	if c.Index.PassageKeyPrefix == "" {
		c.Index.PassageKeyPrefix = "passage:"
	}
	if c.Index.ContentField == "" {
		c.Index.ContentField = "contents"
	}
	if c.Index.VectorField == "" {
		c.Index.VectorField = "vector"
	}

	if c.Embedding.Provider.Name == "" {
		c.Embedding.Provider.Name = "openai"
	}
	if c.CrossEncoder.TimeoutSec <= 0 {
		c.CrossEncoder.TimeoutSec = 30
	}

	if c.Retrieval.LexicalK <= 0 {
		c.Retrieval.LexicalK = 1000
	}
	if c.Retrieval.K1 == 0 {
		c.Retrieval.K1 = 3.2
	}
	if c.Retrieval.B == 0 {
		c.Retrieval.B = 0.15
	}
	if c.Retrieval.SemanticK <= 0 {
		c.Retrieval.SemanticK = 100
	}
	if c.Passages.Grouping == "" {
		c.Passages.Grouping = "document"
	}

	if c.PRF.RelDocs == 0 {
		c.PRF.RelDocs = 5
	}
	if c.PRF.K == 0 {
		c.PRF.K = 20
	}
	if c.Rerank.TopK == 0 {
		c.Rerank.TopK = 20
	}

	if c.Tracker.Lookback == 0 {
		c.Tracker.Lookback = 5
	}
	if c.Tracker.KNN == 0 {
		c.Tracker.KNN = 100
	}
	if c.Tracker.SearchK == 0 {
		c.Tracker.SearchK = 100
	}
	if c.Tracker.Weighting == "" {
		c.Tracker.Weighting = "uniform"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Database.Driver != "redis" {
		return fmt.Errorf("database.driver must be \"redis\", got %q", c.Database.Driver)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}

	switch c.Passages.Grouping {
	case "document", "passage":
	default:
		return fmt.Errorf("passages.grouping must be \"document\" or \"passage\", got %q", c.Passages.Grouping)
	}
	switch c.Tracker.Weighting {
	case "uniform", "discount":
	default:
		return fmt.Errorf("tracker.weighting must be \"uniform\" or \"discount\", got %q", c.Tracker.Weighting)
	}

	positive := []struct {
		name string
		v    int
	}{
		{"retrieval.lexical_k", c.Retrieval.LexicalK},
		{"retrieval.semantic_k", c.Retrieval.SemanticK},
		{"prf.rel_docs", c.PRF.RelDocs},
		{"prf.k", c.PRF.K},
		{"rerank.top_k", c.Rerank.TopK},
		{"tracker.lookback", c.Tracker.Lookback},
		{"tracker.knn", c.Tracker.KNN},
		{"tracker.search_k", c.Tracker.SearchK},
	}
	for _, p := range positive {
		if p.v <= 0 {
			return fmt.Errorf("%s must be positive, got %d", p.name, p.v)
		}
	}
	if c.Embedding.CacheTTLSec < 0 {
		return fmt.Errorf("embedding.cache_ttl_sec must not be negative, got %d", c.Embedding.CacheTTLSec)
	}
	if c.PRF.Cutoff < 0 {
		return fmt.Errorf("prf.cutoff must not be negative, got %d", c.PRF.Cutoff)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
