package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Provider names accepted by the rate limiter and AI call sites.
const (
	ProviderGemini     = "gemini"
	ProviderPerplexity = "perplexity"
	ProviderAnthropic  = "anthropic"
)

// Feature names identifying paid AI call sites. Each carries its own daily cap.
const (
	FeatureQuestionGeneration = "question_generation"
	FeatureSourceDiscovery    = "source_discovery"
	FeatureFindAssistance     = "find_assistance"
	FeatureAnswerSynthesis    = "answer_synthesis"
)

// Config holds all configuration for contributor-engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values. Secrets (API keys,
// database password) must only come from environment variables.
type Config struct {
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8090"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// AllowedOrigins is a comma-separated list of origins allowed to call
	// the API cross-origin (the marketing site and the admin dashboard).
	AllowedOriginsStr string   `yaml:"allowed_origins" env:"ALLOWED_ORIGINS" env-default:""`
	AllowedOrigins    []string `yaml:"-"`

	Auth      AuthConfig      `yaml:"auth"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	AI        AIConfig        `yaml:"ai"`
	Limits    LimitsConfig    `yaml:"limits"`
	Interview InterviewConfig `yaml:"interview"`
	Agreement AgreementConfig `yaml:"agreement"`
}

// AuthConfig holds authentication-related configuration.
type AuthConfig struct {
	// EnableVerification controls whether JWT signatures are validated.
	// Set to false for local development without an auth server.
	EnableVerification bool `yaml:"enable_verification" env:"AUTH_ENABLE_VERIFICATION" env-default:"true"`

	// JWKSEndpointsStr is a comma-separated list of issuer=jwks_url pairs.
	JWKSEndpointsStr string `yaml:"jwks_endpoints" env:"JWKS_ENDPOINTS" env-default:""`

	// JWKSEndpoints is the parsed map from JWKSEndpointsStr (not from config file).
	JWKSEndpoints map[string]string `yaml:"-"`

	// AdminEmailsStr is a comma-separated allowlist of reviewer emails
	// permitted to call /api/admin routes.
	AdminEmailsStr string   `yaml:"admin_emails" env:"ADMIN_EMAILS" env-default:""`
	AdminEmails    []string `yaml:"-"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"contributor"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"contributor_engine"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	MigrationsPath string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"migrations"`
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisConfig holds Redis configuration for rate-limit counters.
type RedisConfig struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port     int    `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"-" env:"REDIS_PASSWORD"` // Secret - not in YAML
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

// AIConfig holds the upstream AI provider endpoints and models.
type AIConfig struct {
	Gemini     GeminiConfig     `yaml:"gemini"`
	Perplexity PerplexityConfig `yaml:"perplexity"`
	Anthropic  AnthropicConfig  `yaml:"anthropic"`

	// CallTimeout bounds every upstream AI/search request.
	CallTimeout time.Duration `yaml:"call_timeout" env:"AI_CALL_TIMEOUT" env-default:"45s"`
}

// GeminiConfig points at Gemini's OpenAI-compatible endpoint. Used for
// question generation and non-source assistance suggestions.
type GeminiConfig struct {
	BaseURL string `yaml:"base_url" env:"GEMINI_BASE_URL" env-default:"https://generativelanguage.googleapis.com/v1beta/openai"`
	Model   string `yaml:"model" env:"GEMINI_MODEL" env-default:"gemini-2.0-flash"`
	APIKey  string `yaml:"-" env:"GEMINI_API_KEY"` // Secret - not in YAML
}

// IsAvailable returns true if the Gemini endpoint is configured.
func (c *GeminiConfig) IsAvailable() bool {
	return c.BaseURL != "" && c.Model != "" && c.APIKey != ""
}

// PerplexityConfig points at the Perplexity search/answer API, which speaks
// the OpenAI chat-completions protocol. Used for source discovery.
type PerplexityConfig struct {
	BaseURL string `yaml:"base_url" env:"PERPLEXITY_BASE_URL" env-default:"https://api.perplexity.ai"`
	Model   string `yaml:"model" env:"PERPLEXITY_MODEL" env-default:"sonar"`
	APIKey  string `yaml:"-" env:"PERPLEXITY_API_KEY"` // Secret - not in YAML
}

// IsAvailable returns true if the Perplexity endpoint is configured.
func (c *PerplexityConfig) IsAvailable() bool {
	return c.BaseURL != "" && c.Model != "" && c.APIKey != ""
}

// AnthropicConfig holds the Anthropic settings used for answer synthesis,
// which deliberately runs on a different provider than source discovery.
type AnthropicConfig struct {
	Model  string `yaml:"model" env:"ANTHROPIC_MODEL" env-default:"claude-3-5-haiku-latest"`
	APIKey string `yaml:"-" env:"ANTHROPIC_API_KEY"` // Secret - not in YAML
}

// IsAvailable returns true if Anthropic is configured.
func (c *AnthropicConfig) IsAvailable() bool {
	return c.Model != "" && c.APIKey != ""
}

// LimitsConfig holds per-feature daily request caps. Counters are keyed per
// (user, provider, feature, UTC day); a zero value falls back to DefaultDaily.
type LimitsConfig struct {
	DefaultDaily       int `yaml:"default_daily" env:"LIMIT_DEFAULT_DAILY" env-default:"50"`
	QuestionGeneration int `yaml:"question_generation" env:"LIMIT_QUESTION_GENERATION" env-default:"40"`
	SourceDiscovery    int `yaml:"source_discovery" env:"LIMIT_SOURCE_DISCOVERY" env-default:"10"`
	FindAssistance     int `yaml:"find_assistance" env:"LIMIT_FIND_ASSISTANCE" env-default:"30"`
	AnswerSynthesis    int `yaml:"answer_synthesis" env:"LIMIT_ANSWER_SYNTHESIS" env-default:"20"`
}

// DailyLimit returns the daily cap for a feature.
func (c *LimitsConfig) DailyLimit(feature string) int {
	var limit int
	switch feature {
	case FeatureQuestionGeneration:
		limit = c.QuestionGeneration
	case FeatureSourceDiscovery:
		limit = c.SourceDiscovery
	case FeatureFindAssistance:
		limit = c.FindAssistance
	case FeatureAnswerSynthesis:
		limit = c.AnswerSynthesis
	}
	if limit <= 0 {
		limit = c.DefaultDaily
	}
	return limit
}

// InterviewConfig holds interview engine knobs.
type InterviewConfig struct {
	// DefaultMaxQuestions is used when a request does not set maxQuestions.
	DefaultMaxQuestions int `yaml:"default_max_questions" env:"INTERVIEW_DEFAULT_MAX_QUESTIONS" env-default:"10"`
	// AbsoluteMaxQuestions caps client-supplied maxQuestions so one interview
	// cannot turn into an unbounded AI-call loop.
	AbsoluteMaxQuestions int `yaml:"absolute_max_questions" env:"INTERVIEW_ABSOLUTE_MAX_QUESTIONS" env-default:"20"`
	// MaxQuestionsPerBatch caps how many questions one engine call may return.
	MaxQuestionsPerBatch int `yaml:"max_questions_per_batch" env:"INTERVIEW_MAX_QUESTIONS_PER_BATCH" env-default:"3"`
	// AssistanceCacheTTL is how long identical assistance lookups are served
	// from the in-process cache.
	AssistanceCacheTTL time.Duration `yaml:"assistance_cache_ttl" env:"INTERVIEW_ASSISTANCE_CACHE_TTL" env-default:"1h"`
}

// AgreementConfig holds contributor-agreement signing policy knobs.
type AgreementConfig struct {
	// MaxDistinctVersions bounds how many distinct agreement versions one
	// contributor may sign.
	MaxDistinctVersions int `yaml:"max_distinct_versions" env:"AGREEMENT_MAX_DISTINCT_VERSIONS" env-default:"2"`
	// CurrentVersion is the agreement version presented to new contributors.
	CurrentVersion string `yaml:"current_version" env:"AGREEMENT_CURRENT_VERSION" env-default:"1.1"`
	// ViewBaseURL is where signed agreement PDFs are served from.
	ViewBaseURL string `yaml:"view_base_url" env:"AGREEMENT_VIEW_BASE_URL" env-default:""`
}

// Load reads configuration from config.yaml with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		return nil, fmt.Errorf("failed to read config.yaml: %w", err)
	}

	cfg.parseComplexFields()

	return cfg, nil
}

// parseComplexFields handles fields that need post-processing after loading.
func (c *Config) parseComplexFields() {
	c.Auth.JWKSEndpoints = parseJWKSEndpoints(c.Auth.JWKSEndpointsStr)
	c.Auth.AdminEmails = splitAndTrim(c.Auth.AdminEmailsStr)
	c.AllowedOrigins = splitAndTrim(c.AllowedOriginsStr)
}

// parseJWKSEndpoints parses the JWKS endpoints string into a map.
// Format: "issuer1=url1,issuer2=url2"
func parseJWKSEndpoints(value string) map[string]string {
	endpoints := make(map[string]string)
	if value == "" {
		return endpoints
	}

	pairs := strings.Split(value, ",")
	for _, pair := range pairs {
		parts := strings.Split(pair, "=")
		if len(parts) == 2 {
			endpoints[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
		}
	}
	return endpoints
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
