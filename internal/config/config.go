package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Lark      LarkConfig      `mapstructure:"lark"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Documents DocumentsConfig `mapstructure:"documents"`
	Worker    WorkerConfig    `mapstructure:"worker"`
	Chat      ChatConfig      `mapstructure:"chat"`
	Logger    LoggerConfig    `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	AllowedOrigins    []string      `mapstructure:"allowed_origins"`
	ChatRatePerSecond float64       `mapstructure:"chat_rate_per_second"`
	ChatBurst         int           `mapstructure:"chat_burst"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	BusyTimeout     time.Duration `mapstructure:"busy_timeout"`
}

// OpenAIConfig holds OpenAI API configuration. An empty APIKey disables
// chat and embeddings.
type OpenAIConfig struct {
	APIKey         string        `mapstructure:"api_key"`
	BaseURL        string        `mapstructure:"base_url"`
	Model          string        `mapstructure:"model"`
	EmbeddingModel string        `mapstructure:"embedding_model"`
	PromptsPath    string        `mapstructure:"prompts_path"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

// Enabled reports whether an API key is configured
func (c OpenAIConfig) Enabled() bool {
	return c.APIKey != ""
}

// LarkConfig holds Lark notification configuration. Leaving it empty
// disables team-chat notifications.
type LarkConfig struct {
	AppID         string `mapstructure:"app_id"`
	AppSecret     string `mapstructure:"app_secret"`
	ReceiveIDType string `mapstructure:"receive_id_type"`
	ReceiveID     string `mapstructure:"receive_id"`
}

// Enabled reports whether notifications can be sent
func (c LarkConfig) Enabled() bool {
	return c.AppID != "" && c.AppSecret != "" && c.ReceiveID != ""
}

// StorageConfig holds file storage configuration
type StorageConfig struct {
	DocumentsDir string `mapstructure:"documents_dir"`
}

// DocumentsConfig holds upload limits and indexing settings
type DocumentsConfig struct {
	MaxSizeBytes int64    `mapstructure:"max_size_bytes"`
	AllowedTypes []string `mapstructure:"allowed_types"`
	MaxPDFPages  int      `mapstructure:"max_pdf_pages"`
	ChunkSize    int      `mapstructure:"chunk_size"`
	ChunkOverlap int      `mapstructure:"chunk_overlap"`
}

// WorkerConfig holds background worker configuration
type WorkerConfig struct {
	IndexPollInterval   time.Duration `mapstructure:"index_poll_interval"`
	IndexBatchSize      int           `mapstructure:"index_batch_size"`
	IndexTimeout        time.Duration `mapstructure:"index_timeout"`
	ExpiryPollInterval  time.Duration `mapstructure:"expiry_poll_interval"`
	ExpiryBatchSize     int           `mapstructure:"expiry_batch_size"`
	ExpiryReminderAhead time.Duration `mapstructure:"expiry_reminder_ahead"`
}

// ChatConfig holds retrieval and history limits for the permit assistant
type ChatConfig struct {
	TopK             int `mapstructure:"top_k"`
	HistoryLimit     int `mapstructure:"history_limit"`
	CandidateLimit   int `mapstructure:"candidate_limit"`
	MaxMessageLength int `mapstructure:"max_message_length"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// DefaultEnvFile is read before the environment is bound, when present
const DefaultEnvFile = ".env"

// Load reads configuration from configPath, then from environment
// variables. envFiles (default .env) are loaded into the environment first
// when they exist; variables already set are not overridden.
func Load(configPath string, envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{DefaultEnvFile}
	}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := gotenv.Load(f); err != nil {
			return nil, fmt.Errorf("failed to load env file %s: %w", f, err)
		}
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("PERMITS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("server.chat_rate_per_second", 1.0)
	v.SetDefault("server.chat_burst", 5)

	v.SetDefault("database.path", "data/permits.db")
	v.SetDefault("database.max_open_conns", 1)
	v.SetDefault("database.max_idle_conns", 1)
	v.SetDefault("database.conn_max_lifetime", 0)
	v.SetDefault("database.busy_timeout", 5*time.Second)

	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.embedding_model", "text-embedding-3-small")
	v.SetDefault("openai.prompts_path", "configs/prompts.yaml")
	v.SetDefault("openai.timeout", 60*time.Second)

	v.SetDefault("lark.receive_id_type", "chat_id")

	v.SetDefault("storage.documents_dir", "data/documents")

	v.SetDefault("documents.max_size_bytes", 25<<20)
	v.SetDefault("documents.max_pdf_pages", 200)
	v.SetDefault("documents.chunk_size", 200)
	v.SetDefault("documents.chunk_overlap", 40)

	v.SetDefault("worker.index_poll_interval", 15*time.Second)
	v.SetDefault("worker.index_batch_size", 5)
	v.SetDefault("worker.index_timeout", 2*time.Minute)
	v.SetDefault("worker.expiry_poll_interval", time.Hour)
	v.SetDefault("worker.expiry_batch_size", 50)
	v.SetDefault("worker.expiry_reminder_ahead", 30*24*time.Hour)

	v.SetDefault("chat.top_k", 4)
	v.SetDefault("chat.history_limit", 10)
	v.SetDefault("chat.candidate_limit", 200)
	v.SetDefault("chat.max_message_length", 4000)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")
}

// bindEnvVars binds the conventional names of credentials
func bindEnvVars(v *viper.Viper) {
	_ = v.BindEnv("openai.api_key", "PERMITS_OPENAI_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("openai.base_url", "PERMITS_OPENAI_BASE_URL", "OPENAI_BASE_URL")
	_ = v.BindEnv("lark.app_id", "PERMITS_LARK_APP_ID", "LARK_APP_ID")
	_ = v.BindEnv("lark.app_secret", "PERMITS_LARK_APP_SECRET", "LARK_APP_SECRET")
	_ = v.BindEnv("lark.receive_id", "PERMITS_LARK_RECEIVE_ID", "LARK_RECEIVE_ID")
}

// Validate validates the configuration. OpenAI and Lark are optional; a
// half-configured Lark section is rejected so notifications do not silently
// go missing.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535"))
	}
	if c.Database.Path == "" {
		errs = append(errs, fmt.Errorf("database.path is required"))
	}
	if c.Storage.DocumentsDir == "" {
		errs = append(errs, fmt.Errorf("storage.documents_dir is required"))
	}
	if c.Documents.MaxSizeBytes <= 0 {
		errs = append(errs, fmt.Errorf("documents.max_size_bytes must be positive"))
	}
	if c.Documents.ChunkOverlap >= c.Documents.ChunkSize {
		errs = append(errs, fmt.Errorf("documents.chunk_overlap must be smaller than documents.chunk_size"))
	}
	if c.Worker.IndexPollInterval <= 0 || c.Worker.ExpiryPollInterval <= 0 {
		errs = append(errs, fmt.Errorf("worker poll intervals must be positive"))
	}
	if c.Worker.ExpiryReminderAhead <= 0 {
		errs = append(errs, fmt.Errorf("worker.expiry_reminder_ahead must be positive"))
	}

	larkSet := c.Lark.AppID != "" || c.Lark.AppSecret != "" || c.Lark.ReceiveID != ""
	if larkSet && !c.Lark.Enabled() {
		errs = append(errs, fmt.Errorf("lark requires app_id, app_secret and receive_id together"))
	}

	if c.OpenAI.Enabled() && c.OpenAI.PromptsPath == "" {
		errs = append(errs, fmt.Errorf("openai.prompts_path is required when openai.api_key is set"))
	}

	return errors.Join(errs...)
}
