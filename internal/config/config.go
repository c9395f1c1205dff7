package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config 应用配置
// 所有路径与客户端参数在启动时装配好后显式注入各组件，组件内部不读环境变量
type Config struct {
	Server    ServerConfig    `mapstructure:"server" validate:"required"`
	JWT       JWTConfig       `mapstructure:"jwt" validate:"required"`
	AI        AIConfig        `mapstructure:"ai"`
	Storage   StorageConfig   `mapstructure:"storage" validate:"required"`
	Knowledge KnowledgeConfig `mapstructure:"knowledge" validate:"required"`
	Cache     CacheConfig     `mapstructure:"cache"`
}

type ServerConfig struct {
	Port string `mapstructure:"port" validate:"required"`
	Env  string `mapstructure:"env" validate:"required,oneof=development staging production"`
}

type JWTConfig struct {
	Secret        string `mapstructure:"secret" validate:"required"`
	Issuer        string `mapstructure:"issuer"`
	ExpireMinutes int    `mapstructure:"expire_minutes" validate:"gt=0"`
}

type AIConfig struct {
	OpenAIAPIKey   string  `mapstructure:"openai_api_key"`
	EmbeddingModel string  `mapstructure:"embedding_model"`
	ChatModel      string  `mapstructure:"chat_model"`
	MaxTokens      int     `mapstructure:"max_tokens"`
	Temperature    float64 `mapstructure:"temperature"`
}

// StorageConfig 上传文件与向量集合的落盘位置
type StorageConfig struct {
	Provider  string      `mapstructure:"provider" validate:"oneof=local minio"`
	UploadDir string      `mapstructure:"upload_dir" validate:"required"`
	VectorDir string      `mapstructure:"vector_dir" validate:"required"`
	MinIO     MinIOConfig `mapstructure:"minio"`
}

type MinIOConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

type KnowledgeConfig struct {
	ChunkSize    int `mapstructure:"chunk_size" validate:"gt=0"`
	ChunkOverlap int `mapstructure:"chunk_overlap" validate:"gte=0"`
	TopK         int `mapstructure:"top_k" validate:"gt=0"`
}

// CacheConfig 可选的检索结果缓存（Redis）
type CacheConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Host       string `mapstructure:"host"`
	Port       string `mapstructure:"port"`
	DB         int    `mapstructure:"db"`
	TTLSeconds int    `mapstructure:"ttl_seconds"`
}

// LoadConfig 加载配置：默认值 < 配置文件 < 环境变量
func LoadConfig() (*Config, error) {
	v := viper.New()

	v.SetDefault("server.port", "8000")
	v.SetDefault("server.env", "development")

	v.SetDefault("jwt.secret", "your-secret-key-change-in-production")
	v.SetDefault("jwt.issuer", "orchestrator")
	v.SetDefault("jwt.expire_minutes", 30)

	v.SetDefault("ai.embedding_model", "text-embedding-3-small")
	v.SetDefault("ai.chat_model", "gpt-4o-mini")
	v.SetDefault("ai.max_tokens", 2000)
	v.SetDefault("ai.temperature", 0.7)

	v.SetDefault("storage.provider", "local")
	v.SetDefault("storage.upload_dir", "data/uploads")
	v.SetDefault("storage.vector_dir", "data/vectorstore")
	v.SetDefault("storage.minio.bucket", "uploads")
	v.SetDefault("storage.minio.use_ssl", false)

	v.SetDefault("knowledge.chunk_size", 1000)
	v.SetDefault("knowledge.chunk_overlap", 100)
	v.SetDefault("knowledge.top_k", 4)

	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.host", "localhost")
	v.SetDefault("cache.port", "6379")
	v.SetDefault("cache.db", 0)
	v.SetDefault("cache.ttl_seconds", 300)

	// 配置文件可选，没有就用默认值加环境变量
	explicit := os.Getenv("CONFIG_FILE")
	if explicit != "" {
		v.SetConfigFile(explicit)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	if err := v.ReadInConfig(); err != nil {
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if explicit != "" || !notFound {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	v.SetEnvPrefix("ORCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 保留几个历史环境变量名
	if port := os.Getenv("PORT"); port != "" {
		v.Set("server.port", port)
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		v.Set("ai.openai_api_key", key)
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		v.Set("jwt.secret", secret)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}
