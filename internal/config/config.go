// Package config 负责加载和管理应用程序的配置。
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// 全局配置变量，存储从配置文件加载的所有设置。
var Conf Config

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
// 所有键也可以通过环境变量覆盖（例如 LLM_API_KEY 对应 llm.api_key）。
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
	Store   StoreConfig   `mapstructure:"store"`
	LLM     LLMConfig     `mapstructure:"llm"`
	TTS     TTSConfig     `mapstructure:"tts"`
	Sandbox SandboxConfig `mapstructure:"sandbox"`
	Checkin CheckinConfig `mapstructure:"checkin"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// StoreConfig 存储 S3 兼容对象存储（如 Tigris/MinIO）的配置。
// 缺少任何一项只会禁用对象存储相关功能，不会导致服务退出。
type StoreConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
}

// LLMConfig 存储大语言模型相关的配置。
type LLMConfig struct {
	APIKey     string              `mapstructure:"api_key"`
	BaseURL    string              `mapstructure:"base_url"`
	Model      string              `mapstructure:"model"`
	Generation LLMGenerationConfig `mapstructure:"generation"`
}

// LLMGenerationConfig 配置生成相关参数。
type LLMGenerationConfig struct {
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// TTSConfig 存储语音合成服务（ElevenLabs）的配置。
type TTSConfig struct {
	APIKey          string  `mapstructure:"api_key"`
	BaseURL         string  `mapstructure:"base_url"`
	VoiceID         string  `mapstructure:"voice_id"`
	ModelID         string  `mapstructure:"model_id"`
	Stability       float64 `mapstructure:"stability"`
	SimilarityBoost float64 `mapstructure:"similarity_boost"`
	TimeoutSeconds  int     `mapstructure:"timeout_seconds"`
	OutputDir       string  `mapstructure:"output_dir"`
}

// SandboxConfig 存储隔离执行环境（沙箱）提供商的配置。
type SandboxConfig struct {
	APIKey         string `mapstructure:"api_key"`
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// CheckinConfig 存储打卡业务相关的配置。
type CheckinConfig struct {
	HistoryWindowDays int    `mapstructure:"history_window_days"`
	DefaultUserID     string `mapstructure:"default_user_id"`
}

// setDefaults 为所有键注册默认值。
// 只有注册过的键才能被 AutomaticEnv 捕获并由环境变量覆盖。
func setDefaults() {
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "release")

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "console")
	viper.SetDefault("log.output_path", "")

	viper.SetDefault("store.endpoint", "")
	viper.SetDefault("store.access_key_id", "")
	viper.SetDefault("store.secret_access_key", "")
	viper.SetDefault("store.use_ssl", true)
	viper.SetDefault("store.bucket_name", "")

	viper.SetDefault("llm.api_key", "")
	viper.SetDefault("llm.base_url", "https://api.anthropic.com")
	viper.SetDefault("llm.model", "claude-3-haiku-20240307")
	viper.SetDefault("llm.generation.temperature", 0.4)
	viper.SetDefault("llm.generation.max_tokens", 400)

	viper.SetDefault("tts.api_key", "")
	viper.SetDefault("tts.base_url", "https://api.elevenlabs.io")
	viper.SetDefault("tts.voice_id", "UgBBYS2sOqTuMpoF3BR0")
	viper.SetDefault("tts.model_id", "eleven_multilingual_v2")
	viper.SetDefault("tts.stability", 0.5)
	viper.SetDefault("tts.similarity_boost", 0.7)
	viper.SetDefault("tts.timeout_seconds", 10)
	viper.SetDefault("tts.output_dir", "static")

	viper.SetDefault("sandbox.api_key", "")
	viper.SetDefault("sandbox.base_url", "")
	viper.SetDefault("sandbox.timeout_seconds", 60)

	viper.SetDefault("checkin.history_window_days", 7)
	viper.SetDefault("checkin.default_user_id", "demo-user-1")
}

// Init 初始化配置加载：先注册默认值，再读取 YAML 文件（可缺省），
// 最后允许环境变量覆盖任意键。
func Init(configPath string) {
	setDefaults()

	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// 配置文件允许不存在，此时完全依赖默认值和环境变量。
	if err := viper.ReadInConfig(); err != nil {
		fmt.Printf("未读取到配置文件 %s，使用默认值与环境变量: %v\n", configPath, err)
	}

	if err := viper.Unmarshal(&Conf); err != nil {
		panic(fmt.Errorf("无法将配置解析到结构体中: %w", err))
	}
}
