package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Duration 提供更灵活的反序列化能力，同时兼容纯秒整数与 Go Duration 字符串。
type Duration time.Duration

// UnmarshalText 使 Viper 可以识别诸如 "30s"、"5m" 或纯数字秒值等配置写法。
func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		*d = Duration(0)
		return nil
	}

	if seconds, err := time.ParseDuration(raw); err == nil {
		*d = Duration(seconds)
		return nil
	}

	if intVal, err := parseInt(raw); err == nil {
		*d = Duration(time.Duration(intVal) * time.Second)
		return nil
	}

	return fmt.Errorf("invalid duration value: %s", raw)
}

// DurationValue 返回真实的 time.Duration，便于调用方计算。
func (d Duration) DurationValue() time.Duration {
	return time.Duration(d)
}

// parseInt 支持十进制或 0x 前缀的十六进制字符串解析。
func parseInt(value string) (int64, error) {
	if strings.HasPrefix(value, "0x") || strings.HasPrefix(value, "0X") {
		return strconv.ParseInt(value, 0, 64)
	}
	return strconv.ParseInt(value, 10, 64)
}

// GlobalConfig 描述全局运行时行为。
type GlobalConfig struct {
	ListenPort          int      `mapstructure:"ListenPort"`
	LogLevel            string   `mapstructure:"LogLevel"`
	LogFilePath         string   `mapstructure:"LogFilePath"`
	LogMaxSize          int      `mapstructure:"LogMaxSize"`
	LogMaxBackups       int      `mapstructure:"LogMaxBackups"`
	LogCompress         bool     `mapstructure:"LogCompress"`
	WorkPath            string   `mapstructure:"WorkPath"`
	CacheCapacity       int      `mapstructure:"CacheCapacity"`
	MaxConcurrentBuilds int      `mapstructure:"MaxConcurrentBuilds"`
	UpstreamTimeout     Duration `mapstructure:"UpstreamTimeout"`
}

// RegistryConfig 描述 npm Registry 上游；Username/Password 用于私有 Registry 的 Basic 认证。
type RegistryConfig struct {
	Upstream string `mapstructure:"Upstream"`
	Proxy    string `mapstructure:"Proxy"`
	Username string `mapstructure:"Username"`
	Password string `mapstructure:"Password"`
}

// GeneratorConfig 描述外部文档生成器的调用方式。
type GeneratorConfig struct {
	// Command 为生成器可执行文件及其固定前缀参数，例如 ["npx", "typedoc"]。
	Command []string `mapstructure:"Command"`
	// ExtraArgs 追加在流水线生成的参数之前，用于主题、插件等站点级设置。
	ExtraArgs []string `mapstructure:"ExtraArgs"`
	// Dir 为生成器进程的工作目录，留空时继承服务进程的工作目录。
	Dir string `mapstructure:"Dir"`
}

// Config 是 TOML 文件映射的整体结构。
type Config struct {
	Global    GlobalConfig    `mapstructure:",squash"`
	Registry  RegistryConfig  `mapstructure:"Registry"`
	Generator GeneratorConfig `mapstructure:"Generator"`
}

// HasCredentials 表示是否配置了完整的上游凭证。
func (r RegistryConfig) HasCredentials() bool {
	return r.Username != "" && r.Password != ""
}

// AuthMode 输出 `credentialed` 或 `anonymous`，供日志字段使用。
func (r RegistryConfig) AuthMode() string {
	if r.HasCredentials() {
		return "credentialed"
	}
	return "anonymous"
}
