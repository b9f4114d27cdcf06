package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// EnvPrefix 是覆盖配置项时使用的环境变量前缀，例如 GRIMOIRE_LISTENPORT。
const EnvPrefix = "GRIMOIRE"

// DefaultRegistry 为未配置 Registry.Upstream 时使用的公共 npm Registry。
const DefaultRegistry = "https://registry.npmjs.org"

// DefaultCacheCapacity 为文档缓存默认容纳的包数量。
const DefaultCacheCapacity = 32

// Load 读取并解析 TOML 配置文件，同时注入默认值、.env 与环境变量覆盖及校验逻辑。
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.toml"
	}

	if err := loadDotEnv(filepath.Join(filepath.Dir(path), ".env")); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置失败: %w", err)
	}

	var cfg Config
	hook := mapstructure.ComposeDecodeHookFunc(
		durationDecodeHook(),
		mapstructure.StringToSliceHookFunc(" "),
	)
	if err := v.Unmarshal(&cfg, viper.DecodeHook(hook)); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	applyGlobalDefaults(&cfg.Global)
	applyRegistryDefaults(&cfg.Registry)
	applyGeneratorDefaults(&cfg.Generator)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	absWork, err := filepath.Abs(cfg.Global.WorkPath)
	if err != nil {
		return nil, fmt.Errorf("无法解析工作目录: %w", err)
	}
	cfg.Global.WorkPath = absWork

	return &cfg, nil
}

// loadDotEnv 在配置文件同级存在 .env 时加载，已有环境变量优先。
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("读取 .env 失败: %w", err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("加载 .env 失败: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ListenPort", 5000)
	v.SetDefault("LogLevel", "info")
	v.SetDefault("LogFilePath", "")
	v.SetDefault("LogMaxSize", 100)
	v.SetDefault("LogMaxBackups", 10)
	v.SetDefault("LogCompress", true)
	v.SetDefault("WorkPath", defaultWorkPath())
	v.SetDefault("CacheCapacity", DefaultCacheCapacity)
	v.SetDefault("MaxConcurrentBuilds", 0)
	v.SetDefault("UpstreamTimeout", 0)
	v.SetDefault("Registry.Upstream", DefaultRegistry)
	v.SetDefault("Registry.Proxy", "")
	v.SetDefault("Registry.Username", "")
	v.SetDefault("Registry.Password", "")
	v.SetDefault("Generator.Command", []string{"typedoc"})
	v.SetDefault("Generator.ExtraArgs", []string{})
	v.SetDefault("Generator.Dir", "")
}

func defaultWorkPath() string {
	return filepath.Join(os.TempDir(), "grimoire")
}

func applyGlobalDefaults(g *GlobalConfig) {
	if g.ListenPort == 0 {
		g.ListenPort = 5000
	}
	if g.CacheCapacity == 0 {
		g.CacheCapacity = DefaultCacheCapacity
	}
	if strings.TrimSpace(g.WorkPath) == "" {
		g.WorkPath = defaultWorkPath()
	}
}

func applyRegistryDefaults(r *RegistryConfig) {
	r.Upstream = strings.TrimSuffix(strings.TrimSpace(r.Upstream), "/")
	if r.Upstream == "" {
		r.Upstream = DefaultRegistry
	}
}

func applyGeneratorDefaults(g *GeneratorConfig) {
	command := make([]string, 0, len(g.Command))
	for _, part := range g.Command {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			command = append(command, trimmed)
		}
	}
	if len(command) == 0 {
		command = []string{"typedoc"}
	}
	g.Command = command
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	targetType := reflect.TypeOf(Duration(0))

	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != targetType {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			if v == "" {
				return Duration(0), nil
			}
			if parsed, err := time.ParseDuration(v); err == nil {
				return Duration(parsed), nil
			}
			if seconds, err := strconv.ParseFloat(v, 64); err == nil {
				return Duration(time.Duration(seconds * float64(time.Second))), nil
			}
			return nil, fmt.Errorf("无法解析 Duration 字段: %s", v)
		case int:
			return Duration(time.Duration(v) * time.Second), nil
		case int64:
			return Duration(time.Duration(v) * time.Second), nil
		case float64:
			return Duration(time.Duration(v * float64(time.Second))), nil
		case time.Duration:
			return Duration(v), nil
		case Duration:
			return v, nil
		default:
			return nil, fmt.Errorf("不支持的 Duration 类型: %T", v)
		}
	}
}
