package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFailsWithMissingFields(t *testing.T) {
	if _, err := Load(testConfigPath(t, "missing.toml")); err == nil {
		t.Fatalf("缺失字段的配置应返回错误")
	}
}

func TestLoadRejectsInvalidDuration(t *testing.T) {
	cfg := `
LogLevel = "info"
UpstreamTimeout = "boom"
`
	path := writeTempConfig(t, cfg)
	if _, err := Load(path); err == nil {
		t.Fatalf("无效 Duration 应失败")
	}
}

func TestLoadParsesDurations(t *testing.T) {
	cfg := `
UpstreamTimeout = "45s"
`
	path := writeTempConfig(t, cfg)
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load 返回错误: %v", err)
	}
	if loaded.Global.UpstreamTimeout.DurationValue() != 45*time.Second {
		t.Fatalf("UpstreamTimeout 解析错误: %s", loaded.Global.UpstreamTimeout.DurationValue())
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeTempConfig(t, `LogLevel = "debug"`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load 返回错误: %v", err)
	}
	if cfg.Global.ListenPort != 5000 {
		t.Fatalf("ListenPort 默认值应为 5000，得到 %d", cfg.Global.ListenPort)
	}
	if cfg.Global.CacheCapacity != DefaultCacheCapacity {
		t.Fatalf("CacheCapacity 默认值应为 %d，得到 %d", DefaultCacheCapacity, cfg.Global.CacheCapacity)
	}
	if cfg.Registry.Upstream != DefaultRegistry {
		t.Fatalf("Registry 默认值错误: %s", cfg.Registry.Upstream)
	}
	if len(cfg.Generator.Command) != 1 || cfg.Generator.Command[0] != "typedoc" {
		t.Fatalf("Generator.Command 默认值错误: %v", cfg.Generator.Command)
	}
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("GRIMOIRE_LISTENPORT", "6100")
	t.Setenv("GRIMOIRE_REGISTRY_UPSTREAM", "http://127.0.0.1:4873")

	path := writeTempConfig(t, `ListenPort = 5000`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load 返回错误: %v", err)
	}
	if cfg.Global.ListenPort != 6100 {
		t.Fatalf("环境变量应覆盖 ListenPort，得到 %d", cfg.Global.ListenPort)
	}
	if cfg.Registry.Upstream != "http://127.0.0.1:4873" {
		t.Fatalf("环境变量应覆盖 Registry.Upstream，得到 %s", cfg.Registry.Upstream)
	}
}

func TestLoadReadsDotEnvBesideConfig(t *testing.T) {
	const key = "GRIMOIRE_CACHECAPACITY"
	prev, had := os.LookupEnv(key)
	t.Cleanup(func() {
		if had {
			_ = os.Setenv(key, prev)
		} else {
			_ = os.Unsetenv(key)
		}
	})
	_ = os.Unsetenv(key)

	path := writeTempConfig(t, `LogLevel = "info"`)
	envFile := filepath.Join(filepath.Dir(path), ".env")
	if err := os.WriteFile(envFile, []byte(key+"=7\n"), 0o600); err != nil {
		t.Fatalf("写入 .env 失败: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load 返回错误: %v", err)
	}
	if cfg.Global.CacheCapacity != 7 {
		t.Fatalf(".env 中的 CacheCapacity 应生效，得到 %d", cfg.Global.CacheCapacity)
	}
}
