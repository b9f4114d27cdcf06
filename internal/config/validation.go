package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"
)

// Validate 针对语义级别做进一步校验，防止非法配置启动服务。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	g := c.Global
	if g.ListenPort <= 0 || g.ListenPort > 65535 {
		return newFieldError("Global.ListenPort", "必须在 1-65535")
	}
	if g.LogLevel != "" {
		if _, err := logrus.ParseLevel(g.LogLevel); err != nil {
			return newFieldError("Global.LogLevel", "无法识别的日志级别")
		}
	}
	if strings.TrimSpace(g.WorkPath) == "" {
		return newFieldError("Global.WorkPath", "不能为空")
	}
	if g.CacheCapacity <= 0 {
		return newFieldError("Global.CacheCapacity", "必须大于 0")
	}
	if g.MaxConcurrentBuilds < 0 {
		return newFieldError("Global.MaxConcurrentBuilds", "不能为负数")
	}
	if g.UpstreamTimeout.DurationValue() < 0 {
		return newFieldError("Global.UpstreamTimeout", "不能为负数")
	}

	r := c.Registry
	if err := validateUpstream(r.Upstream); err != nil {
		return fmt.Errorf("%s: %w", sectionField("Registry", "Upstream"), err)
	}
	if r.Proxy != "" {
		if err := validateUpstream(r.Proxy); err != nil {
			return fmt.Errorf("%s: %w", sectionField("Registry", "Proxy"), err)
		}
	}
	if (r.Username == "") != (r.Password == "") {
		return newFieldError(sectionField("Registry", "Username/Password"), "必须同时提供或同时留空")
	}

	if len(c.Generator.Command) == 0 || strings.TrimSpace(c.Generator.Command[0]) == "" {
		return newFieldError(sectionField("Generator", "Command"), "不能为空")
	}

	return nil
}

func validateUpstream(raw string) error {
	if raw == "" {
		return errors.New("缺少上游地址")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("仅支持 http/https，上游: %s", raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("上游缺少 Host: %s", raw)
	}
	return nil
}
