package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"
)

// Validate 针对语义级别做进一步校验，防止非法配置进入下载流程。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	g := &c.Global
	if _, err := logrus.ParseLevel(g.LogLevel); err != nil {
		return newFieldError("Global.LogLevel", "仅支持 panic/fatal/error/warn/info/debug/trace")
	}
	if strings.TrimSpace(g.PackagesDir) == "" {
		return newFieldError("Global.PackagesDir", "不能为空")
	}
	if err := validateRegistryURL(g.RegistryURL); err != nil {
		return fmt.Errorf("Global.RegistryURL: %w", err)
	}
	if g.UpstreamTimeout.DurationValue() <= 0 {
		return newFieldError("Global.UpstreamTimeout", "必须大于 0")
	}
	if g.LockTimeout.DurationValue() <= 0 {
		return newFieldError("Global.LockTimeout", "必须大于 0")
	}
	if g.ListenPort <= 0 || g.ListenPort > 65535 {
		return newFieldError("Global.ListenPort", "必须在 1-65535")
	}

	policy := strings.ToLower(strings.TrimSpace(g.VerifyPolicy))
	switch policy {
	case VerifyPolicyRedownload, VerifyPolicyFail:
		g.VerifyPolicy = policy
	default:
		return newFieldError("Global.VerifyPolicy", "仅支持 redownload/fail")
	}

	for _, name := range c.DependencyNames() {
		if err := validatePackageSegment(name); err != nil {
			return newFieldError(dependencyField(name), "包名"+err.Error())
		}
		if err := validatePackageSegment(c.Dependencies[name]); err != nil {
			return newFieldError(dependencyField(name), "版本"+err.Error())
		}
	}

	return nil
}

// validatePackageSegment 与缓存层的规则保持一致：不能为空，也不能包含路径分隔符。
func validatePackageSegment(value string) error {
	if strings.TrimSpace(value) == "" {
		return errors.New("不能为空")
	}
	if strings.ContainsAny(value, `/\`) || value == "." || value == ".." {
		return errors.New("不能包含路径分隔符")
	}
	return nil
}

func validateRegistryURL(raw string) error {
	if raw == "" {
		return errors.New("缺少注册中心地址")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("仅支持 http/https，注册中心: %s", raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("注册中心缺少 Host: %s", raw)
	}
	return nil
}
