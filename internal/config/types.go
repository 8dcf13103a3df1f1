package config

import (
	"fmt"
	"sort"
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

	if parsed, err := time.ParseDuration(raw); err == nil {
		*d = Duration(parsed)
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

// 校验失败时的处理策略，与 resolver.VerifyPolicy 取值一致。
const (
	VerifyPolicyRedownload = "redownload"
	VerifyPolicyFail       = "fail"
)

// GlobalConfig 描述下载器的运行参数。
type GlobalConfig struct {
	LogLevel        string   `mapstructure:"LogLevel"`
	LogFilePath     string   `mapstructure:"LogFilePath"`
	LogMaxSize      int      `mapstructure:"LogMaxSize"`
	LogMaxBackups   int      `mapstructure:"LogMaxBackups"`
	LogCompress     bool     `mapstructure:"LogCompress"`
	PackagesDir     string   `mapstructure:"PackagesDir"`
	RegistryURL     string   `mapstructure:"RegistryURL"`
	UpstreamTimeout Duration `mapstructure:"UpstreamTimeout"`
	LockTimeout     Duration `mapstructure:"LockTimeout"`
	VerifyPolicy    string   `mapstructure:"VerifyPolicy"`
	ListenPort      int      `mapstructure:"ListenPort"`
}

// Config 是 TOML 文件映射的整体结构。
type Config struct {
	Global GlobalConfig `mapstructure:",squash"`
	// Dependencies 为包名 → 版本，包名保持文件中的原始大小写。
	Dependencies map[string]string `mapstructure:"-"`
}

// DependencyNames 返回排序后的包名，保证批量下载顺序稳定。
func (c *Config) DependencyNames() []string {
	if c == nil || len(c.Dependencies) == 0 {
		return nil
	}
	names := make([]string, 0, len(c.Dependencies))
	for name := range c.Dependencies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
