package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

// DefaultPath 是未通过 flag/环境变量指定时使用的配置文件。
const DefaultPath = "nuget.toml"

// Load 读取并解析 TOML 配置文件，同时注入默认值与校验逻辑。
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置失败: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(durationDecodeHook())); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	deps, err := loadDependencies(path)
	if err != nil {
		return nil, err
	}
	cfg.Dependencies = deps

	applyGlobalDefaults(&cfg.Global)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	absDir, err := filepath.Abs(cfg.Global.PackagesDir)
	if err != nil {
		return nil, fmt.Errorf("无法解析包目录: %w", err)
	}
	cfg.Global.PackagesDir = absDir

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("LogLevel", "info")
	v.SetDefault("LogFilePath", "")
	v.SetDefault("LogMaxSize", 100)
	v.SetDefault("LogMaxBackups", 10)
	v.SetDefault("LogCompress", true)
	v.SetDefault("PackagesDir", "./packages")
	v.SetDefault("RegistryURL", "https://www.nuget.org")
	v.SetDefault("UpstreamTimeout", "30s")
	v.SetDefault("LockTimeout", "30s")
	v.SetDefault("VerifyPolicy", VerifyPolicyRedownload)
	v.SetDefault("ListenPort", 5000)
}

func applyGlobalDefaults(g *GlobalConfig) {
	if strings.TrimSpace(g.PackagesDir) == "" {
		g.PackagesDir = "./packages"
	}
	if g.UpstreamTimeout.DurationValue() == 0 {
		g.UpstreamTimeout = Duration(30 * time.Second)
	}
	if g.LockTimeout.DurationValue() == 0 {
		g.LockTimeout = Duration(30 * time.Second)
	}
	if strings.TrimSpace(g.VerifyPolicy) == "" {
		g.VerifyPolicy = VerifyPolicyRedownload
	}
	if g.ListenPort == 0 {
		g.ListenPort = 5000
	}
}

// loadDependencies 直接用 go-toml 解码 [Dependencies]。viper 会把键转成小写，
// 而包名作为缓存键必须保持原样。
func loadDependencies(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置失败: %w", err)
	}

	var doc struct {
		Dependencies map[string]interface{} `toml:"Dependencies"`
	}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	deps := make(map[string]string, len(doc.Dependencies))
	for name, raw := range doc.Dependencies {
		version, ok := raw.(string)
		if !ok {
			return nil, newFieldError(dependencyField(name), fmt.Sprintf("版本必须为字符串，得到 %T", raw))
		}
		deps[name] = version
	}
	return deps, nil
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
