package config

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWithDefaults(t *testing.T) {
	cfgPath := testConfigPath(t, "valid.toml")

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load 返回错误: %v", err)
	}
	if !filepath.IsAbs(cfg.Global.PackagesDir) {
		t.Fatalf("PackagesDir 应被解析为绝对路径，得到 %s", cfg.Global.PackagesDir)
	}
	if cfg.Global.UpstreamTimeout.DurationValue() != 45*time.Second {
		t.Fatalf("UpstreamTimeout 解析错误: %s", cfg.Global.UpstreamTimeout.DurationValue())
	}
	if cfg.Global.LockTimeout.DurationValue() != 10*time.Second {
		t.Fatalf("整数秒应被解析为 Duration，得到 %s", cfg.Global.LockTimeout.DurationValue())
	}
	if cfg.Global.ListenPort != 5000 {
		t.Fatalf("ListenPort 应使用默认值，得到 %d", cfg.Global.ListenPort)
	}
	if cfg.Global.LogMaxSize != 100 || !cfg.Global.LogCompress {
		t.Fatalf("日志轮转参数应使用默认值: %+v", cfg.Global)
	}
}

func TestLoadPreservesDependencyCase(t *testing.T) {
	cfg, err := Load(testConfigPath(t, "valid.toml"))
	if err != nil {
		t.Fatalf("Load 返回错误: %v", err)
	}

	want := map[string]string{
		"WinPixEventRuntime":       "1.0.220124001",
		"Microsoft.AI.DirectML":    "1.9.0",
		"directxtk12_desktop_2019": "2022.7.30.1",
	}
	if len(cfg.Dependencies) != len(want) {
		t.Fatalf("依赖数量不符: %v", cfg.Dependencies)
	}
	for name, version := range want {
		if cfg.Dependencies[name] != version {
			t.Fatalf("依赖 %s 应为 %s，得到 %q", name, version, cfg.Dependencies[name])
		}
	}

	names := cfg.DependencyNames()
	if names[0] != "Microsoft.AI.DirectML" || names[2] != "directxtk12_desktop_2019" {
		t.Fatalf("依赖名应按字节序排序: %v", names)
	}
}

func TestValidateRejectsBadConfig(t *testing.T) {
	if _, err := Load(testConfigPath(t, "missing.toml")); err == nil {
		t.Fatalf("不合法的配置应返回错误")
	}
}

func TestValidateVerifyPolicy(t *testing.T) {
	testCases := []struct {
		policy    string
		want      string
		shouldErr bool
	}{
		{"redownload", VerifyPolicyRedownload, false},
		{"FAIL", VerifyPolicyFail, false},
		{" Redownload ", VerifyPolicyRedownload, false},
		{"ignore", "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.policy, func(t *testing.T) {
			cfg := validConfig()
			cfg.Global.VerifyPolicy = tc.policy
			err := cfg.Validate()
			if tc.shouldErr {
				if err == nil {
					t.Fatalf("expected error for policy %q", tc.policy)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error for policy %q: %v", tc.policy, err)
			}
			if cfg.Global.VerifyPolicy != tc.want {
				t.Fatalf("policy should normalise to %s, got %s", tc.want, cfg.Global.VerifyPolicy)
			}
		})
	}
}

func TestValidateRejectsEscapingDependency(t *testing.T) {
	cfg := validConfig()
	cfg.Dependencies = map[string]string{"../evil": "1.0"}
	err := cfg.Validate()
	var fieldErr FieldError
	if !errors.As(err, &fieldErr) {
		t.Fatalf("expected FieldError, got %v", err)
	}
	if fieldErr.Field != "Dependencies[../evil]" {
		t.Fatalf("unexpected field path %s", fieldErr.Field)
	}
}

func TestValidateRegistryURL(t *testing.T) {
	for _, raw := range []string{"", "ftp://nuget.local", "https://", "nuget.local"} {
		cfg := validConfig()
		cfg.Global.RegistryURL = raw
		if err := cfg.Validate(); err == nil {
			t.Fatalf("RegistryURL %q 应当报错", raw)
		}
	}
}

func TestValidateEnforcesListenPortRange(t *testing.T) {
	cfg := validConfig()
	cfg.Global.ListenPort = 70000
	if err := cfg.Validate(); err == nil {
		t.Fatalf("ListenPort 超出范围应当报错")
	}
}

func TestDurationUnmarshalText(t *testing.T) {
	testCases := map[string]time.Duration{
		"":     0,
		"90s":  90 * time.Second,
		"2m":   2 * time.Minute,
		"15":   15 * time.Second,
		"0x10": 16 * time.Second,
	}
	for raw, want := range testCases {
		var d Duration
		if err := d.UnmarshalText([]byte(raw)); err != nil {
			t.Fatalf("UnmarshalText(%q) error: %v", raw, err)
		}
		if d.DurationValue() != want {
			t.Fatalf("UnmarshalText(%q) = %s, want %s", raw, d.DurationValue(), want)
		}
	}

	var d Duration
	if err := d.UnmarshalText([]byte("soon")); err == nil {
		t.Fatalf("非法 Duration 应返回错误")
	}
}

func validConfig() *Config {
	return &Config{
		Global: GlobalConfig{
			LogLevel:        "info",
			PackagesDir:     "./packages",
			RegistryURL:     "https://www.nuget.org",
			UpstreamTimeout: Duration(30 * time.Second),
			LockTimeout:     Duration(30 * time.Second),
			VerifyPolicy:    VerifyPolicyRedownload,
			ListenPort:      5000,
		},
		Dependencies: map[string]string{"WinPixEventRuntime": "1.0.220124001"},
	}
}
