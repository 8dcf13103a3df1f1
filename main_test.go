package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/any-hub/nuget-dl/internal/registry/registrytest"
)

func TestParseCLIFlagsPriority(t *testing.T) {
	t.Setenv("NUGET_DL_CONFIG", "/tmp/env.toml")

	opts, err := parseCLIFlags([]string{})
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if opts.configPath != "/tmp/env.toml" {
		t.Fatalf("应优先使用环境变量，得到 %s", opts.configPath)
	}

	opts, err = parseCLIFlags([]string{"--config", "/tmp/flag.toml"})
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if opts.configPath != "/tmp/flag.toml" {
		t.Fatalf("flag 应高于环境变量，得到 %s", opts.configPath)
	}
}

func TestParseCLIFlagsDefaultPath(t *testing.T) {
	t.Setenv("NUGET_DL_CONFIG", "")

	opts, err := parseCLIFlags([]string{"--serve"})
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if opts.configPath != "nuget.toml" || !opts.serve {
		t.Fatalf("unexpected options: %+v", opts)
	}
}

func TestParseCLIFlagsRejectsInvalidInput(t *testing.T) {
	cases := [][]string{
		{"--unknown"},
		{"extra-arg"},
		{"--check-config", "--serve"},
	}
	for _, args := range cases {
		if _, err := parseCLIFlags(args); err == nil {
			t.Fatalf("%v: 期望解析失败", args)
		}
	}
}

func TestRunCheckConfigSuccess(t *testing.T) {
	useBufferWriters(t)
	code := run(context.Background(), cliOptions{configPath: configFixture(t, "valid.toml"), checkOnly: true})
	if code != 0 {
		t.Fatalf("期望退出码 0，得到 %d (stderr=%s)", code, stdErrBuffer().String())
	}
}

func TestRunCheckConfigFailure(t *testing.T) {
	useBufferWriters(t)
	code := run(context.Background(), cliOptions{configPath: configFixture(t, "missing.toml"), checkOnly: true})
	if code == 0 {
		t.Fatalf("无效配置应返回非零退出码")
	}
	if !strings.Contains(stdErrBuffer().String(), "RegistryURL") {
		t.Fatalf("错误信息应指出字段，得到 %s", stdErrBuffer().String())
	}
}

func TestRunVersionOutput(t *testing.T) {
	useBufferWriters(t)
	code := run(context.Background(), cliOptions{showVersion: true})
	if code != 0 {
		t.Fatalf("version 模式应成功退出，得到 %d", code)
	}
	if !strings.Contains(stdOutBuffer().String(), "nuget-dl") {
		t.Fatalf("version 输出应包含 nuget-dl 标识")
	}
}

func TestRunFetchPrintsArtifactPaths(t *testing.T) {
	stub := registrytest.NewServer(t)
	stub.AddPackage("WinPixEventRuntime", "1.0.220124001", []byte("pix"))
	stub.AddPackage("Microsoft.AI.DirectML", "1.8.2", []byte("directml"))

	dir := filepath.Join(t.TempDir(), "packages")
	configPath := writeConfigFile(t, fmt.Sprintf(`
PackagesDir = %q
RegistryURL = %q

[Dependencies]
WinPixEventRuntime = "1.0.220124001"
"Microsoft.AI.DirectML" = "1.8.2"
`, filepath.ToSlash(dir), stub.URL))

	for round := 1; round <= 2; round++ {
		useBufferWriters(t)
		code := run(context.Background(), cliOptions{configPath: configPath})
		if code != 0 {
			t.Fatalf("round %d: 期望退出码 0，得到 %d (stderr=%s)", round, code, stdErrBuffer().String())
		}

		lines := strings.Split(strings.TrimSpace(stdOutBuffer().String()), "\n")
		want := []string{
			filepath.Join(dir, "Microsoft.AI.DirectML.1.8.2.nupkg"),
			filepath.Join(dir, "WinPixEventRuntime.1.0.220124001.nupkg"),
		}
		if strings.Join(lines, ",") != strings.Join(want, ",") {
			t.Fatalf("round %d: unexpected output %q", round, lines)
		}
	}

	if stub.ContentHits("WinPixEventRuntime", "1.0.220124001") != 1 {
		t.Fatalf("第二次运行应命中缓存")
	}
	data, err := os.ReadFile(filepath.Join(dir, "WinPixEventRuntime.1.0.220124001.nupkg"))
	if err != nil || !bytes.Equal(data, []byte("pix")) {
		t.Fatalf("制品内容不符: %q %v", data, err)
	}
}

func TestRunFetchFailsOnUnknownPackage(t *testing.T) {
	stub := registrytest.NewServer(t)
	configPath := writeConfigFile(t, fmt.Sprintf(`
PackagesDir = %q
RegistryURL = %q

[Dependencies]
Missing = "1.0.0"
`, filepath.ToSlash(t.TempDir()), stub.URL))

	useBufferWriters(t)
	code := run(context.Background(), cliOptions{configPath: configPath})
	if code != 1 {
		t.Fatalf("未知包应返回退出码 1，得到 %d", code)
	}
	if !strings.Contains(stdErrBuffer().String(), "Missing@1.0.0") {
		t.Fatalf("错误信息应包含包标识: %s", stdErrBuffer().String())
	}
}
