package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/any-hub/nuget-dl/internal/cache"
	"github.com/any-hub/nuget-dl/internal/config"
	"github.com/any-hub/nuget-dl/internal/logging"
	"github.com/any-hub/nuget-dl/internal/manifest"
	"github.com/any-hub/nuget-dl/internal/registry"
	"github.com/any-hub/nuget-dl/internal/resolver"
	"github.com/any-hub/nuget-dl/internal/server"
	"github.com/any-hub/nuget-dl/internal/server/routes"
	"github.com/any-hub/nuget-dl/internal/version"
)

// configEnvVar 指定配置文件路径的环境变量，优先级低于 --config。
const configEnvVar = "NUGET_DL_CONFIG"

// cliOptions 汇总 CLI 标志解析后的结果，便于在测试中注入。
type cliOptions struct {
	configPath  string
	checkOnly   bool
	serve       bool
	showVersion bool
}

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

func main() {
	opts, err := parseCLIFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(stdErr, err.Error())
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, opts)
	stop()
	os.Exit(code)
}

// run 根据解析到的 CLI 选项执行业务流程，并返回退出码，方便测试。
func run(ctx context.Context, opts cliOptions) int {
	if opts.showVersion {
		printVersion()
		return 0
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stdErr, "加载配置失败: %v\n", err)
		return 1
	}

	logger, err := logging.InitLogger(cfg.Global)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化日志失败: %v\n", err)
		return 1
	}

	if opts.checkOnly {
		fields := logging.BaseFields("check_config", opts.configPath)
		fields["dependencies"] = len(cfg.Dependencies)
		fields["packages_dir"] = cfg.Global.PackagesDir
		fields["registry_url"] = cfg.Global.RegistryURL
		fields["verify_policy"] = cfg.Global.VerifyPolicy
		fields["result"] = "ok"
		logger.WithFields(fields).Info("配置校验通过")
		return 0
	}

	// 启动顺序：配置 → 注册中心客户端 → 磁盘缓存 → Resolver，fetch 与 serve 共用同一套实例。
	client, err := registry.NewClient(cfg.Global.RegistryURL, registry.NewUpstreamClient(cfg))
	if err != nil {
		fmt.Fprintf(stdErr, "构建注册中心客户端失败: %v\n", err)
		return 1
	}

	store := cache.NewStore(cache.Options{LockTimeout: cfg.Global.LockTimeout.DurationValue()})

	res, err := resolver.New(resolver.Options{
		Metadata:     client,
		Content:      client,
		Store:        store,
		Logger:       logger,
		VerifyPolicy: resolver.VerifyPolicy(cfg.Global.VerifyPolicy),
	})
	if err != nil {
		fmt.Fprintf(stdErr, "构建 Resolver 失败: %v\n", err)
		return 1
	}

	fields := logging.BaseFields("startup", opts.configPath)
	fields["dependencies"] = len(cfg.Dependencies)
	fields["packages_dir"] = cfg.Global.PackagesDir
	fields["registry_url"] = client.BaseURL()
	fields["verify_policy"] = cfg.Global.VerifyPolicy
	fields["version"] = version.Full()
	logger.WithFields(fields).Info("配置加载完成")

	if opts.serve {
		if err := startHTTPServer(cfg, res, store, logger); err != nil {
			fmt.Fprintf(stdErr, "HTTP 服务启动失败: %v\n", err)
			return 1
		}
		return 0
	}

	if err := fetchDependencies(ctx, cfg, res, logger); err != nil {
		fmt.Fprintf(stdErr, "下载依赖失败: %v\n", err)
		return 1
	}
	return 0
}

// parseCLIFlags 解析 CLI 参数，并结合环境变量计算最终的配置路径。
func parseCLIFlags(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet("nuget-dl", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		configFlag string
		checkOnly  bool
		serve      bool
		showVer    bool
	)

	fs.StringVar(&configFlag, "config", "", "配置文件路径（默认 ./nuget.toml，可被 NUGET_DL_CONFIG 覆盖）")
	fs.BoolVar(&checkOnly, "check-config", false, "仅校验配置后退出")
	fs.BoolVar(&serve, "serve", false, "以镜像服务模式运行")
	fs.BoolVar(&showVer, "version", false, "显示版本信息")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("解析参数失败: %w", err)
	}
	if fs.NArg() > 0 {
		return cliOptions{}, fmt.Errorf("解析参数失败: 未知参数 %v", fs.Args())
	}
	if checkOnly && serve {
		return cliOptions{}, fmt.Errorf("解析参数失败: --check-config 与 --serve 不能同时使用")
	}

	path := os.Getenv(configEnvVar)
	if configFlag != "" {
		path = configFlag
	}
	if path == "" {
		path = config.DefaultPath
	}

	return cliOptions{
		configPath:  path,
		checkOnly:   checkOnly,
		serve:       serve,
		showVersion: showVer,
	}, nil
}

// fetchDependencies 下载 [Dependencies] 中的全部包，并把制品路径逐行写到 stdout。
func fetchDependencies(ctx context.Context, cfg *config.Config, res *resolver.Resolver, logger *logrus.Logger) error {
	bar := newProgressBar(len(cfg.Dependencies))
	files, err := manifest.Process(ctx, res, cfg, func(pkg manifest.Package, done, total int) {
		bar.Describe(fmt.Sprintf("fetched %s", pkg))
		_ = bar.Add(1)
	})
	_ = bar.Finish()
	if err != nil {
		return err
	}

	for _, f := range files {
		fmt.Fprintln(stdOut, f.Name())
		_ = f.Close()
	}

	logger.WithFields(logging.BaseFields("fetch", "")).
		WithField("packages", len(files)).
		Info("依赖下载完成")
	return nil
}

func startHTTPServer(cfg *config.Config, res *resolver.Resolver, store cache.Store, logger *logrus.Logger) error {
	port := cfg.Global.ListenPort
	app, err := server.NewApp(server.AppOptions{
		Logger:      logger,
		Resolver:    res,
		PackagesDir: cfg.Global.PackagesDir,
		ListenPort:  port,
	})
	if err != nil {
		return err
	}
	routes.RegisterPackageRoutes(app, store, cfg.Global.PackagesDir)

	logger.WithFields(logrus.Fields{
		"action": "listen",
		"port":   port,
	}).Info("Fiber 服务启动")

	return app.Listen(fmt.Sprintf(":%d", port))
}
