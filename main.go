package main

import (
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/any-hub/grimoire/internal/cache"
	"github.com/any-hub/grimoire/internal/config"
	"github.com/any-hub/grimoire/internal/docserver"
	"github.com/any-hub/grimoire/internal/generator"
	"github.com/any-hub/grimoire/internal/logging"
	"github.com/any-hub/grimoire/internal/metrics"
	"github.com/any-hub/grimoire/internal/pipeline"
	"github.com/any-hub/grimoire/internal/registry"
	"github.com/any-hub/grimoire/internal/server"
	"github.com/any-hub/grimoire/internal/server/routes"
	"github.com/any-hub/grimoire/internal/version"
	"github.com/any-hub/grimoire/internal/workspace"
)

// cliOptions 汇总 CLI 标志解析后的结果，便于在测试中注入。
type cliOptions struct {
	configPath  string
	checkOnly   bool
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
	os.Exit(run(opts))
}

// run 根据解析到的 CLI 选项执行业务流程，并返回退出码，方便测试。
func run(opts cliOptions) int {
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
		fields["registry"] = cfg.Registry.Upstream
		fields["credentials"] = cfg.Registry.AuthMode()
		fields["generator"] = cfg.Generator.Command
		fields["result"] = "ok"
		logger.WithFields(fields).Info("配置校验通过")
		return 0
	}

	app, docsCache, recorder, err := buildApp(cfg, logger)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化服务失败: %v\n", err)
		return 1
	}

	fields := logging.BaseFields("startup", opts.configPath)
	fields["listen_port"] = cfg.Global.ListenPort
	fields["registry"] = cfg.Registry.Upstream
	fields["credentials"] = cfg.Registry.AuthMode()
	fields["cache_capacity"] = cfg.Global.CacheCapacity
	fields["work_path"] = cfg.Global.WorkPath
	fields["version"] = version.Full()
	logger.WithFields(fields).Info("配置加载完成")

	if _, err := exec.LookPath(cfg.Generator.Command[0]); err != nil {
		logger.WithFields(logrus.Fields{
			"action":  "startup",
			"command": cfg.Generator.Command[0],
		}).WithError(err).Warn("未找到文档生成器，构建请求将失败")
	}

	routes.RegisterDiagnostics(app, docsCache, recorder)
	if err := startHTTPServer(app, cfg.Global.ListenPort, logger); err != nil {
		fmt.Fprintf(stdErr, "HTTP 服务启动失败: %v\n", err)
		return 1
	}
	return 0
}

// buildApp 按“Registry 客户端 → 构建流水线 → 文档缓存 → Fiber server”顺序装配组件，
// 保证所有请求共享同一缓存实例与指标注册表。
func buildApp(cfg *config.Config, logger *logrus.Logger) (*fiber.App, *cache.DocsCache, *metrics.Recorder, error) {
	recorder := metrics.New()

	client, err := registry.NewClient(server.NewUpstreamClient(cfg), cfg.Registry)
	if err != nil {
		return nil, nil, nil, err
	}

	builder, err := pipeline.NewBuilder(pipeline.BuilderOptions{
		Fetcher: client,
		Runner: &generator.BinaryRunner{
			Command:   cfg.Generator.Command,
			ExtraArgs: cfg.Generator.ExtraArgs,
			Dir:       cfg.Generator.Dir,
			Logger:    logger,
		},
		Workspace:     workspace.NewManager(cfg.Global.WorkPath),
		Logger:        logger,
		Metrics:       recorder,
		MaxConcurrent: cfg.Global.MaxConcurrentBuilds,
	})
	if err != nil {
		return nil, nil, nil, err
	}

	docsCache, err := cache.New(cfg.Global.CacheCapacity, builder, cache.WithLogger(logger), cache.WithMetrics(recorder))
	if err != nil {
		return nil, nil, nil, err
	}

	app, err := server.NewApp(server.AppOptions{
		Logger:  logger,
		Docs:    docserver.NewHandler(docsCache, logger),
		Metrics: recorder,
	})
	if err != nil {
		return nil, nil, nil, err
	}
	return app, docsCache, recorder, nil
}

// parseCLIFlags 解析 CLI 参数，并结合环境变量计算最终的配置路径。
func parseCLIFlags(args []string) (cliOptions, error) {
	fs := pflag.NewFlagSet("grimoire", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		configFlag string
		checkOnly  bool
		showVer    bool
	)

	fs.StringVarP(&configFlag, "config", "c", "", "配置文件路径（默认 ./config.toml，可被 GRIMOIRE_CONFIG 覆盖）")
	fs.BoolVar(&checkOnly, "check-config", false, "仅校验配置后退出")
	fs.BoolVarP(&showVer, "version", "v", false, "显示版本信息")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("解析参数失败: %w", err)
	}

	path := os.Getenv("GRIMOIRE_CONFIG")
	if configFlag != "" {
		path = configFlag
	}
	if path == "" {
		path = "config.toml"
	}

	return cliOptions{
		configPath:  path,
		checkOnly:   checkOnly,
		showVersion: showVer,
	}, nil
}

func startHTTPServer(app *fiber.App, port int, logger *logrus.Logger) error {
	logger.WithFields(logrus.Fields{
		"action": "listen",
		"port":   port,
	}).Info("Fiber 服务启动")

	return app.Listen(fmt.Sprintf(":%d", port))
}
