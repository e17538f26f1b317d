package application

import (
	"fmt"
	"os"
	"strings"

	"github.com/lk2023060901/jsonhook-go/pkg/jsonhook"
	zlog "github.com/lk2023060901/jsonhook-go/pkg/log"
	zviper "github.com/lk2023060901/jsonhook-go/pkg/util/viper"
)

const (
	envPrefix         = "JSONHOOK"
	envConfigFilePath = envPrefix + "_CONFIG_FILE_PATH"
	defaultConfigPath = "./config.yaml"
)

// Application 是 jsonhook 服务的运行时容器，负责加载配置并管理日志等公共依赖。
type Application struct {
	cfg     *zviper.Config
	json    jsonhook.Config
	loggers map[string]*zlog.MLogger
}

// fileConfig 为配置文件的根结构。
type fileConfig struct {
	Logging  map[string]zlog.Config `mapstructure:"logging"`
	JSONHook jsonhook.Config        `mapstructure:"jsonhook"`
}

// New creates a new Application instance.
func New() *Application {
	return &Application{json: jsonhook.DefaultConfig()}
}

// Run 解析 os.Args 并加载配置文件，优先级：
//  1. 默认：./config.yaml
//  2. 环境变量：JSONHOOK_CONFIG_FILE_PATH
//  3. 命令行：--config <path> 或 --config=<path>
func (a *Application) Run() error {
	return a.RunWithArgs(os.Args[1:])
}

// RunWithArgs 与 Run 相同，但使用给定的命令行参数。
func (a *Application) RunWithArgs(args []string) error {
	path, err := resolveConfigPath(args)
	if err != nil {
		return err
	}
	cfg, err := a.loadConfig(path)
	if err != nil {
		return err
	}
	a.cfg = cfg

	var root fileConfig
	if err := cfg.Unmarshal(&root); err != nil {
		return fmt.Errorf("failed to decode config file %q: %w", path, err)
	}
	if err := root.JSONHook.Validate(); err != nil {
		return err
	}
	a.json = root.JSONHook

	if err := a.initLogging(root.Logging); err != nil {
		return err
	}
	return nil
}

// Config returns the loaded configuration, if any.
func (a *Application) Config() *zviper.Config {
	return a.cfg
}

// JSONConfig 返回 jsonhook 配置段；未加载配置时为 jsonhook.DefaultConfig()。
func (a *Application) JSONConfig() jsonhook.Config {
	return a.json
}

// Logger returns a named logger created from configuration.
// If the name is unknown, it falls back to the global logger.
func (a *Application) Logger(name string) *zlog.MLogger {
	if lg, ok := a.loggers[name]; ok && lg != nil {
		return lg
	}
	return &zlog.MLogger{Logger: zlog.L()}
}

// NewModule 创建名为 name 的 jsonhook.Module，并绑定同名 Logger。
func (a *Application) NewModule(name string) *jsonhook.Module {
	m := jsonhook.NewModule(name)
	m.SetLogger(a.Logger(name))
	return m
}

func resolveConfigPath(args []string) (string, error) {
	configPath := defaultConfigPath
	if envPath := os.Getenv(envConfigFilePath); envPath != "" {
		configPath = envPath
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--config" {
			if i+1 >= len(args) {
				return "", fmt.Errorf("missing value after --config")
			}
			configPath = args[i+1]
			i++
			continue
		}
		if strings.HasPrefix(arg, "--config=") {
			if val := strings.TrimPrefix(arg, "--config="); val != "" {
				configPath = val
			}
		}
	}
	return configPath, nil
}

// loadConfig 加载配置文件，并注册 jsonhook 段的默认值，使 JSONHOOK_JSONHOOK_* 环境变量可以覆盖。
func (a *Application) loadConfig(path string) (*zviper.Config, error) {
	cfg := zviper.New()
	cfg.SetEnvPrefix(envPrefix)

	def := jsonhook.DefaultConfig()
	for key, value := range map[string]any{
		"escape-html":                 def.EscapeHTML,
		"sort-map-keys":               def.SortMapKeys,
		"indention-step":              def.IndentionStep,
		"marshal-float-with-6-digits": def.MarshalFloatWith6Digits,
		"use-number":                  def.UseNumber,
		"tag-key":                     def.TagKey,
		"only-tagged-field":           def.OnlyTaggedField,
		"case-sensitive":              def.CaseSensitive,
		"validate-json-raw-message":   def.ValidateJsonRawMessage,
	} {
		cfg.SetDefault(jsonhook.ConfigKey+"."+key, value)
	}

	if err := cfg.LoadFile(path); err != nil {
		return nil, fmt.Errorf("failed to load config file %q: %w", path, err)
	}
	return cfg, nil
}

// initLogging initializes global and module-level loggers.
func (a *Application) initLogging(modules map[string]zlog.Config) error {
	if err := a.initGlobalLoggerFromEnv(); err != nil {
		return err
	}
	return a.initModuleLoggers(modules)
}

// initGlobalLoggerFromEnv 根据 JSONHOOK_LOG_* 环境变量配置进程级 Logger：
//   - JSONHOOK_LOG_ENABLE："1"/"true" 开启输出，其余视为关闭。
//   - JSONHOOK_LOG_LEVEL：日志级别，默认 info。
//   - JSONHOOK_LOG_STDOUT：是否输出到标准输出，默认 false。
//   - JSONHOOK_LOG_FILE_DIR：日志目录。
//   - JSONHOOK_LOG_FILE：日志文件名，留空表示不写文件。
//   - JSONHOOK_LOG_FORMAT：日志格式（text 或 json），默认 text。
func (a *Application) initGlobalLoggerFromEnv() error {
	enabled := getenvBool(envPrefix+"_LOG_ENABLE", false)

	cfg := &zlog.Config{
		Level:  getenvDefault(envPrefix+"_LOG_LEVEL", "info"),
		Format: getenvDefault(envPrefix+"_LOG_FORMAT", zlog.FormatText),
		Stdout: getenvBool(envPrefix+"_LOG_STDOUT", false),
		File: zlog.FileLogConfig{
			RootPath: getenvDefault(envPrefix+"_LOG_FILE_DIR", ""),
			Filename: getenvDefault(envPrefix+"_LOG_FILE", ""),
		},
	}

	// 未开启时所有输出都丢弃。
	if !enabled {
		cfg.Stdout = false
		cfg.File.Filename = ""
	}

	logger, props, err := zlog.InitLogger(cfg)
	if err != nil {
		return fmt.Errorf("init global logger from env: %w", err)
	}
	zlog.ReplaceGlobals(logger, props)
	return nil
}

// initModuleLoggers 根据配置文件 logging 段创建具名 Logger。
//
// 示例：
//
//	logging:
//	  orders:
//	    level: debug
//	    stdout: true
//	    file:
//	      rootpath: ./logs
//	      filename: orders.log
func (a *Application) initModuleLoggers(modules map[string]zlog.Config) error {
	if len(modules) == 0 {
		return nil
	}

	a.loggers = make(map[string]*zlog.MLogger, len(modules))
	for name, lc := range modules {
		cfgCopy := lc
		logger, _, err := zlog.InitLogger(&cfgCopy)
		if err != nil {
			return fmt.Errorf("init module logger %q: %w", name, err)
		}
		a.loggers[name] = &zlog.MLogger{Logger: logger.With(zlog.FieldModule(name))}
	}
	return nil
}

func getenvDefault(key, def string) string {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return def
	}
	return val
}

func getenvBool(key string, def bool) bool {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return def
	}
	switch strings.ToLower(val) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}
