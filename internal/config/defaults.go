package config

const (
	defaultDataDir        = "~/.local/share/reelsmith"
	defaultLogDir         = "~/.local/share/reelsmith/logs"
	defaultAPIBind        = "127.0.0.1:7523"
	defaultMaxCostUSD     = 10.0
	defaultTimeoutMinutes = 30
	defaultVisualBudget   = 5
	defaultHistoryLimit   = 10
	defaultLogLevel       = "info"
	defaultLogFormat      = "console"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Workflow: Workflow{
			MaxCostUSD:     defaultMaxCostUSD,
			TimeoutMinutes: defaultTimeoutMinutes,
			VisualBudget:   defaultVisualBudget,
			HistoryLimit:   defaultHistoryLimit,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}
