package config

const (
	defaultDataDir            = "~/.local/share/applyd/data"
	defaultLogDir             = "~/.local/share/applyd/logs"
	defaultTemplatesDir       = "~/.config/applyd/templates"
	defaultAPIBind            = "127.0.0.1:8642"
	defaultQueuePollInterval  = 3
	defaultErrorRetryInterval = 10
	defaultMaxRetries         = 2
	defaultWorkers            = 1
	defaultSubmitMode         = "dryrun"
	defaultSubmitTimeout      = 60
	defaultConnectorTimeout   = 20
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:      defaultDataDir,
			LogDir:       defaultLogDir,
			TemplatesDir: defaultTemplatesDir,
			APIBind:      defaultAPIBind,
		},
		Workflow: Workflow{
			QueuePollInterval:  defaultQueuePollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
			MaxRetries:         defaultMaxRetries,
			Workers:            defaultWorkers,
		},
		Submit: Submit{
			Mode:           defaultSubmitMode,
			RequestTimeout: defaultSubmitTimeout,
		},
		Connectors: Connectors{
			RequestTimeout: defaultConnectorTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
