package config

const (
	defaultDataDir   = "~/.local/share/greenlight"
	defaultLogDir    = "~/.local/share/greenlight/logs"
	defaultExportDir = "~/greenlight-exports"

	defaultGeminiBaseURL    = "https://generativelanguage.googleapis.com/v1beta"
	defaultTextModel        = "gemini-2.5-flash"
	defaultImageModel       = "gemini-2.5-flash-image"
	defaultGeminiTimeout    = 120
	defaultRetryAttempts    = 4
	defaultRetryBaseMillis  = 1000
	defaultPortraitDelayMS  = 1500
	defaultDebounceMillis   = 1500
	defaultAutosaveInterval = 120

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:   defaultDataDir,
			LogDir:    defaultLogDir,
			ExportDir: defaultExportDir,
		},
		Gemini: Gemini{
			BaseURL:         defaultGeminiBaseURL,
			TextModel:       defaultTextModel,
			ImageModel:      defaultImageModel,
			TimeoutSeconds:  defaultGeminiTimeout,
			RetryAttempts:   defaultRetryAttempts,
			RetryBaseMillis: defaultRetryBaseMillis,
			PortraitDelayMS: defaultPortraitDelayMS,
		},
		Workflow: Workflow{
			AutosaveDebounceMillis:  defaultDebounceMillis,
			AutosaveIntervalSeconds: defaultAutosaveInterval,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
