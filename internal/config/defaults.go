package config

const (
	defaultDataDir           = "~/.local/share/lightbox"
	defaultLogDir            = "~/.local/share/lightbox/logs"
	defaultBlobDir           = "~/.local/share/lightbox/blobs"
	defaultAPIBind           = "127.0.0.1:7411"
	defaultArchiveDriver     = "local"
	defaultIndexDriver       = "sqlite"
	defaultBlobDriver        = "fs"
	defaultDICOMWebTimeout   = 30
	defaultMaxSessions       = 16
	defaultSessionTTLMinutes = 30
	defaultLayout            = 1
	defaultCineFPS           = 10
	defaultCineMaxFPS        = 60
	defaultBuildWorkers      = 4
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Archive: Archive{
			Driver:      defaultArchiveDriver,
			IndexDriver: defaultIndexDriver,
			BlobDriver:  defaultBlobDriver,
			BlobDir:     defaultBlobDir,
		},
		DICOMWeb: DICOMWeb{
			RequestTimeout: defaultDICOMWebTimeout,
		},
		Viewer: Viewer{
			MaxSessions:       defaultMaxSessions,
			SessionTTLMinutes: defaultSessionTTLMinutes,
			DefaultLayout:     defaultLayout,
			CineDefaultFPS:    defaultCineFPS,
			CineMaxFPS:        defaultCineMaxFPS,
			CineLoop:          true,
		},
		Volume: Volume{
			BuildWorkers: defaultBuildWorkers,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Metrics: Metrics{
			Enabled: true,
		},
	}
}
