package gwlog

const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

const (
	FormatJSON    = "json"
	FormatConsole = "console"
	FormatText    = "text"
)

// Config controls the gateway's logging sinks. NewLogger rejects a
// Config with neither console nor file output enabled; NewDefault builds
// a console-only, debug-level logger without one.
type Config struct {
	Level   string        `yaml:"level"`
	Console ConsoleConfig `yaml:"console"`
	File    FileConfig    `yaml:"file"`
}

type ConsoleConfig struct {
	Enabled bool   `yaml:"enabled"`
	Format  string `yaml:"format"`
	Level   string `yaml:"level,omitempty"`
}

type FileConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Path     string         `yaml:"path"`
	Format   string         `yaml:"format"`
	Level    string         `yaml:"level,omitempty"`
	Rotation RotationConfig `yaml:"rotation"`
}

type RotationConfig struct {
	MaxSize    int  `yaml:"max_size"`
	MaxAge     int  `yaml:"max_age"`
	MaxBackups int  `yaml:"max_backups"`
	Compress   bool `yaml:"compress"`
}
