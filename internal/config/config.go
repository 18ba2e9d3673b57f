package config

import "time"

// AutoConnect describes a server to connect to on startup.
type AutoConnect struct {
	Server string `mapstructure:"server" yaml:"server"`
	Nick   string `mapstructure:"nick" yaml:"nick"`
}

// Config holds client configuration values.
type Config struct {
	LogLevel      string        `mapstructure:"log_level" yaml:"log_level"`
	QueueSize     int           `mapstructure:"queue_size" yaml:"queue_size"`
	Notifications bool          `mapstructure:"notifications" yaml:"notifications"`
	ArchiveEnable bool          `mapstructure:"archive_enable" yaml:"archive_enable"`
	ArchivePath   string        `mapstructure:"archive_path" yaml:"archive_path"`
	ArchiveBuffer int           `mapstructure:"archive_buffer" yaml:"archive_buffer"`
	ArchiveFlush  time.Duration `mapstructure:"archive_flush" yaml:"archive_flush"`
	AutoConnect   []AutoConnect `mapstructure:"auto_connect" yaml:"auto_connect"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		LogLevel:      "info",
		QueueSize:     256,
		Notifications: true,
		ArchiveEnable: true,
		ArchivePath:   "corvid.db",
		ArchiveBuffer: 100,
		ArchiveFlush:  5 * time.Second,
	}
}
