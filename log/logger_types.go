package log

import (
	"sync"

	"go.uber.org/zap"
)

const (
	defaultLevels = "INFO|WARN|ERROR"
	defaultOutput = "stderr"
)

var (
	// mu guards sub logger registration and reconfiguration
	mu = &sync.RWMutex{}

	subLoggers = map[string]*SubLogger{}
)

// Config holds configuration settings for the logging system
type Config struct {
	Enabled *bool `json:"enabled" mapstructure:"enabled"`

	SubLoggerConfig `mapstructure:",squash"`

	Development bool              `json:"development" mapstructure:"development"`
	SubLoggers  []SubLoggerConfig `json:"subloggers,omitempty" mapstructure:"subloggers"`
}

// SubLoggerConfig holds sub logger configuration settings. Level is a pipe
// delimited list such as "INFO|DEBUG|WARN|ERROR", Output a pipe delimited list
// of "console", "stdout", "stderr" or file paths.
type SubLoggerConfig struct {
	Name   string `json:"name,omitempty" mapstructure:"name"`
	Level  string `json:"level" mapstructure:"level"`
	Output string `json:"output" mapstructure:"output"`
}

// SubLogger defines a named logging subsystem with its own level
type SubLogger struct {
	name  string
	level zap.AtomicLevel
	mtx   sync.RWMutex
	sugar *zap.SugaredLogger
}
