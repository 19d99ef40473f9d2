package log

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	errConfigIsNil        = errors.New("logger config is nil")
	errSubLoggerNameEmpty = errors.New("sub logger name is empty")
	errUnhandledLevel     = errors.New("unhandled log level")
	errSubLoggerNotFound  = errors.New("sub logger not found")
)

// GenDefaultSettings returns known sane logger settings
func GenDefaultSettings() Config {
	enabled := true
	return Config{
		Enabled: &enabled,
		SubLoggerConfig: SubLoggerConfig{
			Level:  defaultLevels,
			Output: defaultOutput,
		},
	}
}

// NewSubLogger registers a new named sub logger using the default settings.
// Registering an existing name returns the existing sub logger.
func NewSubLogger(name string) *SubLogger {
	name = strings.ToUpper(name)
	mu.Lock()
	defer mu.Unlock()
	if sl, ok := subLoggers[name]; ok {
		return sl
	}
	sl := &SubLogger{
		name:  name,
		level: zap.NewAtomicLevelAt(zapcore.InfoLevel),
	}
	defaults := GenDefaultSettings()
	if err := sl.configure(buildZapConfig(&defaults), defaults.Level); err != nil {
		sl.sugar = zap.NewNop().Sugar()
	}
	subLoggers[name] = sl
	return sl
}

// SetupGlobalLogger applies the config to every registered sub logger.
// Sub logger specific entries override the global level.
func SetupGlobalLogger(c *Config) error {
	if c == nil {
		return errConfigIsNil
	}
	for i := range c.SubLoggers {
		if c.SubLoggers[i].Name == "" {
			return errSubLoggerNameEmpty
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if c.Enabled != nil && !*c.Enabled {
		for _, sl := range subLoggers {
			sl.disable()
		}
		return nil
	}

	base := buildZapConfig(c)
	for name, sl := range subLoggers {
		levels := c.Level
		zc := base
		for i := range c.SubLoggers {
			if !strings.EqualFold(c.SubLoggers[i].Name, name) {
				continue
			}
			if c.SubLoggers[i].Level != "" {
				levels = c.SubLoggers[i].Level
			}
			if c.SubLoggers[i].Output != "" {
				zc.OutputPaths = outputPaths(c.SubLoggers[i].Output)
			}
		}
		if err := sl.configure(zc, levels); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// SetLevel changes the levels of a registered sub logger at runtime
func SetLevel(name, levels string) error {
	mu.RLock()
	sl, ok := subLoggers[strings.ToUpper(name)]
	mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", errSubLoggerNotFound, name)
	}
	lvl, err := splitLevel(levels)
	if err != nil {
		return err
	}
	sl.level.SetLevel(lvl)
	return nil
}

func buildZapConfig(c *Config) zap.Config {
	var zc zap.Config
	if c.Development {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zc = zap.NewProductionConfig()
		zc.Encoding = "console"
		zc.Sampling = nil
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	zc.DisableStacktrace = true
	zc.OutputPaths = outputPaths(c.Output)
	zc.ErrorOutputPaths = []string{"stderr"}
	return zc
}

func outputPaths(output string) []string {
	if output == "" {
		output = defaultOutput
	}
	parts := strings.Split(output, "|")
	paths := make([]string, 0, len(parts))
	for i := range parts {
		p := strings.TrimSpace(parts[i])
		switch strings.ToLower(p) {
		case "":
			continue
		case "console", "stdout":
			paths = append(paths, "stdout")
		case "stderr":
			paths = append(paths, "stderr")
		default:
			paths = append(paths, p)
		}
	}
	return paths
}

// splitLevel converts a pipe delimited level list into the lowest enabled
// zap level
func splitLevel(levels string) (zapcore.Level, error) {
	if levels == "" {
		return zapcore.InfoLevel, nil
	}
	lowest := zapcore.FatalLevel
	for _, l := range strings.Split(levels, "|") {
		var lvl zapcore.Level
		switch strings.ToUpper(strings.TrimSpace(l)) {
		case "DEBUG":
			lvl = zapcore.DebugLevel
		case "INFO":
			lvl = zapcore.InfoLevel
		case "WARN":
			lvl = zapcore.WarnLevel
		case "ERROR":
			lvl = zapcore.ErrorLevel
		default:
			return lowest, fmt.Errorf("%w: %q", errUnhandledLevel, l)
		}
		if lvl < lowest {
			lowest = lvl
		}
	}
	return lowest, nil
}

func (sl *SubLogger) configure(zc zap.Config, levels string) error {
	lvl, err := splitLevel(levels)
	if err != nil {
		return err
	}
	sl.level.SetLevel(lvl)
	zc.Level = sl.level
	l, err := zc.Build(zap.AddCallerSkip(1))
	if err != nil {
		return err
	}
	sl.mtx.Lock()
	sl.sugar = l.Sugar().Named(sl.name)
	sl.mtx.Unlock()
	return nil
}

func (sl *SubLogger) disable() {
	sl.mtx.Lock()
	sl.sugar = zap.NewNop().Sugar()
	sl.mtx.Unlock()
}
