// Package log provides the named sub logger system used across the module
package log

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Info takes a pointer subLogger struct and string sends to the logger
func Info(sl *SubLogger, data string) {
	sl.get().Info(data)
}

// Infoln takes a pointer subLogger struct and interface sends to the logger
func Infoln(sl *SubLogger, v ...any) {
	sl.get().Infoln(v...)
}

// Infof takes a pointer subLogger struct, string and interface formats sends
// to the logger
func Infof(sl *SubLogger, data string, v ...any) {
	sl.get().Infof(data, v...)
}

// Debug takes a pointer subLogger struct and string sends to the logger
func Debug(sl *SubLogger, data string) {
	sl.get().Debug(data)
}

// Debugln takes a pointer subLogger struct, string and interface sends to the
// logger
func Debugln(sl *SubLogger, v ...any) {
	sl.get().Debugln(v...)
}

// Debugf takes a pointer subLogger struct, string and interface formats sends
// to the logger
func Debugf(sl *SubLogger, data string, v ...any) {
	sl.get().Debugf(data, v...)
}

// Warn takes a pointer subLogger struct & string and sends to the logger
func Warn(sl *SubLogger, data string) {
	sl.get().Warn(data)
}

// Warnln takes a pointer subLogger struct & interface formats and sends to
// the logger
func Warnln(sl *SubLogger, v ...any) {
	sl.get().Warnln(v...)
}

// Warnf takes a pointer subLogger struct, string and interface formats sends
// to the logger
func Warnf(sl *SubLogger, data string, v ...any) {
	sl.get().Warnf(data, v...)
}

// Error takes a pointer subLogger struct & interface formats and sends to
// the logger
func Error(sl *SubLogger, data string) {
	sl.get().Error(data)
}

// Errorln takes a pointer subLogger struct, string & interface formats and
// sends to the logger
func Errorln(sl *SubLogger, v ...any) {
	sl.get().Errorln(v...)
}

// Errorf takes a pointer subLogger struct, string and interface formats sends
// to the logger
func Errorf(sl *SubLogger, data string, v ...any) {
	sl.get().Errorf(data, v...)
}

// Name returns the sub logger name
func (sl *SubLogger) Name() string {
	if sl == nil {
		return ""
	}
	return sl.name
}

// Enabled reports whether the level would be emitted
func (sl *SubLogger) Enabled(lvl zapcore.Level) bool {
	if sl == nil {
		return false
	}
	return sl.level.Enabled(lvl)
}

// get falls back to the Global sub logger when sl is nil
func (sl *SubLogger) get() *zap.SugaredLogger {
	if sl == nil {
		sl = Global
	}
	sl.mtx.RLock()
	defer sl.mtx.RUnlock()
	return sl.sugar
}
