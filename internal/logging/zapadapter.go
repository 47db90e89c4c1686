package logging

import (
	"math"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapAdapter implements zapcore.Core on top of the service Logger, so
// components that log with typed zap fields share one output stream and
// level gate with the rest of the service.
type ZapAdapter struct {
	logger *Logger
}

// NewZapAdapter creates a zapcore.Core forwarding to the given Logger.
func NewZapAdapter(logger *Logger) *ZapAdapter {
	return &ZapAdapter{logger: logger}
}

// NewZapLogger creates a *zap.Logger whose entries flow through the given
// service Logger.
func NewZapLogger(logger *Logger) *zap.Logger {
	return zap.New(NewZapAdapter(logger), zap.AddCaller())
}

// levelFromZap narrows a zapcore level to a service level. Panic levels
// map to Error; the adapter never exits the process on zap's behalf
// except for Fatal.
func levelFromZap(level zapcore.Level) Level {
	switch {
	case level <= zapcore.DebugLevel:
		return DebugLevel
	case level == zapcore.InfoLevel:
		return InfoLevel
	case level == zapcore.WarnLevel:
		return WarnLevel
	case level == zapcore.FatalLevel:
		return FatalLevel
	default:
		return ErrorLevel
	}
}

// fieldValue unpacks a zapcore.Field into a plain value. zap stores
// numeric values in Field.Integer, floats as raw bits.
func fieldValue(field zapcore.Field) interface{} {
	switch field.Type {
	case zapcore.StringType:
		return field.String
	case zapcore.Int64Type, zapcore.Int32Type, zapcore.Int16Type, zapcore.Int8Type,
		zapcore.Uint64Type, zapcore.Uint32Type, zapcore.Uint16Type, zapcore.Uint8Type:
		return field.Integer
	case zapcore.Float64Type:
		return math.Float64frombits(uint64(field.Integer))
	case zapcore.Float32Type:
		return float64(math.Float32frombits(uint32(field.Integer)))
	case zapcore.BoolType:
		return field.Integer == 1
	case zapcore.DurationType:
		return time.Duration(field.Integer).String()
	case zapcore.ErrorType:
		if err, ok := field.Interface.(error); ok {
			return err.Error()
		}
		return field.Interface
	default:
		return field.Interface
	}
}

// Enabled implements zapcore.Core.
func (a *ZapAdapter) Enabled(level zapcore.Level) bool {
	return a.logger.shouldLog(levelFromZap(level))
}

// With implements zapcore.Core.
func (a *ZapAdapter) With(fields []zapcore.Field) zapcore.Core {
	f := make(map[string]interface{}, len(fields))
	for _, field := range fields {
		f[field.Key] = fieldValue(field)
	}
	return &ZapAdapter{logger: a.logger.WithFields(f)}
}

// Check implements zapcore.Core.
func (a *ZapAdapter) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if a.Enabled(ent.Level) {
		return ce.AddCore(ent, a)
	}
	return ce
}

// Write implements zapcore.Core.
func (a *ZapAdapter) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	f := make(map[string]interface{}, len(fields)+2)
	if ent.LoggerName != "" {
		f["logger"] = ent.LoggerName
	}
	if ent.Caller.Defined {
		f["caller"] = ent.Caller.TrimmedPath()
	}
	for _, field := range fields {
		f[field.Key] = fieldValue(field)
	}

	a.logger.log(levelFromZap(ent.Level), ent.Message, f)
	return nil
}

// Sync implements zapcore.Core.
func (a *ZapAdapter) Sync() error {
	return nil
}
