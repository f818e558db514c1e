package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLogger writes JSON structured logs through zap. Notice maps to zap's warn level.
type ZapLogger struct {
	log *zap.SugaredLogger
}

var _ Logger = (*ZapLogger)(nil)

// NewZapLogger builds a production zap logger at the given level
func NewZapLogger(level Level) (*ZapLogger, error) {
	cfg := zap.NewProductionConfig()

	switch level {
	case DebugLevel:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	case NoticeLevel:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	case ErrorLevel:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	log, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}
	return &ZapLogger{log: log.Sugar()}, nil
}

// NewZapLoggerFrom wraps an existing zap logger
func NewZapLoggerFrom(log *zap.Logger) *ZapLogger {
	return &ZapLogger{log: log.Sugar()}
}

func (z *ZapLogger) withChain(chainID int) *zap.SugaredLogger {
	return z.log.With("chain_id", chainID, "chain", chainLabels[chainIDMap[chainID]])
}

func (z *ZapLogger) Info(format string, args ...interface{}) {
	z.log.Infof(format, args...)
}

func (z *ZapLogger) InfoWithChain(chainID int, format string, args ...interface{}) {
	z.withChain(chainID).Infof(format, args...)
}

func (z *ZapLogger) Error(format string, args ...interface{}) {
	z.log.Errorf(format, args...)
}

func (z *ZapLogger) ErrorWithChain(chainID int, format string, args ...interface{}) {
	z.withChain(chainID).Errorf(format, args...)
}

func (z *ZapLogger) Debug(format string, args ...interface{}) {
	z.log.Debugf(format, args...)
}

func (z *ZapLogger) DebugWithChain(chainID int, format string, args ...interface{}) {
	z.withChain(chainID).Debugf(format, args...)
}

func (z *ZapLogger) Notice(format string, args ...interface{}) {
	z.log.Warnf(format, args...)
}

func (z *ZapLogger) NoticeWithChain(chainID int, format string, args ...interface{}) {
	z.withChain(chainID).Warnf(format, args...)
}

// Sync flushes buffered log entries
func (z *ZapLogger) Sync() error {
	return z.log.Sync()
}
