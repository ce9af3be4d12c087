package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/example/ai-disease/internal/config"
)

// NewLogger builds the console's structured logger from the log settings.
func NewLogger(cfg config.LogConfig) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	if cfg.Development {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.EncoderConfig.TimeKey = "timestamp"

	if cfg.Level != "" {
		level, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, err
		}
		zapCfg.Level = zap.NewAtomicLevelAt(level)
	}
	return zapCfg.Build()
}

// WithOperation enriches the logger with the operation and submission identifier.
func WithOperation(logger *zap.Logger, operation, submissionID string) *zap.Logger {
	fields := []zap.Field{zap.String("operation", operation)}
	if submissionID != "" {
		fields = append(fields, zap.String("submission_id", submissionID))
	}
	return logger.With(fields...)
}
