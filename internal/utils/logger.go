// internal/utils/logger.go
package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"camera-service/internal/config"
)

const defaultLogFile = "./logs/camera-service.log"

// NewLogger creates a new logger instance based on configuration
func NewLogger(cfg *config.LoggingConfig) (*zap.Logger, error) {
	encoder := zapcore.NewJSONEncoder(encoderConfig(cfg.Format))
	if cfg.Format == "console" {
		encoder = zapcore.NewConsoleEncoder(encoderConfig(cfg.Format))
	}

	sink, err := writeSyncer(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create write syncer: %w", err)
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("failed to parse log level: %w", err)
	}

	core := zapcore.NewCore(encoder, sink, level)
	return zap.New(core,
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	), nil
}

func encoderConfig(format string) zapcore.EncoderConfig {
	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "timestamp"
	ec.EncodeTime = zapcore.TimeEncoderOfLayout(time.RFC3339)
	ec.LevelKey = "level"
	ec.EncodeLevel = zapcore.LowercaseLevelEncoder
	ec.CallerKey = "caller"
	ec.EncodeCaller = zapcore.ShortCallerEncoder
	ec.MessageKey = "message"
	ec.StacktraceKey = "stacktrace"

	if format == "console" {
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		ec.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	}
	return ec
}

// writeSyncer returns stdout, stderr or a rotated log file.
func writeSyncer(cfg *config.LoggingConfig) (zapcore.WriteSyncer, error) {
	switch cfg.Output {
	case "stdout":
		return zapcore.AddSync(os.Stdout), nil
	case "stderr":
		return zapcore.AddSync(os.Stderr), nil
	}

	path := cfg.Output
	if path == "" {
		path = defaultLogFile
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    cfg.MaxSize, // MB
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge, // days
		Compress:   cfg.Compress,
	}), nil
}

// CameraLogger carries the link identity on every line.
type CameraLogger struct {
	*zap.Logger
	device string
	model  string
}

// NewCameraLogger creates a camera-specific logger
func NewCameraLogger(base *zap.Logger, device, model, transport string) *CameraLogger {
	return &CameraLogger{
		Logger: base.With(
			zap.String("device", device),
			zap.String("model", model),
			zap.String("transport", transport),
			zap.String("component", "camera"),
		),
		device: device,
		model:  model,
	}
}

// LogSession logs the end of a link session
func (cl *CameraLogger) LogSession(operation string, duration time.Duration, err error) {
	fields := []zap.Field{
		zap.String("operation", operation),
		zap.Duration("duration", duration),
		zap.Bool("success", err == nil),
	}
	if err != nil {
		cl.Error("Camera session failed", append(fields, zap.Error(err))...)
		return
	}
	cl.Info("Camera session completed", fields...)
}

// LogProtocolError records an engine diagnostic. Most are absorbed by
// retries, so they stay at debug unless the caller escalates.
func (cl *CameraLogger) LogProtocolError(code int, message string) {
	cl.Debug("Camera protocol diagnostic",
		zap.Int("code", code),
		zap.String("message", message),
	)
}

// TransferLogger tracks one image transfer from start to finish
type TransferLogger struct {
	logger    *zap.Logger
	startTime time.Time
}

// NewTransferLogger creates a transfer-specific logger
func NewTransferLogger(base *zap.Logger, transferID string, register, slot int) *TransferLogger {
	return &TransferLogger{
		logger: base.With(
			zap.String("transfer_id", transferID),
			zap.Int("register", register),
			zap.Int("slot", slot),
			zap.String("component", "transfer"),
		),
		startTime: time.Now(),
	}
}

func (tl *TransferLogger) Start(fields ...zap.Field) {
	tl.logger.Info("Transfer started", append([]zap.Field{zap.Time("start_time", tl.startTime)}, fields...)...)
}

func (tl *TransferLogger) Success(bytes int64, fields ...zap.Field) {
	tl.logger.Info("Transfer completed", append([]zap.Field{
		zap.Int64("bytes", bytes),
		zap.Duration("duration", time.Since(tl.startTime)),
	}, fields...)...)
}

func (tl *TransferLogger) Error(err error, fields ...zap.Field) {
	tl.logger.Error("Transfer failed", append([]zap.Field{
		zap.Duration("duration", time.Since(tl.startTime)),
		zap.Error(err),
	}, fields...)...)
}

// Progress logs at debug; the event bus carries progress to clients.
func (tl *TransferLogger) Progress(bytes, total int64) {
	tl.logger.Debug("Transfer progress",
		zap.Int64("bytes", bytes),
		zap.Int64("total", total),
		zap.Duration("elapsed", time.Since(tl.startTime)),
	)
}

// ServiceLogger provides service-level logging functionality
type ServiceLogger struct {
	*zap.Logger
	serviceName string
}

// NewServiceLogger creates a service-specific logger
func NewServiceLogger(base *zap.Logger, serviceName string) *ServiceLogger {
	return &ServiceLogger{
		Logger: base.With(
			zap.String("service", serviceName),
			zap.String("component", "service"),
		),
		serviceName: serviceName,
	}
}

// LogServiceStart logs service startup
func (sl *ServiceLogger) LogServiceStart(version string, fields ...zap.Field) {
	sl.Info("Service starting", append([]zap.Field{zap.String("version", version)}, fields...)...)
}

// LogServiceStop logs service shutdown
func (sl *ServiceLogger) LogServiceStop(reason string) {
	sl.Info("Service stopping", zap.String("reason", reason))
}

// LogAPIRequest logs HTTP API requests
func (sl *ServiceLogger) LogAPIRequest(method, path, clientIP, requestID string, statusCode int, duration time.Duration) {
	level := zapcore.InfoLevel
	if statusCode >= 400 {
		level = zapcore.WarnLevel
	}
	if statusCode >= 500 {
		level = zapcore.ErrorLevel
	}

	if ce := sl.Check(level, "API request"); ce != nil {
		ce.Write(
			zap.String("method", method),
			zap.String("path", path),
			zap.String("client_ip", clientIP),
			zap.String("request_id", requestID),
			zap.Int("status_code", statusCode),
			zap.Duration("duration", duration),
		)
	}
}

// LogDatabaseQuery logs database queries (for debugging)
func (sl *ServiceLogger) LogDatabaseQuery(query string, duration time.Duration, err error) {
	fields := []zap.Field{
		zap.String("query", query),
		zap.Duration("duration", duration),
	}
	if err != nil {
		sl.Error("Database query failed", append(fields, zap.Error(err))...)
		return
	}
	sl.Debug("Database query executed", fields...)
}
