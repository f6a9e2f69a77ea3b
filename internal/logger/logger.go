package logger

import (
	"context"
	"time"

	"github.com/brfledger/utilitybilling/internal/config"
	"github.com/brfledger/utilitybilling/internal/types"
	"github.com/fluent/fluent-logger-golang/fluent"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const defaultFluentdTag = "utilitybilling.logs"

// Logger is the sugared zap logger shared by every component. When fluentd is
// configured each entry is also forwarded to it as a structured record.
type Logger struct {
	*zap.SugaredLogger
	forwarder poster
}

// poster is the part of the fluentd client the forwarding core needs
type poster interface {
	Post(tag string, message interface{}) error
	Close() error
}

func NewLogger(cfg *config.Configuration) (*Logger, error) {
	zapConfig := zap.NewProductionConfig()
	if cfg.Logging.Level == types.LogLevelDebug {
		zapConfig = zap.NewDevelopmentConfig()
	}
	zapConfig.EncoderConfig.TimeKey = "timestamp"
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapConfig.DisableStacktrace = true

	zapLogger, err := zapConfig.Build()
	if err != nil {
		return nil, err
	}

	if !cfg.Logging.FluentdEnabled {
		return &Logger{SugaredLogger: zapLogger.Sugar()}, nil
	}
	if cfg.Logging.FluentdHost == "" || cfg.Logging.FluentdPort <= 0 {
		zapLogger.Sugar().Warnw("fluentd enabled without host and port, logging to stdout only")
		return &Logger{SugaredLogger: zapLogger.Sugar()}, nil
	}

	client, err := fluent.New(fluent.Config{
		FluentHost:   cfg.Logging.FluentdHost,
		FluentPort:   cfg.Logging.FluentdPort,
		Async:        true,
		BufferLimit:  8 * 1024 * 1024,
		WriteTimeout: 3 * time.Second,
		RetryWait:    500,
		MaxRetry:     5,
	})
	if err != nil {
		zapLogger.Sugar().Warnw("fluentd unavailable, logging to stdout only", "error", err)
		return &Logger{SugaredLogger: zapLogger.Sugar()}, nil
	}

	tag := cfg.Logging.FluentdTag
	if tag == "" {
		tag = defaultFluentdTag
	}
	return newForwardingLogger(zapLogger.Core(), client, tag, zapConfig.Level, string(cfg.Deployment.Mode)), nil
}

// newForwardingLogger tees base with a core that posts every enabled entry to client
func newForwardingLogger(base zapcore.Core, client poster, tag string, level zapcore.LevelEnabler, mode string) *Logger {
	forward := &fluentCore{LevelEnabler: level, client: client, tag: tag}
	core := zapcore.NewTee(base, forward)
	return &Logger{
		SugaredLogger: zap.New(core).Sugar().With("mode", mode),
		forwarder:     client,
	}
}

// WithContext attaches the request and user ids carried by ctx
func (l *Logger) WithContext(ctx context.Context) *Logger {
	var fields []interface{}
	if requestID := types.GetRequestID(ctx); requestID != "" {
		fields = append(fields, "request_id", requestID)
	}
	if userID := types.GetUserID(ctx); userID != "" {
		fields = append(fields, "user_id", userID)
	}
	if len(fields) == 0 {
		return l
	}
	return l.WithFields(fields...)
}

// WithFields returns a child logger carrying the given key/value pairs
func (l *Logger) WithFields(keysAndValues ...interface{}) *Logger {
	return &Logger{
		SugaredLogger: l.SugaredLogger.With(keysAndValues...),
		forwarder:     l.forwarder,
	}
}

// Close flushes zap and the fluentd client
func (l *Logger) Close() error {
	_ = l.SugaredLogger.Sync()
	if l.forwarder != nil {
		return l.forwarder.Close()
	}
	return nil
}

func NewNopLogger() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}

// fluentCore is a zapcore.Core that turns entries into fluentd records
type fluentCore struct {
	zapcore.LevelEnabler
	client poster
	tag    string
	fields []zapcore.Field
}

func (c *fluentCore) With(fields []zapcore.Field) zapcore.Core {
	merged := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	merged = append(merged, c.fields...)
	merged = append(merged, fields...)
	return &fluentCore{LevelEnabler: c.LevelEnabler, client: c.client, tag: c.tag, fields: merged}
}

func (c *fluentCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *fluentCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range c.fields {
		f.AddTo(enc)
	}
	for _, f := range fields {
		f.AddTo(enc)
	}
	record := enc.Fields
	record["level"] = ent.Level.String()
	record["message"] = ent.Message
	record["timestamp"] = ent.Time.UTC().Format(time.RFC3339)
	if ent.LoggerName != "" {
		record["logger"] = ent.LoggerName
	}
	// async client: Post only fails when the buffer is full or the client is closed
	return c.client.Post(c.tag, record)
}

func (c *fluentCore) Sync() error { return nil }

// temporalLogger adapts Logger to the temporal sdk log.Logger interface
type temporalLogger struct {
	logger *Logger
}

func (l *Logger) GetTemporalLogger() *temporalLogger {
	return &temporalLogger{logger: l}
}

func (t *temporalLogger) Debug(msg string, keyvals ...interface{}) { t.logger.Debugw(msg, keyvals...) }
func (t *temporalLogger) Info(msg string, keyvals ...interface{})  { t.logger.Infow(msg, keyvals...) }
func (t *temporalLogger) Warn(msg string, keyvals ...interface{})  { t.logger.Warnw(msg, keyvals...) }
func (t *temporalLogger) Error(msg string, keyvals ...interface{}) { t.logger.Errorw(msg, keyvals...) }

// ginLogger writes gin's debug output through Logger
type ginLogger struct {
	logger *Logger
}

func (l *Logger) GetGinLogger() *ginLogger {
	return &ginLogger{logger: l}
}

func (g *ginLogger) Write(p []byte) (n int, err error) {
	g.logger.Info(string(p))
	return len(p), nil
}
