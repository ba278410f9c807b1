package logger

import (
	"context"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"blog-entries-service/config"
)

var Logger = logrus.New()

// InitLogger configures the shared logger. A nil output keeps stdout.
func InitLogger(cfg config.LogConfig, output io.Writer) {
	if cfg.JSON {
		Logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		Logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			DisableColors: true,
		})
	}

	if output != nil {
		Logger.SetOutput(output)
	} else {
		Logger.SetOutput(os.Stdout)
	}

	if cfg.Level == "" {
		cfg.Level = "info"
	}
	if level, err := logrus.ParseLevel(cfg.Level); err == nil {
		Logger.SetLevel(level)
	} else {
		Logger.Errorf("couldn't parse log level %q", cfg.Level)
		Logger.SetLevel(logrus.InfoLevel)
	}

	Logger.Debug("init logging system")
}

func WithFields(fields logrus.Fields) *logrus.Entry {
	return Logger.WithFields(fields)
}

func Info(args ...any) {
	Logger.Info(args...)
}

type ctxKey struct{}

// NewContext attaches a request scoped entry to ctx.
func NewContext(ctx context.Context, entry *logrus.Entry) context.Context {
	return context.WithValue(ctx, ctxKey{}, entry)
}

// FromContext returns the entry stored by NewContext, or a bare one.
func FromContext(ctx context.Context) *logrus.Entry {
	if entry, ok := ctx.Value(ctxKey{}).(*logrus.Entry); ok {
		return entry
	}
	return logrus.NewEntry(Logger)
}
