package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	pkgctx "github.com/baechuer/summons/internal/pkg/context"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

// Logger is usable before Init; it writes json at info level to stdout.
var Logger = zerolog.New(os.Stdout).With().Timestamp().Logger().Level(zerolog.InfoLevel)

func Init() {
	InitWithWriter(os.Stdout)
}

func InitWithWriter(w io.Writer) {
	level, err := zerolog.ParseLevel(strings.ToLower(getEnv("LOG_LEVEL", "info")))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	var base zerolog.Logger
	if getEnv("LOG_FORMAT", "json") == "console" {
		cw := zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: getEnv("LOG_TIME_FORMAT", time.RFC3339),
		}
		if getEnv("LOG_COLOR", "") == "0" {
			cw.NoColor = true
		}
		base = zerolog.New(cw)
	} else {
		base = zerolog.New(w)
	}

	l := base.With().Timestamp().Str("service", "invite-service").Logger().Level(level)
	if getEnv("LOG_CALLER", "") == "1" {
		l = l.With().Caller().Logger()
	}

	Logger = l
	zlog.Logger = l
}

// WithCtx returns the global logger enriched with the request id, if any.
func WithCtx(ctx context.Context) *zerolog.Logger {
	if rid := pkgctx.GetRequestID(ctx); rid != "" {
		l := Logger.With().Str("request_id", rid).Logger()
		return &l
	}
	l := Logger
	return &l
}

func getEnv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}
