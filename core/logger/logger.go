package logger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/m3rciful/workbot/core/buildinfo"
	coreconfig "github.com/m3rciful/workbot/core/config"
)

// Component names shared by the framework and domain packages.
const (
	CompApp       = "app"
	CompTG        = "tg"
	CompTGWire    = "tg.wire"
	CompSender    = "tg.sender"
	CompDB        = "db"
	CompMigrate   = "db.migrate"
	CompAssistant = "assistant"
	CompGmail     = "service.gmail"
	CompRedmine   = "service.redmine"
	CompOTRS      = "service.otrs"
	CompUnknown   = "unknown_messages"
)

var (
	initOnce   sync.Once
	shutdownMu sync.Mutex
	closed     bool

	writers []*asyncWriter

	levelVar slog.LevelVar

	// L is the root logger. Nil until InitLogger runs.
	L *slog.Logger

	// DB logs database connection events.
	DB *slog.Logger
	// TG logs Telegram transport events.
	TG *slog.Logger
	// MIG logs schema migration events.
	MIG *slog.Logger
	// TWire logs Telegram wiring steps.
	TWire *slog.Logger
	// Unrecognized receives messages the bot could not route. It writes to
	// logging.unknown_file only, separate from operational logs.
	Unrecognized *slog.Logger
)

// InitLogger configures the global structured logger. It may be called only once.
func InitLogger(cfg *coreconfig.Config) error {
	var initErr error
	initOnce.Do(func() {
		format := selectFormat(cfg)
		order := selectKeyOrder(cfg)
		levelVar.Set(selectLevel(cfg))

		configureSampling(cfg)

		mainSinks := []io.Writer{os.Stdout}
		var fileName, unknownName, dir string
		if cfg != nil {
			dir = cfg.Logging.Dir
			fileName = cfg.Logging.BotFile
			unknownName = cfg.Logging.UnknownFile
		}
		if f := openSink(dir, fileName); f != nil {
			mainSinks = append(mainSinks, f)
		}
		mainWriter := newAsyncWriter(mainSinks, 64*1024)
		writers = append(writers, mainWriter)

		L = slog.New(newStructuredHandler(handlerConfig{
			level:    &levelVar,
			writer:   mainWriter,
			format:   format,
			keyOrder: order,
		}))
		slog.SetDefault(L)

		if f := openSink(dir, unknownName); f != nil {
			unknownWriter := newAsyncWriter([]io.Writer{f}, 16*1024)
			writers = append(writers, unknownWriter)
			Unrecognized = slog.New(newStructuredHandler(handlerConfig{
				level:    slog.LevelInfo,
				writer:   unknownWriter,
				format:   format,
				keyOrder: order,
			})).With("component", CompUnknown)
		} else {
			Unrecognized = L.With("component", CompUnknown)
		}

		DB = L.With("component", CompDB)
		TG = L.With("component", CompTG)
		MIG = L.With("component", CompMigrate)
		TWire = L.With("component", CompTGWire)

		logStartup(cfg)
	})
	return initErr
}

func logStartup(cfg *coreconfig.Config) {
	attrs := []slog.Attr{
		slog.String("component", CompApp),
		slog.String("event", "startup"),
		slog.String("go_version", runtime.Version()),
		slog.String("build_version", buildinfo.Version),
		slog.String("build_commit", buildinfo.Commit),
		slog.String("build_time", buildinfo.Date),
	}
	if cfg != nil {
		attrs = append(attrs,
			slog.String("cfg_profile", selectProfile(cfg)),
			slog.String("storage", cfg.Storage.Driver),
			slog.String("mode", cfg.Telegram.RunMode),
		)
	}
	L.LogAttrs(context.Background(), slog.LevelInfo, "startup", attrs...)
}

// Shutdown flushes buffered log output and closes opened sinks.
func Shutdown() error {
	shutdownMu.Lock()
	defer shutdownMu.Unlock()
	if closed {
		return nil
	}
	closed = true

	var errs []error
	for _, w := range writers {
		if err := w.Flush(); err != nil {
			errs = append(errs, err)
		}
		if err := w.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Reopen reopens the log files at their configured paths, typically on
// SIGHUP after logrotate moved them.
func Reopen() error {
	shutdownMu.Lock()
	defer shutdownMu.Unlock()
	if closed {
		return nil
	}
	var errs []error
	for _, w := range writers {
		errs = append(errs, w.Reopen())
	}
	return errors.Join(errs...)
}

func selectFormat(cfg *coreconfig.Config) logFormat {
	if cfg == nil {
		return formatJSON
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Logging.Format)) {
	case "kv", "text", "pretty":
		return formatKV
	case "json":
		return formatJSON
	}
	if strings.EqualFold(cfg.Logging.Profile, "debug") || strings.EqualFold(cfg.Logging.Profile, "dev") {
		return formatKV
	}
	return formatJSON
}

func selectKeyOrder(cfg *coreconfig.Config) []string {
	var raw string
	if cfg != nil {
		raw = strings.TrimSpace(cfg.Logging.KeysOrder)
	}
	if raw == "" || raw == "default" {
		return append([]string(nil), defaultKeyOrder...)
	}
	var order []string
	for _, p := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			order = append(order, trimmed)
		}
	}
	if len(order) == 0 {
		return append([]string(nil), defaultKeyOrder...)
	}
	return order
}

func selectLevel(cfg *coreconfig.Config) slog.Level {
	if cfg == nil {
		return slog.LevelInfo
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Logging.Level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func selectProfile(cfg *coreconfig.Config) string {
	if profile := strings.TrimSpace(cfg.Logging.Profile); profile != "" {
		return strings.ToLower(profile)
	}
	return "prod"
}

// Component constructs a logger scoped to the provided component attribute.
func Component(name string) *slog.Logger {
	if L == nil {
		return nil
	}
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return L
	}
	return L.With("component", trimmed)
}

// LogEvent writes an event record, resolving the logger from ctx when logg is nil.
// It is a no-op before InitLogger.
func LogEvent(ctx context.Context, logg *slog.Logger, level slog.Level, event string, attrs ...slog.Attr) {
	if logg == nil {
		logg = FromContext(ctx)
	}
	if logg == nil {
		return
	}
	if event != "" {
		attrs = append([]slog.Attr{slog.String("event", event)}, attrs...)
	}
	logg.LogAttrs(ctx, level, "", attrs...)
}

// Event logs with component scope resolved automatically.
func Event(ctx context.Context, component string, level slog.Level, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), level, event, attrs...)
}

// Debug logs a debug-level event for the given component.
func Debug(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelDebug, event, attrs...)
}

// Info logs an info-level event for the given component.
func Info(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelInfo, event, attrs...)
}

// Warn logs a warn-level event for the given component.
func Warn(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelWarn, event, attrs...)
}

// Error logs an error-level event for the given component.
func Error(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelError, event, attrs...)
}
