// Package log builds the slog handlers used by the CLI.
//
// Command output such as the watch protocol goes to stdout, so handlers only
// ever write to the writer they are given and pick colors from that writer,
// not from the process's stdout.
package log

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/muesli/termenv"
)

type (
	Format string
	Level  string
)

const (
	FormatJSON   Format = "json"
	FormatLogfmt Format = "logfmt"
	FormatText   Format = "text"

	LevelError Level = "error"
	LevelWarn  Level = "warn"
	LevelInfo  Level = "info"
	LevelDebug Level = "debug"

	// componentKey names the attribute carrying Options.Component in the
	// structured formats.
	componentKey = "component"
)

var (
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrUnknownLogLevel  = errors.New("unknown log level")
	ErrUnknownLogFormat = errors.New("unknown log format")

	AllFormats = []string{
		string(FormatJSON),
		string(FormatLogfmt),
		string(FormatText),
	}
	AllLevels = []string{
		string(LevelError),
		string(LevelWarn),
		string(LevelInfo),
		string(LevelDebug),
	}
)

// Options configures a handler.
type Options struct {
	Level  slog.Level
	Format Format

	// Component tags every record, e.g. "watch" or "rules add". The text
	// format shows it as a prefix; the structured formats as an attribute.
	Component string

	// NoColor forces plain text output even on a terminal.
	NoColor bool
}

// ParseOptions builds Options from flag values.
func ParseOptions(logLevel, logFormat string) (Options, error) {
	level, err := GetLevel(logLevel)
	if err != nil {
		return Options{}, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	format, err := GetFormat(logFormat)
	if err != nil {
		return Options{}, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	return Options{Level: level, Format: format}, nil
}

// NewHandler creates a [slog.Handler] writing to w.
func NewHandler(w io.Writer, opts Options) slog.Handler {
	var handler slog.Handler

	switch opts.Format {
	case FormatJSON:
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level: opts.Level,
		})

	case FormatLogfmt:
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{
			Level: opts.Level,
		})

	default:
		return newCharmLogHandler(w, opts)
	}

	if opts.Component != "" {
		handler = handler.WithAttrs([]slog.Attr{slog.String(componentKey, opts.Component)})
	}
	return handler
}

func GetLevel(level string) (slog.Level, error) {
	switch Level(strings.ToLower(level)) {
	case LevelError:
		return slog.LevelError, nil
	case LevelWarn, "warning":
		return slog.LevelWarn, nil
	case LevelInfo:
		return slog.LevelInfo, nil
	case LevelDebug:
		return slog.LevelDebug, nil
	}

	return 0, ErrUnknownLogLevel
}

func GetFormat(format string) (Format, error) {
	logFmt := Format(strings.ToLower(format))
	if slices.Contains([]Format{FormatJSON, FormatLogfmt, FormatText}, logFmt) {
		return logFmt, nil
	}

	return "", ErrUnknownLogFormat
}

func newCharmLogHandler(w io.Writer, opts Options) slog.Handler {
	//nolint:gosec // G115: input from GetLevel.
	lvl := int32(opts.Level)

	logger := charmlog.NewWithOptions(w, charmlog.Options{
		Level:           charmlog.Level(lvl),
		Formatter:       charmlog.TextFormatter,
		Prefix:          opts.Component,
		ReportTimestamp: true,
		TimeFormat:      time.StampMilli,
	})
	logger.SetColorProfile(colorProfile(w, opts.NoColor))

	return logger
}

// colorProfile detects color support on w itself. Pipes and buffers get
// plain text.
func colorProfile(w io.Writer, noColor bool) termenv.Profile {
	if noColor {
		return termenv.Ascii
	}
	return termenv.NewOutput(w).EnvColorProfile()
}
