package internal

import (
	"io"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// NewLogger builds the process logger. The json format writes structured
// records to w; the text format writes colourised lines, with colour only
// when w is a terminal.
func NewLogger(cfg ApplicationConfig, w *os.File) *slog.Logger {
	if cfg.LogFormat == LogFormatText {
		return slog.New(tint.NewHandler(colorable.NewColorable(w), &tint.Options{
			Level:       cfg.LogLevel,
			TimeFormat:  "15:04:05.000",
			NoColor:     !isatty.IsTerminal(w.Fd()),
			ReplaceAttr: dropEmpty,
		}))
	}
	return newJSONLogger(w, cfg.LogLevel)
}

func newJSONLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}

// dropEmpty removes attributes that carry no information from text output.
func dropEmpty(groups []string, a slog.Attr) slog.Attr {
	if len(groups) > 0 {
		return a
	}
	switch v := a.Value.Any().(type) {
	case string:
		if v == "" {
			return slog.Attr{}
		}
	case nil:
		return slog.Attr{}
	}
	return a
}
