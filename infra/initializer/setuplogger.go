package initializer

import (
	"io"
	"log/slog"
	"os"

	"github.com/amirasaad/fxengine/pkg/config"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

type levelStyle struct {
	level log.Level
	label string
	color lipgloss.AdaptiveColor
}

var levelStyles = []levelStyle{
	{log.DebugLevel, "DEBU", lipgloss.AdaptiveColor{Light: "#7E57C2", Dark: "#B39DDB"}},
	{log.InfoLevel, "INFO", lipgloss.AdaptiveColor{Light: "#04B575", Dark: "#04B575"}},
	{log.WarnLevel, "WARN", lipgloss.AdaptiveColor{Light: "#E3A008", Dark: "#FACA15"}},
	{log.ErrorLevel, "ERRO", lipgloss.AdaptiveColor{Light: "#FF6B6B", Dark: "#FF6B6B"}},
}

// highlighted keys get the colour of the level they usually appear with
var keyColors = map[string]lipgloss.AdaptiveColor{
	"error":     levelStyles[3].color,
	"component": levelStyles[0].color,
	"pair":      levelStyles[1].color,
	"source":    levelStyles[1].color,
	"provider":  levelStyles[1].color,
}

func loggerStyles() *log.Styles {
	styles := log.DefaultStyles()
	for _, ls := range levelStyles {
		styles.Levels[ls.level] = lipgloss.NewStyle().
			SetString(ls.label).
			Bold(true).
			MaxWidth(4).
			Foreground(ls.color)
	}
	for key, color := range keyColors {
		styles.Keys[key] = lipgloss.NewStyle().Foreground(color)
		styles.Values[key] = lipgloss.NewStyle().Bold(true)
	}
	return styles
}

// setupLogger builds the process logger: charmbracelet/log as the slog
// handler, JSON or text depending on cfg.Format. It also becomes the slog
// default.
func setupLogger(cfg *config.Log, w io.Writer) *slog.Logger {
	if cfg == nil {
		cfg = &config.Log{Format: "text"}
	}
	if w == nil {
		w = os.Stdout
	}

	formatter := log.TextFormatter
	switch cfg.Format {
	case "json":
		formatter = log.JSONFormatter
	case "logfmt":
		formatter = log.LogfmtFormatter
	}

	handler := log.NewWithOptions(w, log.Options{
		ReportCaller:    cfg.Level < 0,
		ReportTimestamp: true,
		TimeFormat:      cfg.TimeFormat,
		Level:           log.Level(cfg.Level),
		Prefix:          cfg.Prefix,
		Formatter:       formatter,
	})
	handler.SetStyles(loggerStyles())

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
