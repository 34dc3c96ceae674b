package matcher

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/hetulpatel/crossarb/internal/matches"
	"github.com/hetulpatel/crossarb/internal/similarity"
)

type LogMode int

const (
	LogModeQuiet LogMode = iota
	LogModeSummary
	LogModeVerbose
)

func ParseLogMode(input string) LogMode {
	switch strings.ToLower(input) {
	case "summary":
		return LogModeSummary
	case "verbose":
		return LogModeVerbose
	default:
		return LogModeQuiet
	}
}

// Logger reports accepted matches. Summary mode prints one line per match,
// verbose mode prints the full pair as JSON. When FilePath is set, every
// logged match is also appended there as a JSON record.
type Logger struct {
	mode     LogMode
	out      io.Writer
	filePath string
}

func NewLogger(mode LogMode) *Logger {
	return &Logger{mode: mode, out: os.Stdout}
}

// WithOutput redirects console output (tests, server mode).
func (l *Logger) WithOutput(w io.Writer) *Logger {
	if l != nil {
		l.out = w
	}
	return l
}

// WithFile enables the JSON append log.
func (l *Logger) WithFile(path string) *Logger {
	if l != nil {
		l.filePath = path
	}
	return l
}

func (l *Logger) Mode() LogMode {
	if l == nil {
		return LogModeQuiet
	}
	return l.mode
}

func (l *Logger) Enabled() bool {
	return l != nil && l.mode != LogModeQuiet
}

func (l *Logger) LogEventMatch(em *matches.EventMatch, threshold similarity.Score) {
	if !l.Enabled() || em == nil {
		return
	}
	switch l.mode {
	case LogModeSummary:
		fmt.Fprintf(l.out, "[matcher] event %s (%s) -> %s (%s) score=%s threshold=%s\n",
			em.Polymarket.ID, em.Polymarket.Title, em.Kalshi.ID, em.Kalshi.Title, em.Score, threshold)
	case LogModeVerbose:
		data, _ := json.MarshalIndent(em, "", "  ")
		fmt.Fprintf(l.out, "[matcher] event match threshold=%s\n%s\n", threshold, string(data))
	}
	l.appendToFile("event", em, em.Score, threshold)
}

func (l *Logger) LogMarketMatch(mm *matches.MarketMatch, threshold similarity.Score) {
	if !l.Enabled() || mm == nil {
		return
	}
	switch l.mode {
	case LogModeSummary:
		fmt.Fprintf(l.out, "[matcher] bracket %s (%s) -> %s (%s) score=%s threshold=%s\n",
			mm.Polymarket.MarketID, mm.Polymarket.Question, mm.Kalshi.MarketID, mm.Kalshi.Question, mm.Score, threshold)
	case LogModeVerbose:
		data, _ := json.MarshalIndent(mm, "", "  ")
		fmt.Fprintf(l.out, "[matcher] bracket match threshold=%s\n%s\n", threshold, string(data))
	}
	l.appendToFile("bracket", mm, mm.Score, threshold)
}

func (l *Logger) appendToFile(kind string, match any, score, threshold similarity.Score) {
	if l.filePath == "" {
		return
	}
	entry := map[string]any{
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"kind":      kind,
		"score":     score,
		"threshold": threshold,
		"match":     match,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		fmt.Fprintf(l.out, "[matcher] log file marshal error: %v\n", err)
		return
	}
	f, err := os.OpenFile(l.filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		fmt.Fprintf(l.out, "[matcher] log file open error: %v\n", err)
		return
	}
	defer f.Close()
	if _, err := f.Write(append(data, '\n')); err != nil {
		fmt.Fprintf(l.out, "[matcher] log file write error: %v\n", err)
	}
}
