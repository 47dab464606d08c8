// Package logging configures the process-wide gologger instance.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/projectdiscovery/gologger"
	"github.com/projectdiscovery/gologger/formatter"
	"github.com/projectdiscovery/gologger/levels"
)

var levelNames = map[string]levels.Level{
	"silent":  levels.LevelSilent,
	"fatal":   levels.LevelFatal,
	"error":   levels.LevelError,
	"warning": levels.LevelWarning,
	"warn":    levels.LevelWarning,
	"info":    levels.LevelInfo,
	"debug":   levels.LevelDebug,
	"verbose": levels.LevelVerbose,
}

func ParseLevel(s string) (levels.Level, error) {
	l, ok := levelNames[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return levels.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
	return l, nil
}

// Setup sets the level and the CLI formatter for stderr output.
func Setup(level string, noColor bool) error {
	l, err := ParseLevel(level)
	if err != nil {
		return err
	}
	gologger.DefaultLogger.SetMaxLevel(l)
	gologger.DefaultLogger.SetFormatter(formatter.NewCLI(noColor))
	return nil
}

// lineWriter implements gologger's writer.Writer over any io.Writer.
type lineWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (lw *lineWriter) Write(data []byte, _ levels.Level) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	line := make([]byte, 0, len(data)+1)
	line = append(line, data...)
	_, _ = lw.w.Write(append(line, '\n'))
}

// Redirect sends log lines to path instead of the terminal, so that a
// full-screen UI is not overwritten. An empty path discards them. The
// returned function closes the file.
func Redirect(path string) (func() error, error) {
	if path == "" {
		gologger.DefaultLogger.SetWriter(&lineWriter{w: io.Discard})
		return func() error { return nil }, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, errors.Wrapf(err, "could not open log file %s", path)
	}
	gologger.DefaultLogger.SetFormatter(formatter.NewCLI(true))
	gologger.DefaultLogger.SetWriter(&lineWriter{w: f})
	return f.Close, nil
}
