package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
)

// colorEnabled mirrors internal/evaluator/builtins_term.go's detectColorLevel:
// NO_COLOR wins outright, then a real terminal gains ANSI colors, then
// TERM=dumb turns them off again. This CLI only needs on/off, not
// truecolor, so COLORTERM is not read and the result is a bool.
func colorEnabled(out *os.File) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if !isatty.IsTerminal(out.Fd()) && !isatty.IsCygwinTerminal(out.Fd()) {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	return true
}

const (
	ansiReset = "\x1b[0m"
	ansiRed   = "\x1b[31m"
	ansiGreen = "\x1b[32m"
	ansiCyan  = "\x1b[36m"
)

// diagWriter buffers diagnostic lines and flushes them to the real output
// in one write, the same double-buffering builtins_term.go uses so a
// long-running instrumentation can't interleave partial lines with other
// writers sharing the terminal.
type diagWriter struct {
	mu      sync.Mutex
	buf     bytes.Buffer
	out     io.Writer
	colored bool
}

func newDiagWriter(out *os.File) *diagWriter {
	return &diagWriter{out: out, colored: colorEnabled(out)}
}

func (d *diagWriter) paint(code, s string) string {
	if !d.colored {
		return s
	}
	return code + s + ansiReset
}

func (d *diagWriter) Stagef(stage, format string, args ...any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprintf(&d.buf, "%s %s\n", d.paint(ansiCyan, "["+stage+"]"), fmt.Sprintf(format, args...))
}

func (d *diagWriter) Errorf(format string, args ...any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprintf(&d.buf, "%s %s\n", d.paint(ansiRed, "error:"), fmt.Sprintf(format, args...))
}

func (d *diagWriter) Successf(format string, args ...any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprintf(&d.buf, "%s %s\n", d.paint(ansiGreen, "ok:"), fmt.Sprintf(format, args...))
}

func (d *diagWriter) Flush() {
	d.mu.Lock()
	defer d.mu.Unlock()
	io.Copy(d.out, &d.buf)
	d.buf.Reset()
}

func splitCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
