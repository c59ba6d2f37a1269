// Package diag wraps log/slog the way the teacher's util/logger package
// does: a single Handler that timestamps and formats records as plain
// text, writing exclusively to standard error so that a program's own
// WRITE output on standard out is never interleaved with diagnostics.
package diag

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// Handler formats records as "time level message attr=val ...\n" and
// writes them to a single destination writer, guarded by a mutex the way
// the teacher's LogHandler guards concurrent Handle calls.
type Handler struct {
	out io.Writer
	mu  *sync.Mutex
}

func (h *Handler) Enabled(_ context.Context, _ slog.Level) bool { return true }

func (h *Handler) WithAttrs(_ []slog.Attr) slog.Handler { return h }

func (h *Handler) WithGroup(_ string) slog.Handler { return h }

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	parts := []string{r.Time.Format("2006/01/02 15:04:05"), r.Level.String() + ":", r.Message}
	r.Attrs(func(a slog.Attr) bool {
		parts = append(parts, a.String())
		return true
	})

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.out, strings.Join(parts, " ")+"\n")
	return err
}

// NewLogger builds a *slog.Logger backed by a Handler writing to w. The
// CLI front end wires this to os.Stderr.
func NewLogger(w io.Writer) *slog.Logger {
	return slog.New(&Handler{out: w, mu: &sync.Mutex{}})
}
