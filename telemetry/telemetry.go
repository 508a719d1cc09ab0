// Package telemetry implements the trace/warn_once/log_selection_once
// collaborators of spec §6 and the "Global mutable state" guidance of
// spec §9: deduplication flags become an explicit, resettable State value
// instead of module-level mutable booleans, modeled on the atomic-pointer
// logger in gogpu-wgpu/hal/logger.go.
package telemetry

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"log/slog"
	"sync"
	"sync/atomic"
)

// nopHandler silently discards all log records, making logging effectively
// zero-cost when no logger has been configured.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(slog.New(nopHandler{}))
}

// SetLogger configures the logger used by this package. By default the
// runtime produces no log output; pass nil to restore that silent
// default. Safe for concurrent use.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(nopHandler{})
	}
	loggerPtr.Store(l)
}

// Logger returns the currently configured logger.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// State holds the process-wide telemetry-dedup bookkeeping for
// warn_once and log_selection_once. It is a plain value with an explicit
// lifecycle (NewState, Reset) rather than a package-level flag so tests
// can isolate runs, per spec §9.
type State struct {
	mu   sync.Mutex
	seen map[uint64]struct{}
}

// NewState constructs an empty telemetry state.
func NewState() *State {
	return &State{seen: make(map[uint64]struct{})}
}

// Reset clears all deduplication bookkeeping.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = make(map[uint64]struct{})
}

func dedupKey(parts ...string) uint64 {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	sum := h.Sum(nil)
	return binary.BigEndian.Uint64(sum[:8])
}

func (s *State) once(channel, topic, message string) bool {
	key := dedupKey(channel, topic, message)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[key]; ok {
		return false
	}
	s.seen[key] = struct{}{}
	return true
}

// Trace logs an unconditional diagnostic message on the given channel.
func (s *State) Trace(channel, message string) {
	Logger().Debug(message, slog.String("channel", channel))
}

// WarnOnce logs a warning the first time a given (topic, message) pair is
// seen and silently drops repeats, per spec §6/§7's non-strict-mode
// deduplication requirement.
func (s *State) WarnOnce(topic, message string) {
	if s.once("warn", topic, message) {
		Logger().Warn(message, slog.String("topic", topic))
	}
}

// LogSelectionOnce logs a variant selection's reason exactly once per
// program run per variant string, per spec §4.G.1 step 7.
func (s *State) LogSelectionOnce(operation, variant, reason string) {
	if s.once("selection", operation+"/"+variant, reason) {
		Logger().Info("kernel variant selected",
			slog.String("operation", operation),
			slog.String("variant", variant),
			slog.String("reason", reason))
	}
}

// Default is the package-level State used by callers that don't need
// per-instance isolation (production code paths). Tests that need
// isolation should construct their own State via NewState.
var Default = NewState()
