/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package log sets up the process-wide slog logger. Records carry the app
// name and version, the emitting component, and the design and element a
// context was annotated with.
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"podcanvas/internal/version"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

// Options controls logger initialization. FromEnv reads them from
// PODC_LOG_LEVEL, PODC_LOG_FORMAT, PODC_LOG_SOURCE and PODC_LOG_FILE.
type Options struct {
	Level     string // debug, info, warn or error
	Format    string // "console" or "json"
	AddSource bool
	// File enables an additional rotated JSON log.
	File string
	// Out receives console records. Nil means stderr.
	Out io.Writer
}

var (
	mu      sync.RWMutex
	current *slog.Logger
)

// L returns the process logger, initializing it from the environment on first use.
func L() *slog.Logger {
	mu.RLock()
	l := current
	mu.RUnlock()
	if l != nil {
		return l
	}
	Init(FromEnv())
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// Init replaces the process logger and slog.Default.
func Init(opts Options) {
	lvl := parseLevel(opts.Level)
	out := opts.Out
	if out == nil {
		out = os.Stderr
	}
	ho := &slog.HandlerOptions{Level: lvl, AddSource: opts.AddSource}

	var console slog.Handler
	if strings.EqualFold(strings.TrimSpace(opts.Format), "json") {
		console = slog.NewJSONHandler(out, ho)
	} else {
		console = slog.NewTextHandler(out, &slog.HandlerOptions{Level: lvl, AddSource: opts.AddSource, ReplaceAttr: shortLevel})
	}
	var h slog.Handler = console
	if f := strings.TrimSpace(opts.File); f != "" {
		w := &lj.Logger{Filename: f, MaxSize: 10, MaxBackups: 3, MaxAge: 28, Compress: true}
		h = tee{console, slog.NewJSONHandler(w, ho)}
	}

	logger := slog.New(contextual{next: h}).With(
		slog.String("app", "podcanvas"),
		slog.String("ver", version.Version),
	)
	mu.Lock()
	current = logger
	mu.Unlock()
	slog.SetDefault(logger)
}

// FromEnv builds Options from environment variables.
func FromEnv() Options {
	return Options{
		Level:     getenv("PODC_LOG_LEVEL", "info"),
		Format:    getenv("PODC_LOG_FORMAT", "console"),
		AddSource: strings.EqualFold(getenv("PODC_LOG_SOURCE", "false"), "true"),
		File:      os.Getenv("PODC_LOG_FILE"),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// WithComponent returns a logger with the component attribute pre-set.
func WithComponent(name string) *slog.Logger { return L().With(slog.String("component", name)) }

// WithOperation annotates the logger with an operation name.
func WithOperation(l *slog.Logger, op string) *slog.Logger { return l.With(slog.String("op", op)) }

type (
	designKey  struct{}
	elementKey struct{}
)

// WithDesign returns a context whose log records carry the design id.
// Only records emitted through the *Context logging methods pick it up.
func WithDesign(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, designKey{}, id)
}

// WithElement returns a context whose log records carry the element id.
func WithElement(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, elementKey{}, id)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

// shortLevel prints console levels as three-letter tags.
func shortLevel(groups []string, a slog.Attr) slog.Attr {
	if len(groups) > 0 || a.Key != slog.LevelKey {
		return a
	}
	lvl, ok := a.Value.Any().(slog.Level)
	if !ok {
		return a
	}
	switch lvl {
	case slog.LevelDebug:
		a.Value = slog.StringValue("DBG")
	case slog.LevelInfo:
		a.Value = slog.StringValue("INF")
	case slog.LevelWarn:
		a.Value = slog.StringValue("WRN")
	case slog.LevelError:
		a.Value = slog.StringValue("ERR")
	}
	return a
}

// contextual copies the design and element ids from the record context.
type contextual struct{ next slog.Handler }

func (c contextual) Enabled(ctx context.Context, level slog.Level) bool {
	return c.next.Enabled(ctx, level)
}

func (c contextual) Handle(ctx context.Context, r slog.Record) error {
	if ctx != nil {
		if id, ok := ctx.Value(designKey{}).(string); ok && id != "" {
			r.AddAttrs(slog.String("design", id))
		}
		if id, ok := ctx.Value(elementKey{}).(string); ok && id != "" {
			r.AddAttrs(slog.String("element", id))
		}
	}
	return c.next.Handle(ctx, r)
}

func (c contextual) WithAttrs(attrs []slog.Attr) slog.Handler {
	return contextual{next: c.next.WithAttrs(attrs)}
}

func (c contextual) WithGroup(name string) slog.Handler {
	return contextual{next: c.next.WithGroup(name)}
}

// tee writes every record to the console and the rotated file.
type tee [2]slog.Handler

func (t tee) Enabled(ctx context.Context, level slog.Level) bool {
	return t[0].Enabled(ctx, level) || t[1].Enabled(ctx, level)
}

func (t tee) Handle(ctx context.Context, r slog.Record) error {
	var first error
	for _, h := range t {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (t tee) WithAttrs(attrs []slog.Attr) slog.Handler {
	return tee{t[0].WithAttrs(attrs), t[1].WithAttrs(attrs)}
}

func (t tee) WithGroup(name string) slog.Handler {
	return tee{t[0].WithGroup(name), t[1].WithGroup(name)}
}
