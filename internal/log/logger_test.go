/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */

package log

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func lastJSONLine(t *testing.T, b []byte) map[string]any {
	t.Helper()
	var last string
	sc := bufio.NewScanner(bytes.NewReader(b))
	for sc.Scan() {
		if s := strings.TrimSpace(sc.Text()); s != "" {
			last = s
		}
	}
	if last == "" {
		t.Fatalf("no log lines found")
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(last), &m); err != nil {
		t.Fatalf("unmarshal json log %q: %v", last, err)
	}
	return m
}

func TestInitWritesConsoleAndRotatedFile(t *testing.T) {
	defer Init(Options{Level: "error", Out: &bytes.Buffer{}})
	fpath := filepath.Join(t.TempDir(), "podcanvas.log")
	var console bytes.Buffer
	Init(Options{Level: "debug", Format: "json", File: fpath, Out: &console})

	l := WithOperation(WithComponent("render"), "render")
	ctx := WithElement(WithDesign(context.Background(), "d-7"), "photo")
	l.InfoContext(ctx, "print file rendered", slog.Int("bytes", 42))

	b, err := os.ReadFile(fpath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	for name, out := range map[string][]byte{"file": b, "console": console.Bytes()} {
		m := lastJSONLine(t, out)
		if m["app"] != "podcanvas" {
			t.Fatalf("%s: missing app attr: %v", name, m["app"])
		}
		if _, ok := m["ver"].(string); !ok {
			t.Fatalf("%s: missing ver attr", name)
		}
		if m["component"] != "render" || m["op"] != "render" {
			t.Fatalf("%s: component/op mismatch: %v", name, m)
		}
		if m["design"] != "d-7" || m["element"] != "photo" {
			t.Fatalf("%s: context ids missing: %v", name, m)
		}
		if m["msg"] != "print file rendered" {
			t.Fatalf("%s: msg mismatch: %v", name, m["msg"])
		}
	}
}

func TestConsoleTextUsesShortLevelsAndFilters(t *testing.T) {
	defer Init(Options{Level: "error", Out: &bytes.Buffer{}})
	var buf bytes.Buffer
	Init(Options{Level: "warn", Out: &buf})
	l := WithComponent("cache")
	l.Info("hidden")
	l.Warn("render not cached", slog.String("key", "abc"))

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info logged at warn level: %q", out)
	}
	if !strings.Contains(out, "level=WRN") || !strings.Contains(out, "component=cache") || !strings.Contains(out, "key=abc") {
		t.Fatalf("unexpected console line: %q", out)
	}
}

func TestContextWithoutIDsAddsNothing(t *testing.T) {
	defer Init(Options{Level: "error", Out: &bytes.Buffer{}})
	var buf bytes.Buffer
	Init(Options{Level: "debug", Format: "json", Out: &buf})
	L().DebugContext(context.Background(), "design loaded")
	m := lastJSONLine(t, buf.Bytes())
	if _, ok := m["design"]; ok {
		t.Fatalf("unexpected design attr: %v", m)
	}
	if _, ok := m["element"]; ok {
		t.Fatalf("unexpected element attr: %v", m)
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("PODC_LOG_LEVEL", "warn")
	t.Setenv("PODC_LOG_FORMAT", "json")
	t.Setenv("PODC_LOG_SOURCE", "true")
	t.Setenv("PODC_LOG_FILE", "")

	opts := FromEnv()
	if opts.Level != "warn" || opts.Format != "json" || !opts.AddSource || opts.File != "" {
		t.Fatalf("FromEnv mismatch: %+v", opts)
	}
	if v := getenv("PODC_SURELY_UNSET_VAR", "fallback"); v != "fallback" {
		t.Fatalf("getenv fallback failed: %q", v)
	}
	if parseLevel("Warning") != slog.LevelWarn || parseLevel("bogus") != slog.LevelInfo {
		t.Fatalf("parseLevel mismatch")
	}
}
