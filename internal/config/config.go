/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are treated as read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.
// Unknown fields are ignored on unmarshal.

type CanvasConfig struct {
	// Size is the edge of the square logical canvas all elements are authored in.
	Size float64 `yaml:"size"`
}

type ViewportConfig struct {
	MinZoom  float64 `yaml:"min_zoom"`
	MaxZoom  float64 `yaml:"max_zoom"`
	ZoomStep float64 `yaml:"zoom_step"`
}

type EditorConfig struct {
	MinElementSize float64 `yaml:"min_element_size"`
	MinFontSize    float64 `yaml:"min_font_size"`
	MaxFontSize    float64 `yaml:"max_font_size"`
}

type RenderConfig struct {
	PrintDPI             int     `yaml:"print_dpi"`
	PrintMultiplier      float64 `yaml:"print_multiplier"`
	TestExportMultiplier float64 `yaml:"test_export_multiplier"`
	CropMarks            bool    `yaml:"crop_marks"`
	FontDir              string  `yaml:"font_dir"`
}

type SnapshotConfig struct {
	Width        int     `yaml:"width"`
	Height       int     `yaml:"height"`
	TextureScale float64 `yaml:"texture_scale"`
	Supersample  int     `yaml:"supersample"`
	JPEGQuality  int     `yaml:"jpeg_quality"`
}

type CacheConfig struct {
	Dir      string `yaml:"dir"`
	MaxBytes int64  `yaml:"max_bytes"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int            `yaml:"config_version"`
	Canvas        CanvasConfig   `yaml:"canvas"`
	Viewport      ViewportConfig `yaml:"viewport"`
	Editor        EditorConfig   `yaml:"editor"`
	Render        RenderConfig   `yaml:"render"`
	Snapshot      SnapshotConfig `yaml:"snapshot"`
	Cache         CacheConfig    `yaml:"cache"`
	Logging       LoggingConfig  `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		Canvas:        CanvasConfig{Size: 400},
		Viewport:      ViewportConfig{MinZoom: 0.5, MaxZoom: 3.0, ZoomStep: 0.1},
		Editor:        EditorConfig{MinElementSize: 20, MinFontSize: 2, MaxFontSize: 792},
		Render:        RenderConfig{PrintDPI: 300, PrintMultiplier: 8, TestExportMultiplier: 3, CropMarks: true},
		Snapshot:      SnapshotConfig{Width: 512, Height: 512, TextureScale: 4, Supersample: 2, JPEGQuality: 85},
		Cache:         CacheConfig{Dir: "", MaxBytes: 256 * 1024 * 1024},
		Logging:       LoggingConfig{Level: "info", Format: "console", Source: false, File: ""},
	}
}

// Env var names used as overrides.
const (
	EnvCanvasSize   = "PODC_CANVAS_SIZE"
	EnvPrintDPI     = "PODC_PRINT_DPI"
	EnvCropMarks    = "PODC_CROP_MARKS"
	EnvFontDir      = "PODC_FONT_DIR"
	EnvCacheDir     = "PODC_CACHE_DIR"
	EnvCacheMax     = "PODC_CACHE_MAX_BYTES"
	EnvSnapshotSize = "PODC_SNAPSHOT_SIZE"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "PODC_LOG_LEVEL"
	EnvLogFormat = "PODC_LOG_FORMAT"
	EnvLogSource = "PODC_LOG_SOURCE"
	EnvLogFile   = "PODC_LOG_FILE"
)

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "PodCanvas")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "PodCanvas")
	default: // linux and others
		base = filepath.Join(os.Getenv("HOME"), ".config", "podcanvas")
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults, and merges environment overrides.
func Load() (AppConfig, error) {
	path, err := ConfigPath()
	if err != nil {
		cfg := Defaults()
		applyEnvOverrides(&cfg)
		return cfg, err
	}
	return LoadFile(path)
}

// LoadFile is Load with an explicit file path. A missing or unparsable file yields defaults.
func LoadFile(path string) (AppConfig, error) {
	cfg := Defaults()
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err == nil {
			mergeInto(&cfg, &fileCfg)
		}
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// Save writes the user config YAML.
func Save(cfg AppConfig) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveFile(path, cfg)
}

// SaveFile writes cfg to path, creating parent directories.
func SaveFile(path string, cfg AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if src.Canvas.Size > 0 {
		dst.Canvas.Size = src.Canvas.Size
	}
	// viewport
	if src.Viewport.MinZoom > 0 {
		dst.Viewport.MinZoom = src.Viewport.MinZoom
	}
	if src.Viewport.MaxZoom > 0 {
		dst.Viewport.MaxZoom = src.Viewport.MaxZoom
	}
	if src.Viewport.ZoomStep > 0 {
		dst.Viewport.ZoomStep = src.Viewport.ZoomStep
	}
	// editor
	if src.Editor.MinElementSize > 0 {
		dst.Editor.MinElementSize = src.Editor.MinElementSize
	}
	if src.Editor.MinFontSize > 0 {
		dst.Editor.MinFontSize = src.Editor.MinFontSize
	}
	if src.Editor.MaxFontSize > 0 {
		dst.Editor.MaxFontSize = src.Editor.MaxFontSize
	}
	// render
	if src.Render.PrintDPI > 0 {
		dst.Render.PrintDPI = src.Render.PrintDPI
	}
	if src.Render.PrintMultiplier > 0 {
		dst.Render.PrintMultiplier = src.Render.PrintMultiplier
	}
	if src.Render.TestExportMultiplier > 0 {
		dst.Render.TestExportMultiplier = src.Render.TestExportMultiplier
	}
	// booleans: copy directly from src (file) so user preferences persist
	dst.Render.CropMarks = src.Render.CropMarks
	if strings.TrimSpace(src.Render.FontDir) != "" {
		dst.Render.FontDir = strings.TrimSpace(src.Render.FontDir)
	}
	// snapshot
	if src.Snapshot.Width > 0 {
		dst.Snapshot.Width = src.Snapshot.Width
	}
	if src.Snapshot.Height > 0 {
		dst.Snapshot.Height = src.Snapshot.Height
	}
	if src.Snapshot.TextureScale > 0 {
		dst.Snapshot.TextureScale = src.Snapshot.TextureScale
	}
	if src.Snapshot.Supersample > 0 {
		dst.Snapshot.Supersample = src.Snapshot.Supersample
	}
	if src.Snapshot.JPEGQuality > 0 {
		dst.Snapshot.JPEGQuality = src.Snapshot.JPEGQuality
	}
	// cache
	if strings.TrimSpace(src.Cache.Dir) != "" {
		dst.Cache.Dir = strings.TrimSpace(src.Cache.Dir)
	}
	if src.Cache.MaxBytes > 0 {
		dst.Cache.MaxBytes = src.Cache.MaxBytes
	}
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func parseBool(v string) bool {
	lv := strings.ToLower(strings.TrimSpace(v))
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvCanvasSize)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.Canvas.Size = f
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvPrintDPI)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Render.PrintDPI = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvCropMarks)); v != "" {
		cfg.Render.CropMarks = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvFontDir)); v != "" {
		cfg.Render.FontDir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvCacheDir)); v != "" {
		cfg.Cache.Dir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvCacheMax)); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.Cache.MaxBytes = n
		}
	}
	// PODC_SNAPSHOT_SIZE=WxH
	if v := strings.TrimSpace(os.Getenv(EnvSnapshotSize)); v != "" {
		if w, h, ok := ParseSize(v); ok {
			cfg.Snapshot.Width, cfg.Snapshot.Height = w, h
		}
	}
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

// ParseSize parses "WxH" into positive integers.
func ParseSize(s string) (w, h int, ok bool) {
	parts := strings.SplitN(strings.ToLower(strings.TrimSpace(s)), "x", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	w, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	h, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil || w <= 0 || h <= 0 {
		return 0, 0, false
	}
	return w, h, true
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	envs := map[string]string{
		"canvas.size":         EnvCanvasSize,
		"render.print_dpi":    EnvPrintDPI,
		"render.crop_marks":   EnvCropMarks,
		"render.font_dir":     EnvFontDir,
		"cache.dir":           EnvCacheDir,
		"cache.max_bytes":     EnvCacheMax,
		"snapshot.width":      EnvSnapshotSize,
		"snapshot.height":     EnvSnapshotSize,
		"logging.level":       EnvLogLevel,
		"logging.format":      EnvLogFormat,
		"logging.source":      EnvLogSource,
		"logging.file":        EnvLogFile,
	}
	name, ok := envs[key]
	if !ok || os.Getenv(name) == "" {
		return "", false
	}
	return name, true
}
