/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package resource resolves the url of an image element or a mesh into bytes
// and decoded bitmaps. Supported references are data: URLs, http(s) URLs,
// file:// URLs, plain paths and in-memory bitmaps registered with mem://.
package resource

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	applog "podcanvas/internal/log"
)

// MemScheme prefixes urls of bitmaps registered in memory.
const MemScheme = "mem://"

var (
	ErrEmptyURL    = errors.New("empty resource url")
	ErrUnsupported = errors.New("unsupported resource url")
)

// Options configure a Resolver.
type Options struct {
	// BaseDir resolves relative file paths. Empty means the working directory.
	BaseDir string
	// Timeout bounds each http fetch.
	Timeout time.Duration
	// MaxBytes caps a fetched resource. Zero means 64 MiB.
	MaxBytes int64
}

// Resolver loads and caches resources. It is safe for concurrent use.
type Resolver struct {
	opts    Options
	fetcher *fetcher

	mu     sync.Mutex
	images map[string]image.Image
	dims   map[string][2]int

	log *slog.Logger
}

func NewResolver(opts Options) *Resolver {
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = 64 << 20
	}
	return &Resolver{
		opts:    opts,
		fetcher: newFetcher(opts.Timeout, opts.MaxBytes),
		images:  map[string]image.Image{},
		dims:    map[string][2]int{},
		log:     applog.WithComponent("resource"),
	}
}

// Register stores an already decoded bitmap under url. Use MemScheme urls
// for bitmaps that only exist in memory.
func (r *Resolver) Register(url string, img image.Image) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.images[url] = img
	b := img.Bounds()
	r.dims[url] = [2]int{b.Dx(), b.Dy()}
}

// Forget drops cached data for url.
func (r *Resolver) Forget(url string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.images, url)
	delete(r.dims, url)
}

// Bytes returns the raw bytes behind url.
func (r *Resolver) Bytes(ctx context.Context, url string) ([]byte, error) {
	u := strings.TrimSpace(url)
	switch {
	case u == "":
		return nil, ErrEmptyURL
	case strings.HasPrefix(u, "data:"):
		return decodeDataURL(u)
	case strings.HasPrefix(u, "http://"), strings.HasPrefix(u, "https://"):
		return r.fetcher.get(ctx, u)
	case strings.HasPrefix(u, MemScheme):
		return nil, fmt.Errorf("%s: %w", u, ErrUnsupported)
	}
	path := strings.TrimPrefix(u, "file://")
	if !filepath.IsAbs(path) && r.opts.BaseDir != "" {
		path = filepath.Join(r.opts.BaseDir, path)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return b, nil
}

// Fingerprint returns a content hash of the bytes behind url. Data urls carry
// their content inline and yield an empty fingerprint.
func (r *Resolver) Fingerprint(ctx context.Context, url string) (string, error) {
	if strings.HasPrefix(strings.TrimSpace(url), "data:") {
		return "", nil
	}
	b, err := r.Bytes(ctx, url)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// Image returns the decoded bitmap behind url, decoding at most once.
func (r *Resolver) Image(ctx context.Context, url string) (image.Image, error) {
	r.mu.Lock()
	img, ok := r.images[url]
	r.mu.Unlock()
	if ok {
		return img, nil
	}
	b, err := r.Bytes(ctx, url)
	if err != nil {
		return nil, err
	}
	img, format, err := image.Decode(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", shorten(url), err)
	}
	r.log.Debug("image decoded", slog.String("url", shorten(url)), slog.String("format", format),
		slog.Int("w", img.Bounds().Dx()), slog.Int("h", img.Bounds().Dy()))
	r.Register(url, img)
	return img, nil
}

// Dimensions returns the natural pixel size of the image behind url
// without decoding the pixels.
func (r *Resolver) Dimensions(ctx context.Context, url string) (int, int, error) {
	r.mu.Lock()
	d, ok := r.dims[url]
	r.mu.Unlock()
	if ok {
		return d[0], d[1], nil
	}
	b, err := r.Bytes(ctx, url)
	if err != nil {
		return 0, 0, err
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(b))
	if err != nil {
		return 0, 0, fmt.Errorf("decode config %s: %w", shorten(url), err)
	}
	r.mu.Lock()
	r.dims[url] = [2]int{cfg.Width, cfg.Height}
	r.mu.Unlock()
	return cfg.Width, cfg.Height, nil
}

// shorten keeps data urls out of logs and error messages.
func shorten(url string) string {
	if len(url) > 64 {
		return url[:61] + "..."
	}
	return url
}
