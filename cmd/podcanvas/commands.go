/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"image/jpeg"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"podcanvas/internal/bleed"
	"podcanvas/internal/config"
	"podcanvas/internal/crash"
	"podcanvas/internal/domain"
	"podcanvas/internal/editor"
	"podcanvas/internal/geometry"
	"podcanvas/internal/imagefit"
	applog "podcanvas/internal/log"
	"podcanvas/internal/render"
	"podcanvas/internal/resource"
	"podcanvas/internal/snapshot"
	"podcanvas/internal/storage"
	"podcanvas/internal/textlayout"
	"podcanvas/internal/version"
	"podcanvas/internal/viewport"
)

var errUsage = errors.New("usage")

// app holds the services shared by the subcommands of one invocation.
type app struct {
	cfg   config.AppConfig
	out   io.Writer
	log   *slog.Logger
	fonts *textlayout.FontLibrary
}

func run(args []string, out io.Writer, cfg config.AppConfig, job *crash.Job) int {
	a := &app{cfg: cfg, out: out, log: applog.WithComponent("cli")}
	if len(args) == 0 {
		usage(out)
		return 0
	}
	if job != nil {
		job.Command = args[0]
	}
	a.log.Debug("start", slog.String("cmd", args[0]), slog.Int("args", len(args)))

	ctx := context.Background()
	var err error
	switch args[0] {
	case "version", "--version", "-v":
		_, _ = fmt.Fprintln(out, version.String())
		return 0
	case "help", "-h", "--help":
		usage(out)
		return 0
	case "validate":
		err = a.validate(args[1:], job)
	case "render":
		err = a.render(ctx, args[1:], job)
	case "pdf":
		err = a.pdf(ctx, args[1:], job)
	case "snapshot":
		err = a.snapshot(ctx, args[1:], job)
	case "mapping":
		err = a.mapping(args[1:], job)
	case "replace":
		err = a.replace(ctx, args[1:], job)
	case "locate":
		err = a.locate(args[1:], job)
	case "fit":
		err = a.fit(args[1:])
	default:
		_, _ = fmt.Fprintf(out, "unknown command %q\n", args[0])
		usage(out)
		return 2
	}
	if errors.Is(err, errUsage) {
		_, _ = fmt.Fprintln(out, err)
		usage(out)
		return 2
	}
	if err != nil {
		a.log.Error("command failed", slog.String("cmd", args[0]), slog.Any("err", err))
		_, _ = fmt.Fprintln(out, "Error:", err)
		return 1
	}
	return 0
}

func newFlags(name string, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	return fs
}

func needArgs(fs *flag.FlagSet, n int, what string) error {
	if fs.NArg() < n {
		return fmt.Errorf("%w: %s requires %s", errUsage, fs.Name(), what)
	}
	return nil
}

func (a *app) loadDesign(path string, job *crash.Job) (*domain.Design, error) {
	abs, _ := filepath.Abs(path)
	if job != nil {
		job.Design = abs
	}
	d, err := storage.LoadDesign(abs)
	if err != nil {
		return nil, err
	}
	a.log.Info("design loaded", slog.String("path", abs), slog.Int("elements", len(d.Elements)))
	return d, nil
}

func (a *app) resolver(designPath string) *resource.Resolver {
	return resource.NewResolver(resource.Options{BaseDir: filepath.Dir(designPath)})
}

// canvas is the design's own canvas, or the configured one when the design
// does not carry a size.
func (a *app) canvas(d *domain.Design) geometry.Canvas {
	if d.CanvasSize <= 0 && a.cfg.Canvas.Size > 0 {
		return geometry.Canvas{Size: a.cfg.Canvas.Size}
	}
	return d.Canvas()
}

func (a *app) session(d *domain.Design) *editor.Session {
	return editor.NewSession(d.Elements, editor.Options{
		Canvas:         a.canvas(d),
		MinElementSize: a.cfg.Editor.MinElementSize,
		MinFontSize:    a.cfg.Editor.MinFontSize,
		MaxFontSize:    a.cfg.Editor.MaxFontSize,
		Measurer:       textlayout.NewMeasurer(a.fontLibrary()),
	})
}

func (a *app) fontLibrary() *textlayout.FontLibrary {
	if a.fonts != nil {
		return a.fonts
	}
	a.fonts = textlayout.NewDefaultLibrary()
	if dir := strings.TrimSpace(a.cfg.Render.FontDir); dir != "" {
		n, err := a.fonts.LoadDir(dir)
		if err != nil {
			a.log.Warn("font dir not loaded", slog.String("dir", dir), slog.Any("err", err))
		} else {
			a.log.Debug("fonts loaded", slog.String("dir", dir), slog.Int("count", n))
		}
	}
	return a.fonts
}

func (a *app) compositor(images render.ImageSource) *render.Compositor {
	return render.NewCompositor(images, textlayout.OTProvider{Lib: a.fontLibrary()})
}

// openCache returns nil when no cache dir is configured or the cache cannot be opened.
func (a *app) openCache() *storage.Cache {
	if strings.TrimSpace(a.cfg.Cache.Dir) == "" {
		return nil
	}
	c, err := storage.OpenCache(a.cfg.Cache.Dir, a.cfg.Cache.MaxBytes)
	if err != nil {
		a.log.Warn("artifact cache unavailable", slog.Any("err", err))
		return nil
	}
	return c
}

func (a *app) validate(args []string, job *crash.Job) error {
	fs := newFlags("validate", a.out)
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if err := needArgs(fs, 1, "<design.json>"); err != nil {
		return err
	}
	if job != nil {
		job.Design = fs.Arg(0)
	}
	data, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("read design: %w", err)
	}
	if reasons := storage.ValidateDesignJSON(data); len(reasons) > 0 {
		for _, r := range reasons {
			_, _ = fmt.Fprintln(a.out, "-", r)
		}
		return &storage.ValidationError{Reasons: reasons}
	}
	_, _ = fmt.Fprintln(a.out, "valid")
	return nil
}

type renderFlags struct {
	preset       string
	bleed        bool
	marks        bool
	scale        float64
	placeholders bool
	noCache      bool
}

func (rf *renderFlags) bind(fs *flag.FlagSet) {
	fs.StringVar(&rf.preset, "preset", "test", "render preset: test or print")
	fs.BoolVar(&rf.bleed, "bleed", false, "render the bleed area")
	fs.BoolVar(&rf.marks, "marks", false, "draw crop marks (bleed renders only)")
	fs.Float64Var(&rf.scale, "scale", 0, "fixed output pixels per logical unit")
	fs.BoolVar(&rf.placeholders, "placeholders", false, "draw a box for images that fail to load")
	fs.BoolVar(&rf.noCache, "no-cache", false, "bypass the artifact cache")
}

// options resolves the preset and applies the configured defaults and flags.
func (rf *renderFlags) options(cfg config.AppConfig) (render.Options, error) {
	name := render.PresetName(rf.preset)
	opts, err := render.Preset(name)
	if err != nil {
		return opts, err
	}
	if opts.Bleed {
		if cfg.Render.PrintDPI > 0 {
			opts.DPI = cfg.Render.PrintDPI
		}
		if cfg.Render.PrintMultiplier > 0 {
			opts.Multiplier = cfg.Render.PrintMultiplier
		}
		opts.CropMarks = cfg.Render.CropMarks
	} else {
		if cfg.Render.PrintDPI > 0 {
			opts.DPI = cfg.Render.PrintDPI
		}
		if cfg.Render.TestExportMultiplier > 0 {
			opts.Multiplier = cfg.Render.TestExportMultiplier
		}
	}
	if rf.bleed {
		opts.Bleed = true
	}
	if rf.marks {
		opts.CropMarks = true
	}
	if rf.scale > 0 {
		opts.Scale = rf.scale
	}
	opts.Placeholders = rf.placeholders
	return opts, nil
}

func variant(o render.Options) string {
	return fmt.Sprintf("bleed=%t;scale=%g;dpi=%d;mult=%g;marks=%t;ph=%t", o.Bleed, o.Scale, o.DPI, o.Multiplier, o.CropMarks, o.Placeholders)
}

// resourcePrints fingerprints every image an element references by url, in
// element order.
func resourcePrints(ctx context.Context, d *domain.Design, r *resource.Resolver) ([]string, error) {
	var out []string
	for _, e := range d.Elements {
		if !e.IsImage() {
			continue
		}
		fp, err := r.Fingerprint(ctx, e.Image.URL)
		if err != nil {
			return nil, fmt.Errorf("fingerprint %s: %w", e.ID, err)
		}
		out = append(out, fp)
	}
	return out, nil
}

// renderPNG renders d, going through the artifact cache when one is configured.
// Renders with skipped elements are not cached.
func (a *app) renderPNG(ctx context.Context, d *domain.Design, designPath string, opts render.Options, noCache bool) ([]byte, *render.Result, error) {
	kind := storage.KindTest
	if opts.Bleed {
		kind = storage.KindPrint
	}
	images := a.resolver(designPath)
	var cache *storage.Cache
	var key string
	if !noCache {
		cache = a.openCache()
	}
	if cache != nil {
		defer cache.Close()
		prints, err := resourcePrints(ctx, d, images)
		if err != nil {
			a.log.Debug("render not cacheable", slog.Any("err", err))
		} else if k, err := storage.KeyFor(d, kind, variant(opts), prints...); err == nil {
			key = k
			if art, err := cache.Get(ctx, key); err == nil && art != nil {
				a.log.Debug("render cache hit", slog.String("key", key[:12]))
				return art.Blob, nil, nil
			}
		}
	}
	start := time.Now()
	res, err := a.compositor(images).Render(ctx, *d, opts)
	if err != nil {
		return nil, nil, err
	}
	png, err := res.PNG()
	if err != nil {
		return nil, nil, err
	}
	a.log.Info("print file rendered", slog.Duration("took", time.Since(start)), slog.Int("bytes", len(png)))
	if cache != nil && key != "" && len(res.Skipped) == 0 {
		b := res.Image.Bounds()
		if err := cache.Put(ctx, storage.Artifact{Key: key, Kind: kind, Width: b.Dx(), Height: b.Dy(), Blob: png}); err != nil {
			a.log.Warn("render not cached", slog.Any("err", err))
		}
	}
	return png, res, nil
}

func (a *app) render(ctx context.Context, args []string, job *crash.Job) error {
	fs := newFlags("render", a.out)
	var rf renderFlags
	rf.bind(fs)
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if err := needArgs(fs, 2, "<design.json> <out.png>"); err != nil {
		return err
	}
	opts, err := rf.options(a.cfg)
	if err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	d, err := a.loadDesign(fs.Arg(0), job)
	if err != nil {
		return err
	}
	ctx = applog.WithDesign(ctx, d.ID)
	png, res, err := a.renderPNG(ctx, d, fs.Arg(0), opts, rf.noCache)
	if err != nil {
		return err
	}
	if err := writeOutput(fs.Arg(1), png); err != nil {
		return err
	}
	if res != nil {
		for _, s := range res.Skipped {
			_, _ = fmt.Fprintf(a.out, "skipped %s: %v\n", s.ID, s.Err)
		}
	}
	_, _ = fmt.Fprintln(a.out, "Wrote", fs.Arg(1))
	return nil
}

func (a *app) pdf(ctx context.Context, args []string, job *crash.Job) error {
	fs := newFlags("pdf", a.out)
	rf := renderFlags{}
	rf.bind(fs)
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if err := needArgs(fs, 2, "<design.json> <out.pdf>"); err != nil {
		return err
	}
	opts, err := rf.options(a.cfg)
	if err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	d, err := a.loadDesign(fs.Arg(0), job)
	if err != nil {
		return err
	}
	ctx = applog.WithDesign(ctx, d.ID)
	res, err := a.compositor(a.resolver(fs.Arg(0))).Render(ctx, *d, opts)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := render.WritePDF(&buf, res, *d); err != nil {
		return err
	}
	if err := writeOutput(fs.Arg(1), buf.Bytes()); err != nil {
		return err
	}
	w, h := render.PageSizeMM(res, d.Product)
	_, _ = fmt.Fprintf(a.out, "Wrote %s (%.1f x %.1f mm)\n", fs.Arg(1), w, h)
	return nil
}

func (a *app) snapshot(ctx context.Context, args []string, job *crash.Job) error {
	fs := newFlags("snapshot", a.out)
	size := fs.String("size", "", "output size WxH")
	asDataURL := fs.Bool("dataurl", false, "print the JPEG data URL instead of writing a file")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	need, what := 2, "<design.json> <out.jpg>"
	if *asDataURL {
		need, what = 1, "<design.json>"
	}
	if err := needArgs(fs, need, what); err != nil {
		return err
	}
	sc := a.cfg.Snapshot
	opts := snapshot.DefaultOptions()
	opts.Width, opts.Height = sc.Width, sc.Height
	opts.TextureScale = sc.TextureScale
	opts.Supersample = sc.Supersample
	opts.JPEGQuality = sc.JPEGQuality
	if *size != "" {
		w, h, ok := config.ParseSize(*size)
		if !ok {
			return fmt.Errorf("%w: invalid -size %q", errUsage, *size)
		}
		opts.Width, opts.Height = w, h
	}
	d, err := a.loadDesign(fs.Arg(0), job)
	if err != nil {
		return err
	}
	ctx = applog.WithDesign(ctx, d.ID)
	res := a.resolver(fs.Arg(0))
	snap := snapshot.NewPipeline(a.compositor(res), res, opts).Capture(ctx, *d)
	if snap == nil {
		return errors.New("snapshot failed")
	}
	if *asDataURL {
		_, _ = fmt.Fprintln(a.out, snap.DataURL)
		return nil
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, snap.Image, &jpeg.Options{Quality: opts.JPEGQuality}); err != nil {
		return fmt.Errorf("encode jpeg: %w", err)
	}
	if err := writeOutput(fs.Arg(1), buf.Bytes()); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(a.out, "Wrote %s (%d triangles)\n", fs.Arg(1), snap.Triangles)
	return nil
}

func (a *app) mapping(args []string, job *crash.Job) error {
	fs := newFlags("mapping", a.out)
	display := fs.String("display", "800x800", "background display size WxH")
	shrink := fs.Bool("shrink", false, "shrink an overflowing mapping until it fits")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if err := needArgs(fs, 1, "<design.json>"); err != nil {
		return err
	}
	w, h, ok := config.ParseSize(*display)
	if !ok {
		return fmt.Errorf("%w: invalid -display %q", errUsage, *display)
	}
	d, err := a.loadDesign(fs.Arg(0), job)
	if err != nil {
		return err
	}
	m := bleed.NewMapper(d.Product, geometry.Size{W: float64(w), H: float64(h)})
	m.Canvas = a.canvas(d)
	mp := d.Product.BleedAreaMapping
	if mp == nil {
		_, _ = fmt.Fprintln(a.out, "mapping: none (proportional)")
	} else {
		cur := bleed.Constrain(*mp)
		if *shrink {
			before := cur.Scale
			cur, _ = m.ShrinkToFit(cur)
			if cur.Scale != before {
				_, _ = fmt.Fprintf(a.out, "shrunk scale to %.4f\n", cur.Scale)
			}
		}
		mp = &cur
		_, _ = fmt.Fprintf(a.out, "mapping: centre=(%.2f%%, %.2f%%) scale=%.4f enabled=%t\n", cur.CenterX, cur.CenterY, cur.Scale, cur.Enabled)
		for _, r := range m.Validate(cur) {
			_, _ = fmt.Fprintln(a.out, "-", r)
		}
	}
	b := m.MappedBleedBounds(mp)
	_, _ = fmt.Fprintf(a.out, "bleed on background: left=%.1f top=%.1f width=%.1f height=%.1f\n", b.Left, b.Top, b.Width, b.Height)
	return nil
}

// locate maps a client position in a container showing the canvas at the
// given zoom back to canvas units and names the element under it.
func (a *app) locate(args []string, job *crash.Job) error {
	fs := newFlags("locate", a.out)
	container := fs.String("container", "400x400", "container size WxH in client pixels")
	zoom := fs.Float64("zoom", 1, "view zoom, clamped to the configured range")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if err := needArgs(fs, 3, "<design.json> <clientX> <clientY>"); err != nil {
		return err
	}
	w, h, ok := config.ParseSize(*container)
	if !ok {
		return fmt.Errorf("%w: invalid -container %q", errUsage, *container)
	}
	x, errX := strconv.ParseFloat(fs.Arg(1), 64)
	y, errY := strconv.ParseFloat(fs.Arg(2), 64)
	if errX != nil || errY != nil {
		return fmt.Errorf("%w: client position must be numeric", errUsage)
	}
	d, err := a.loadDesign(fs.Arg(0), job)
	if err != nil {
		return err
	}
	vc := viewport.New(a.canvas(d), viewport.Options{
		MinZoom:  a.cfg.Viewport.MinZoom,
		MaxZoom:  a.cfg.Viewport.MaxZoom,
		ZoomStep: a.cfg.Viewport.ZoomStep,
	})
	z := vc.SetZoom(*zoom)
	p := vc.ScreenToCanvas(x, y, viewport.Container{Width: float64(w), Height: float64(h)})
	id, hit := a.session(d).ElementAt(p)
	if !hit {
		id = "none"
	}
	_, _ = fmt.Fprintf(a.out, "zoom=%.2f canvas=(%.1f, %.1f) element=%s\n", z, p.X, p.Y, id)
	return nil
}

func (a *app) replace(ctx context.Context, args []string, job *crash.Job) error {
	fs := newFlags("replace", a.out)
	outPath := fs.String("o", "", "write the result here instead of in place")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if err := needArgs(fs, 3, "<design.json> <id> <url>"); err != nil {
		return err
	}
	d, err := a.loadDesign(fs.Arg(0), job)
	if err != nil {
		return err
	}
	ctx = applog.WithDesign(ctx, d.ID)
	session := a.session(d)
	rep := imagefit.NewReplacer(session, a.resolver(fs.Arg(0)))
	e, err := rep.Replace(ctx, fs.Arg(1), fs.Arg(2))
	if err != nil {
		return err
	}
	d.Elements = session.Elements()
	dst := fs.Arg(0)
	if *outPath != "" {
		dst = *outPath
	}
	if err := storage.SaveDesign(dst, d); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(a.out, "Replaced %s: %.1f x %.1f masked=%t\n", e.ID, e.Image.Width, e.Image.Height, e.Masked())
	return nil
}

func (a *app) fit(args []string) error {
	if len(args) < 4 {
		return fmt.Errorf("%w: fit requires <targetW> <targetH> <imageW> <imageH>", errUsage)
	}
	var v [4]float64
	for i := range v {
		f, err := strconv.ParseFloat(args[i], 64)
		if err != nil || f <= 0 {
			return fmt.Errorf("%w: invalid number %q", errUsage, args[i])
		}
		v[i] = f
	}
	size, mask := imagefit.CoverFit(geometry.Size{W: v[0], H: v[1]}, v[2], v[3])
	_, _ = fmt.Fprintf(a.out, "size: %.2f x %.2f\n", size.W, size.H)
	if mask == nil {
		_, _ = fmt.Fprintln(a.out, "mask: none")
		return nil
	}
	_, _ = fmt.Fprintf(a.out, "mask: centre=(%.2f, %.2f) size=%.2f x %.2f\n", mask.X, mask.Y, mask.Width, mask.Height)
	return nil
}

func writeOutput(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
