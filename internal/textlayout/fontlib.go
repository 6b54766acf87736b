/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// DefaultFamily is used for text whose family is not in the library.
const DefaultFamily = "Go"

// FontLibrary stores loaded OpenType fonts mapped by family/weight/italic.
// Family names are matched case-insensitively. It is safe for concurrent use.
type FontLibrary struct {
	mu    sync.RWMutex
	fonts map[fontKey]*opentype.Font
}

type fontKey struct {
	family string
	weight int
	italic bool
}

func NewFontLibrary() *FontLibrary { return &FontLibrary{fonts: make(map[fontKey]*opentype.Font)} }

// NewDefaultLibrary returns a library preloaded with the Go font family.
func NewDefaultLibrary() *FontLibrary {
	fl := NewFontLibrary()
	for _, f := range []struct {
		family string
		weight int
		italic bool
		data   []byte
	}{
		{DefaultFamily, 400, false, goregular.TTF},
		{DefaultFamily, 700, false, gobold.TTF},
		{DefaultFamily, 400, true, goitalic.TTF},
		{DefaultFamily, 700, true, gobolditalic.TTF},
		{"Go Mono", 400, false, gomono.TTF},
	} {
		// embedded fonts always parse
		_ = fl.LoadBytes(f.family, f.weight, f.italic, f.data)
	}
	return fl
}

// LoadBytes parses an OpenType/TrueType font and registers it.
func (fl *FontLibrary) LoadBytes(family string, weight int, italic bool, data []byte) error {
	f, err := opentype.Parse(data)
	if err != nil {
		return fmt.Errorf("parse font %s: %w", family, err)
	}
	fl.mu.Lock()
	defer fl.mu.Unlock()
	if fl.fonts == nil {
		fl.fonts = make(map[fontKey]*opentype.Font)
	}
	fl.fonts[fontKey{family: strings.ToLower(family), weight: weight, italic: italic}] = f
	return nil
}

// LoadTTF loads a font file into the library under the given family/weight/italic.
func (fl *FontLibrary) LoadTTF(family string, weight int, italic bool, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read font %s: %w", path, err)
	}
	return fl.LoadBytes(family, weight, italic, data)
}

// LoadDir registers every .ttf/.otf file in dir. The family is taken from
// the file name up to the first '-', weight and style from the remainder
// ("Inter-BoldItalic.ttf" is Inter 700 italic). It returns the number of
// fonts loaded.
func (fl *FontLibrary) LoadDir(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read font dir %s: %w", dir, err)
	}
	n := 0
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".ttf" && ext != ".otf") {
			continue
		}
		base := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		family, style, _ := strings.Cut(base, "-")
		ls := strings.ToLower(style)
		weight := 400
		if strings.Contains(ls, "bold") {
			weight = 700
		}
		italic := strings.Contains(ls, "italic") || strings.Contains(ls, "oblique")
		if err := fl.LoadTTF(family, weight, italic, filepath.Join(dir, e.Name())); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// Families lists the registered family names.
func (fl *FontLibrary) Families() []string {
	fl.mu.RLock()
	defer fl.mu.RUnlock()
	seen := map[string]bool{}
	var out []string
	for k := range fl.fonts {
		if !seen[k.family] {
			seen[k.family] = true
			out = append(out, k.family)
		}
	}
	return out
}

func (fl *FontLibrary) find(spec FontSpec) *opentype.Font {
	if fl == nil {
		return nil
	}
	fl.mu.RLock()
	defer fl.mu.RUnlock()
	if f := fl.findFamily(strings.ToLower(spec.Family), spec); f != nil {
		return f
	}
	return fl.findFamily(strings.ToLower(DefaultFamily), spec)
}

// findFamily prefers an exact match, then the same style with the nearest
// weight, then anything in the family.
func (fl *FontLibrary) findFamily(family string, spec FontSpec) *opentype.Font {
	if f, ok := fl.fonts[fontKey{family: family, weight: spec.Weight, italic: spec.Italic}]; ok {
		return f
	}
	var best *opentype.Font
	bestDist := -1
	for k, f := range fl.fonts {
		if k.family != family {
			continue
		}
		d := abs(k.weight - spec.Weight)
		if k.italic != spec.Italic {
			d += 1000
		}
		if bestDist < 0 || d < bestDist {
			best, bestDist = f, d
		}
	}
	return best
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// OTProvider resolves FontSpec using a FontLibrary and falls back to another Provider.
// It uses kerning as provided by opentype.Face and font.Drawer.
type OTProvider struct {
	Lib      *FontLibrary
	DPI      float64 // default 72 if zero, so one point is one canvas unit
	Fallback Provider
}

func (p OTProvider) Resolve(spec FontSpec) (font.Face, Metrics) {
	if spec.SizePt <= 0 {
		spec.SizePt = 12
	}
	dpi := p.DPI
	if dpi <= 0 {
		dpi = 72
	}
	if f := p.Lib.find(spec); f != nil {
		face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: spec.SizePt, DPI: dpi, Hinting: font.HintingNone})
		if err == nil {
			return face, metricsOf(face)
		}
	}
	fb := p.Fallback
	if fb == nil {
		fb = BasicProvider{}
	}
	return fb.Resolve(spec)
}
