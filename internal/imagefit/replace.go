/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package imagefit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"podcanvas/internal/domain"
	"podcanvas/internal/geometry"
	applog "podcanvas/internal/log"
)

var (
	ErrTemplateElement = errors.New("template elements cannot be replaced")
	ErrNotImage        = errors.New("element is not an image")
	ErrNotFound        = errors.New("element not found")
	ErrNoReplaceMode   = errors.New("replace mode is not active")
	ErrNoDropTarget    = errors.New("no replaceable element at drop point")
)

// Dimensions reports the natural pixel size of an image resource.
type Dimensions interface {
	Dimensions(ctx context.Context, url string) (int, int, error)
}

// Store is the element store replacements are written through.
type Store interface {
	Element(id string) (domain.Element, bool)
	Elements() []domain.Element
	Update(id string, fn func(e *domain.Element) error) error
}

// Replacer swaps the image of an element, waiting for the new image's
// dimensions before touching any geometry.
type Replacer struct {
	store    Store
	dims     Dimensions
	measurer domain.Measurer

	mu     sync.Mutex
	source string
	active bool

	log *slog.Logger
}

func NewReplacer(store Store, dims Dimensions) *Replacer {
	return &Replacer{store: store, dims: dims, log: applog.WithComponent("imagefit")}
}

func checkReplaceable(e domain.Element) error {
	if !e.IsImage() {
		return ErrNotImage
	}
	if e.IsFromTemplate {
		return ErrTemplateElement
	}
	return nil
}

// Replace loads url, then fits it into element id. A load failure leaves the
// element untouched and ends replace mode.
func (r *Replacer) Replace(ctx context.Context, id, url string) (domain.Element, error) {
	l := applog.WithOperation(r.log, "replace")
	ctx = applog.WithElement(ctx, id)
	e, ok := r.store.Element(id)
	if !ok {
		return domain.Element{}, fmt.Errorf("replace %s: %w", id, ErrNotFound)
	}
	if err := checkReplaceable(e); err != nil {
		return domain.Element{}, fmt.Errorf("replace %s: %w", id, err)
	}
	w, h, err := r.dims.Dimensions(ctx, url)
	if err == nil && (w <= 0 || h <= 0) {
		err = fmt.Errorf("invalid dimensions %dx%d", w, h)
	}
	if err != nil {
		r.ExitReplaceMode()
		l.WarnContext(ctx, "image load failed, replace aborted", slog.Any("err", err))
		return domain.Element{}, fmt.Errorf("replace %s: load %s: %w", id, url, err)
	}
	var out domain.Element
	err = r.store.Update(id, func(cur *domain.Element) error {
		// re-check: the element may have changed while the image loaded
		if err := checkReplaceable(*cur); err != nil {
			return err
		}
		f := FitElement(*cur, float64(w), float64(h))
		Apply(cur, url, f)
		out = cur.Clone()
		return nil
	})
	if err != nil {
		return domain.Element{}, fmt.Errorf("replace %s: %w", id, err)
	}
	l.DebugContext(ctx, "image replaced", slog.Int("w", w), slog.Int("h", h), slog.Bool("masked", out.Masked()))
	return out, nil
}

// EnterReplaceMode selects url as the source for the next ClickTarget.
func (r *Replacer) EnterReplaceMode(url string) {
	r.mu.Lock()
	r.source, r.active = url, true
	r.mu.Unlock()
}

func (r *Replacer) ExitReplaceMode() {
	r.mu.Lock()
	r.source, r.active = "", false
	r.mu.Unlock()
}

// ReplaceMode returns the pending source url.
func (r *Replacer) ReplaceMode() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.source, r.active
}

// ClickTarget replaces id with the replace-mode source and leaves replace mode.
func (r *Replacer) ClickTarget(ctx context.Context, id string) (domain.Element, error) {
	src, ok := r.ReplaceMode()
	if !ok {
		return domain.Element{}, ErrNoReplaceMode
	}
	defer r.ExitReplaceMode()
	return r.Replace(ctx, id, src)
}

// SetMeasurer sets the text measurer used for hit testing.
func (r *Replacer) SetMeasurer(m domain.Measurer) { r.measurer = m }

// DropTarget returns the topmost replaceable element at p. Template and text
// elements are skipped so drops pass through to an image underneath.
func DropTarget(elems []domain.Element, p geometry.Pt, m domain.Measurer) (string, bool) {
	for i := len(elems) - 1; i >= 0; i-- {
		e := elems[i]
		if checkReplaceable(e) != nil {
			continue
		}
		if domain.Hit(e, p, m) {
			return e.ID, true
		}
	}
	return "", false
}

// Drop replaces the element under p with url.
func (r *Replacer) Drop(ctx context.Context, p geometry.Pt, url string) (domain.Element, error) {
	id, ok := DropTarget(r.store.Elements(), p, r.measurer)
	if !ok {
		return domain.Element{}, ErrNoDropTarget
	}
	return r.Replace(ctx, id, url)
}
