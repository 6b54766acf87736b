/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package editor implements the interactive element session: the ordered
// element store, the gesture state machine (drag, resize, rotate) and the
// crop workflow that commits masks.
//
// Every mutation goes through Session.Update, which holds the session lock,
// so only one writer touches the element slice at a time.
package editor

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"podcanvas/internal/domain"
	"podcanvas/internal/geometry"
	applog "podcanvas/internal/log"
	"podcanvas/internal/viewport"
)

var (
	ErrNotFound  = errors.New("element not found")
	ErrLocked    = errors.New("element is locked")
	ErrBusy      = errors.New("another interaction is active")
	ErrNoGesture = errors.New("no active gesture")
	ErrNotImage  = errors.New("element is not an image")
)

// Mode is the session's interaction state.
type Mode int

const (
	Idle Mode = iota
	Dragging
	Resizing
	Rotating
	Cropping
)

func (m Mode) String() string {
	switch m {
	case Idle:
		return "idle"
	case Dragging:
		return "dragging"
	case Resizing:
		return "resizing"
	case Rotating:
		return "rotating"
	case Cropping:
		return "cropping"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// Options tune the session. Zero values take the defaults below.
type Options struct {
	Canvas         geometry.Canvas
	MinElementSize float64
	MinFontSize    float64
	MaxFontSize    float64
	Measurer       domain.Measurer
}

const (
	DefaultMinElementSize = 20.0
	DefaultMinFontSize    = 2.0
	DefaultMaxFontSize    = 792.0
)

func (o Options) withDefaults() Options {
	if o.Canvas.Size <= 0 {
		o.Canvas = geometry.DefaultCanvas
	}
	if o.MinElementSize <= 0 {
		o.MinElementSize = DefaultMinElementSize
	}
	if o.MinFontSize <= 0 {
		o.MinFontSize = DefaultMinFontSize
	}
	if o.MaxFontSize <= o.MinFontSize {
		o.MaxFontSize = DefaultMaxFontSize
	}
	return o
}

// Session owns the ordered elements of one design while it is edited.
type Session struct {
	mu            sync.Mutex
	opts          Options
	elems         []domain.Element
	selected      string
	mode          Mode
	freeTransform bool
	g             *gesture
	crop          *cropState
	log           *slog.Logger
}

// NewSession copies elems into a new idle session.
func NewSession(elems []domain.Element, opts Options) *Session {
	s := &Session{
		opts: opts.withDefaults(),
		log:  applog.WithComponent("editor"),
	}
	s.elems = make([]domain.Element, len(elems))
	for i := range elems {
		s.elems[i] = elems[i].Clone()
	}
	return s
}

// Options returns the effective options.
func (s *Session) Options() Options { return s.opts }

// Elements returns a deep copy of the elements in paint order.
func (s *Session) Elements() []domain.Element {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Element, len(s.elems))
	for i := range s.elems {
		out[i] = s.elems[i].Clone()
	}
	return out
}

// Element returns a copy of the element with id.
func (s *Session) Element(id string) (domain.Element, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := domain.IndexOf(s.elems, id)
	if i < 0 {
		return domain.Element{}, false
	}
	return s.elems[i].Clone(), true
}

// Mode returns the current interaction mode.
func (s *Session) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Update is the single mutation entry point. fn runs under the session lock
// on the stored element; returning an error leaves the element unchanged.
// An element under an active drag, resize or rotate gesture is owned by that
// gesture and Update returns ErrBusy.
func (s *Session) Update(id string, fn func(e *domain.Element) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.g != nil && s.g.id == id {
		return fmt.Errorf("update %s during %s: %w", id, s.g.mode, ErrBusy)
	}
	return s.updateLocked(id, fn)
}

func (s *Session) updateLocked(id string, fn func(e *domain.Element) error) error {
	i := domain.IndexOf(s.elems, id)
	if i < 0 {
		return fmt.Errorf("update %s: %w", id, ErrNotFound)
	}
	e := s.elems[i].Clone()
	if err := fn(&e); err != nil {
		return err
	}
	if err := e.Validate(); err != nil {
		return fmt.Errorf("update %s: %w", id, err)
	}
	s.elems[i] = e
	return nil
}

// Add appends e on top of the stack and returns its id.
func (s *Session) Add(e domain.Element) (string, error) {
	if e.ID == "" {
		e.ID = domain.NewID()
	}
	if err := e.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if domain.IndexOf(s.elems, e.ID) >= 0 {
		return "", fmt.Errorf("add %s: duplicate id", e.ID)
	}
	s.elems = append(s.elems, e.Clone())
	return e.ID, nil
}

// Remove deletes an element. It fails while that element is being manipulated.
func (s *Session) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := domain.IndexOf(s.elems, id)
	if i < 0 {
		return fmt.Errorf("remove %s: %w", id, ErrNotFound)
	}
	if s.activeID() == id {
		return fmt.Errorf("remove %s: %w", id, ErrBusy)
	}
	s.elems = append(s.elems[:i], s.elems[i+1:]...)
	if s.selected == id {
		s.selected = ""
	}
	return nil
}

func (s *Session) activeID() string {
	switch {
	case s.g != nil:
		return s.g.id
	case s.crop != nil:
		return s.crop.id
	}
	return ""
}

// Select marks id as selected. Locked elements can be selected.
func (s *Session) Select(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != "" && domain.IndexOf(s.elems, id) < 0 {
		return fmt.Errorf("select %s: %w", id, ErrNotFound)
	}
	s.selected = id
	return nil
}

func (s *Session) Selected() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// ElementAt returns the topmost element whose visible area contains p.
func (s *Session) ElementAt(p geometry.Pt) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.elems) - 1; i >= 0; i-- {
		if domain.Hit(s.elems[i], p, s.opts.Measurer) {
			return s.elems[i].ID, true
		}
	}
	return "", false
}

// SetLocked toggles the lock flag.
func (s *Session) SetLocked(id string, locked bool) error {
	return s.Update(id, func(e *domain.Element) error {
		e.Locked = locked
		return nil
	})
}

// SetFreeTransform toggles non-uniform resizing. The toggle has no effect on
// shape-clipped images, which always resize uniformly.
func (s *Session) SetFreeTransform(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.freeTransform = on
	if i := domain.IndexOf(s.elems, s.selected); on && i >= 0 && isShapeClipped(s.elems[i]) {
		s.log.Debug("free transform ignored for shape clip", slog.String("element", s.selected))
	}
}

func (s *Session) FreeTransform() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.freeTransform
}

// FreeTransformEffective reports whether a resize of the selected element
// would currently be non-uniform.
func (s *Session) FreeTransformEffective() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.freeTransform {
		return false
	}
	i := domain.IndexOf(s.elems, s.selected)
	return i < 0 || !isShapeClipped(s.elems[i])
}

func isShapeClipped(e domain.Element) bool { return e.IsImage() && e.Image.ShapeClip != "" }

func (s *Session) reorder(id string, op func([]domain.Element, string) int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode != Idle {
		return -1, ErrBusy
	}
	i := op(s.elems, id)
	if i < 0 {
		return -1, fmt.Errorf("reorder %s: %w", id, ErrNotFound)
	}
	return i, nil
}

func (s *Session) BringToFront(id string) (int, error) { return s.reorder(id, domain.BringToFront) }
func (s *Session) SendToBack(id string) (int, error)   { return s.reorder(id, domain.SendToBack) }
func (s *Session) BringForward(id string) (int, error) { return s.reorder(id, domain.BringForward) }
func (s *Session) SendBackward(id string) (int, error) { return s.reorder(id, domain.SendBackward) }

// Pointer converts client positions through a viewport so gestures receive
// logical canvas coordinates at any zoom or pan.
type Pointer struct {
	View *viewport.Controller
	Rect viewport.Container
}

// At returns the canvas position of a client point.
func (p Pointer) At(clientX, clientY float64) geometry.Pt {
	return p.View.ScreenToCanvas(clientX, clientY, p.Rect)
}
