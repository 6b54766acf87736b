/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package viewport owns the zoom/pan state of the interactive canvas view and
// converts pointer positions into logical canvas coordinates.
package viewport

import (
	"log/slog"
	"sync"

	"podcanvas/internal/geometry"
	applog "podcanvas/internal/log"
)

const (
	DefaultMinZoom = 0.5
	DefaultMaxZoom = 3.0
	DefaultStep    = 0.1
	// wheel zoom factors
	wheelIn  = 1.1
	wheelOut = 0.9
	// MiddleButton is the pointer button that always starts a pan.
	MiddleButton = 1
)

// Container is the on-screen rectangle (client pixels) the canvas is displayed in.
type Container struct {
	Left, Top     float64
	Width, Height float64
}

// Viewport is the ephemeral view state. It is never persisted with a design.
type Viewport struct {
	Zoom      float64
	Pan       geometry.Pt // container pixels
	IsPanning bool
}

// Options bound the zoom range.
type Options struct {
	MinZoom  float64
	MaxZoom  float64
	ZoomStep float64
}

// Controller is the zoom/pan state machine. Zoom (wheel) and pan (drag) are
// mutually exclusive: wheel events are ignored while a pan is in progress.
type Controller struct {
	mu       sync.Mutex
	canvas   geometry.Canvas
	opts     Options
	vp       Viewport
	dragMode bool
	panStart geometry.Pt
	panFrom  geometry.Pt
	anim     *resetAnim
	log      *slog.Logger
}

// New returns a controller at zoom 1 and no pan.
func New(canvas geometry.Canvas, opts Options) *Controller {
	if canvas.Size <= 0 {
		canvas = geometry.DefaultCanvas
	}
	if opts.MinZoom <= 0 {
		opts.MinZoom = DefaultMinZoom
	}
	if opts.MaxZoom < opts.MinZoom {
		opts.MaxZoom = DefaultMaxZoom
	}
	if opts.ZoomStep <= 0 {
		opts.ZoomStep = DefaultStep
	}
	return &Controller{
		canvas: canvas,
		opts:   opts,
		vp:     Viewport{Zoom: 1},
		log:    applog.WithComponent("viewport"),
	}
}

// State returns a copy of the current view state.
func (c *Controller) State() Viewport {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.vp
}

// Canvas returns the logical canvas the controller maps into.
func (c *Controller) Canvas() geometry.Canvas { return c.canvas }

// ScreenToCanvas converts a client position into logical canvas units: it
// removes the container offset, the canvas centre, the pan and the zoom, then
// re-adds the centre and rescales container pixels to logical units.
func (c *Controller) ScreenToCanvas(clientX, clientY float64, rect Container) geometry.Pt {
	c.mu.Lock()
	vp := c.vp
	c.mu.Unlock()
	return screenToCanvas(vp, c.canvas, clientX, clientY, rect)
}

// CanvasToScreen is the inverse of ScreenToCanvas.
func (c *Controller) CanvasToScreen(p geometry.Pt, rect Container) geometry.Pt {
	c.mu.Lock()
	vp := c.vp
	c.mu.Unlock()
	return canvasToScreen(vp, c.canvas, p, rect)
}

func screenToCanvas(vp Viewport, canvas geometry.Canvas, clientX, clientY float64, rect Container) geometry.Pt {
	if rect.Width <= 0 || rect.Height <= 0 {
		return geometry.Pt{}
	}
	cx, cy := rect.Width/2, rect.Height/2
	x := clientX - rect.Left
	y := clientY - rect.Top
	x = (x-cx-vp.Pan.X)/vp.Zoom + cx
	y = (y-cy-vp.Pan.Y)/vp.Zoom + cy
	return geometry.Pt{X: x * canvas.Size / rect.Width, Y: y * canvas.Size / rect.Height}
}

func canvasToScreen(vp Viewport, canvas geometry.Canvas, p geometry.Pt, rect Container) geometry.Pt {
	cx, cy := rect.Width/2, rect.Height/2
	x := p.X * rect.Width / canvas.Size
	y := p.Y * rect.Height / canvas.Size
	x = (x-cx)*vp.Zoom + cx + vp.Pan.X
	y = (y-cy)*vp.Zoom + cy + vp.Pan.Y
	return geometry.Pt{X: x + rect.Left, Y: y + rect.Top}
}

func (c *Controller) clamp(z float64) float64 {
	return geometry.Clamp(z, c.opts.MinZoom, c.opts.MaxZoom)
}

// SetZoom sets the zoom about the canvas centre, clamped to the allowed range.
func (c *Controller) SetZoom(z float64) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.anim = nil
	c.vp.Zoom = c.clamp(z)
	return c.vp.Zoom
}

func (c *Controller) ZoomIn() float64 {
	return c.SetZoom(c.State().Zoom + c.opts.ZoomStep)
}

func (c *Controller) ZoomOut() float64 {
	return c.SetZoom(c.State().Zoom - c.opts.ZoomStep)
}

// ZoomAt multiplies the zoom by factor keeping the canvas point under the
// client position fixed on screen.
func (c *Controller) ZoomAt(factor, clientX, clientY float64, rect Container) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.vp.IsPanning || factor <= 0 {
		return false
	}
	c.anim = nil
	z := c.clamp(c.vp.Zoom * factor)
	if z == c.vp.Zoom {
		return false
	}
	cx, cy := rect.Width/2, rect.Height/2
	qx, qy := clientX-rect.Left, clientY-rect.Top
	// unzoomed container point under the pointer
	ux := (qx-cx-c.vp.Pan.X)/c.vp.Zoom + cx
	uy := (qy-cy-c.vp.Pan.Y)/c.vp.Zoom + cy
	c.vp.Zoom = z
	c.vp.Pan = geometry.Pt{X: qx - cx - (ux-cx)*z, Y: qy - cy - (uy-cy)*z}
	return true
}

// Wheel handles a wheel event: negative deltaY zooms in.
func (c *Controller) Wheel(deltaY, clientX, clientY float64, rect Container) bool {
	if deltaY == 0 {
		return false
	}
	f := wheelIn
	if deltaY > 0 {
		f = wheelOut
	}
	return c.ZoomAt(f, clientX, clientY, rect)
}

// SetDragMode makes the primary button pan instead of interacting with elements.
func (c *Controller) SetDragMode(on bool) {
	c.mu.Lock()
	c.dragMode = on
	c.mu.Unlock()
}

func (c *Controller) DragMode() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dragMode
}

// PointerDown starts a pan for the middle button or when drag mode is on.
// It reports whether the event was consumed by the viewport.
func (c *Controller) PointerDown(button int, clientX, clientY float64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if button != MiddleButton && !c.dragMode {
		return false
	}
	c.anim = nil
	c.vp.IsPanning = true
	c.panStart = geometry.Pt{X: clientX, Y: clientY}
	c.panFrom = c.vp.Pan
	return true
}

// PointerMove updates the pan while panning.
func (c *Controller) PointerMove(clientX, clientY float64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.vp.IsPanning {
		return false
	}
	c.vp.Pan = c.panFrom.Add(geometry.Pt{X: clientX - c.panStart.X, Y: clientY - c.panStart.Y})
	return true
}

// PointerUp ends a pan.
func (c *Controller) PointerUp() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	was := c.vp.IsPanning
	c.vp.IsPanning = false
	return was
}

// Reset sets zoom=1 and pan=(0,0).
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.anim = nil
	c.vp = Viewport{Zoom: 1}
	c.log.Debug("viewport reset")
}
