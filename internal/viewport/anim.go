/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package viewport

import (
	"time"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// resetAnim eases zoom and pan back to the identity view.
type resetAnim struct {
	zoom, panX, panY *gween.Tween
	done             [3]bool
}

// StartResetAnimation animates towards zoom=1, pan=(0,0) over d.
// A non-positive duration resets immediately.
func (c *Controller) StartResetAnimation(d time.Duration) {
	if d <= 0 {
		c.Reset()
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	secs := float32(d.Seconds())
	c.anim = &resetAnim{
		zoom: gween.New(float32(c.vp.Zoom), 1, secs, ease.OutCubic),
		panX: gween.New(float32(c.vp.Pan.X), 0, secs, ease.OutCubic),
		panY: gween.New(float32(c.vp.Pan.Y), 0, secs, ease.OutCubic),
	}
}

// Animating reports whether a reset animation is running.
func (c *Controller) Animating() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.anim != nil
}

// Step advances a running reset animation by dt. It returns true while the
// animation is still running.
func (c *Controller) Step(dt time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	a := c.anim
	if a == nil {
		return false
	}
	step := float32(dt.Seconds())
	for i, tw := range []*gween.Tween{a.zoom, a.panX, a.panY} {
		if a.done[i] {
			continue
		}
		v, done := tw.Update(step)
		switch i {
		case 0:
			c.vp.Zoom = c.clamp(float64(v))
		case 1:
			c.vp.Pan.X = float64(v)
		case 2:
			c.vp.Pan.Y = float64(v)
		}
		a.done[i] = done
	}
	if a.done[0] && a.done[1] && a.done[2] {
		// snap past float32 rounding
		c.vp.Zoom = 1
		c.vp.Pan.X, c.vp.Pan.Y = 0, 0
		c.anim = nil
		return false
	}
	return true
}
