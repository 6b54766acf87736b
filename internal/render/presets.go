/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package render

import (
	"fmt"
	"strings"

	"podcanvas/internal/geometry"
)

// PresetName represents a named render preset.
type PresetName string

const (
	// PresetTest is a quick proof of the print area: DPI-derived with a physical
	// size, else a fixed multiplier.
	PresetTest PresetName = "test"
	// PresetPrint is the production file: bleed area, DPI-derived scale and crop marks.
	PresetPrint PresetName = "print"
)

// Preset returns the options of a named preset.
func Preset(name PresetName) (Options, error) {
	switch PresetName(strings.ToLower(strings.TrimSpace(string(name)))) {
	case PresetTest, "":
		return Options{DPI: geometry.PrintDPI, Multiplier: geometry.TestExportMultiplier}, nil
	case PresetPrint:
		return Options{
			Bleed:      true,
			DPI:        geometry.PrintDPI,
			Multiplier: geometry.PrintMultiplier,
			CropMarks:  true,
		}, nil
	default:
		return Options{}, fmt.Errorf("unknown preset: %s", name)
	}
}
