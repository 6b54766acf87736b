/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package render

import (
	"bytes"
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"

	"podcanvas/internal/domain"
	"podcanvas/internal/geometry"
	"podcanvas/internal/version"
)

// PageSizeMM returns the physical page size of a rendered print file. With
// a product physical size the logical bounds are converted directly;
// otherwise the raster is assumed to be at geometry.PrintDPI.
func PageSizeMM(res *Result, p domain.Product) (w, h float64) {
	if p.PhysicalSize.Valid() {
		r := geometry.RectToMM(res.Bounds, p.PrintArea.Width, p.PhysicalSize)
		return r.W, r.H
	}
	b := res.Image.Bounds()
	return float64(b.Dx()) / geometry.PrintDPI * geometry.MMPerInch, float64(b.Dy()) / geometry.PrintDPI * geometry.MMPerInch
}

// WritePDF writes the raster as a single-page PDF sized in millimetres.
func WritePDF(w io.Writer, res *Result, d domain.Design) error {
	pw, ph := PageSizeMM(res, d.Product)
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "mm",
		Size:    gofpdf.SizeType{Wd: pw, Ht: ph},
	})
	title := d.Product.Name
	if title == "" {
		title = "Print file"
	}
	pdf.SetTitle(title, true)
	pdf.SetCreator("podcanvas "+version.Version, false)
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	raster, err := res.PNG()
	if err != nil {
		return err
	}
	opt := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("print", opt, bytes.NewReader(raster))
	pdf.ImageOptions("print", 0, 0, pw, ph, false, opt, 0, "")
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}
