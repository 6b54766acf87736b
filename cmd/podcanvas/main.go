/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"podcanvas/internal/config"
	"podcanvas/internal/crash"
	applog "podcanvas/internal/log"
	"podcanvas/internal/version"
)

func usage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "PodCanvas: print-on-demand design engine")
	_, _ = fmt.Fprintf(w, "Version: %s\n", version.String())
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "Usage:")
	_, _ = fmt.Fprintln(w, "  podcanvas version|-v|--version                         Show version")
	_, _ = fmt.Fprintln(w, "  podcanvas validate <design.json>                       Check a design against the schema")
	_, _ = fmt.Fprintln(w, "  podcanvas render [flags] <design.json> <out.png>       Render a print file")
	_, _ = fmt.Fprintln(w, "      -preset test|print  -bleed  -marks  -scale N  -placeholders  -no-cache")
	_, _ = fmt.Fprintln(w, "  podcanvas pdf [flags] <design.json> <out.pdf>          Render a print file as PDF")
	_, _ = fmt.Fprintln(w, "  podcanvas snapshot [flags] <design.json> <out.jpg>     Capture a 3D product preview")
	_, _ = fmt.Fprintln(w, "      -size WxH  -dataurl")
	_, _ = fmt.Fprintln(w, "  podcanvas mapping [flags] <design.json>                Show the bleed mapping on a background")
	_, _ = fmt.Fprintln(w, "      -display WxH  -shrink")
	_, _ = fmt.Fprintln(w, "  podcanvas replace [-o out.json] <design.json> <id> <url>  Replace an element's image")
	_, _ = fmt.Fprintln(w, "  podcanvas locate [flags] <design.json> <x> <y>         Name the element under a screen point")
	_, _ = fmt.Fprintln(w, "      -container WxH  -zoom Z")
	_, _ = fmt.Fprintln(w, "  podcanvas fit <targetW> <targetH> <imageW> <imageH>    Print the cover fit of an image")
}

func main() {
	// initialize structured logging using environment defaults
	applog.Init(applog.FromEnv())
	job := &crash.Job{}
	defer crash.Recover(job)

	cfg, err := config.Load()
	if err != nil {
		applog.WithComponent("cli").Warn("config not loaded, using defaults", slog.Any("err", err))
	}
	applog.Init(applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
	})
	job.Dir = cfg.Cache.Dir

	if code := run(os.Args[1:], os.Stdout, cfg, job); code != 0 {
		os.Exit(code)
	}
}
