/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package storage implements design persistence and the artifact cache.
// Design documents are JSON files validated against an embedded JSON schema and written
// transactionally with timestamped backups.
// Rendered artifacts (print files, PDFs, snapshots) are cached in an embedded SQLite database
// keyed by a hash of the design and render variant, evicted least-recently-used by size.
// The cache is derived data and disposable by design.
package storage
