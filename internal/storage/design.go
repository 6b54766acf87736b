/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	gojsonschema "github.com/xeipuuv/gojsonschema"

	"podcanvas/internal/domain"
	applog "podcanvas/internal/log"
)

// BackupsDirName is created next to a saved design for previous versions.
const BackupsDirName = "backups"

//go:embed schema/design.schema.json
var designSchema []byte

var schemaLoader = gojsonschema.NewBytesLoader(designSchema)

// ValidationError lists every schema or semantic violation of a document.
type ValidationError struct {
	Reasons []string
}

func (e *ValidationError) Error() string {
	return "invalid design: " + strings.Join(e.Reasons, "; ")
}

// Schema returns the embedded design JSON schema.
func Schema() []byte { return append([]byte(nil), designSchema...) }

// ValidateDesignJSON checks data against the design schema and the element
// invariants. It returns nil when the document is valid.
func ValidateDesignJSON(data []byte) []string {
	res, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return []string{fmt.Sprintf("parse: %v", err)}
	}
	var reasons []string
	for _, e := range res.Errors() {
		reasons = append(reasons, e.String())
	}
	if len(reasons) > 0 {
		return reasons
	}
	var d domain.Design
	if err := json.Unmarshal(data, &d); err != nil {
		return []string{fmt.Sprintf("decode: %v", err)}
	}
	seen := map[string]bool{}
	for _, e := range d.Elements {
		if err := e.Validate(); err != nil {
			reasons = append(reasons, err.Error())
		}
		if seen[e.ID] {
			reasons = append(reasons, fmt.Sprintf("duplicate element id %q", e.ID))
		}
		seen[e.ID] = true
	}
	return reasons
}

// DecodeDesign reads and validates a design document.
func DecodeDesign(r io.Reader) (*domain.Design, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read design: %w", err)
	}
	if reasons := ValidateDesignJSON(data); len(reasons) > 0 {
		return nil, &ValidationError{Reasons: reasons}
	}
	var d domain.Design
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse design: %w", err)
	}
	return &d, nil
}

// LoadDesign opens a design file. If the file cannot be read or parsed, the
// latest backup is tried.
func LoadDesign(path string) (*domain.Design, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "load_design")
	f, err := os.Open(path)
	if err != nil {
		d, berr := loadLatestBackup(path)
		if berr != nil {
			return nil, fmt.Errorf("open design: %w; backup attempt: %v", err, berr)
		}
		l.Warn("design restored from backup", slog.String("path", path))
		return d, nil
	}
	defer f.Close()
	d, err := DecodeDesign(f)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			return nil, err
		}
		bd, berr := loadLatestBackup(path)
		if berr != nil {
			return nil, fmt.Errorf("%w; backup attempt: %v", err, berr)
		}
		l.Warn("design restored from backup", slog.String("path", path), slog.Any("err", err))
		return bd, nil
	}
	return d, nil
}

// SaveDesign writes d to path with transactional semantics and a
// timestamped backup of the previous file (if present).
func SaveDesign(path string, d *domain.Design) error {
	if d == nil {
		return errors.New("nil design")
	}
	if strings.TrimSpace(path) == "" {
		return errors.New("design path is required")
	}
	if d.Elements == nil {
		cp := *d
		cp.Elements = []domain.Element{}
		d = &cp
	}
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal design: %w", err)
	}
	data = append(data, '\n')
	if reasons := ValidateDesignJSON(data); len(reasons) > 0 {
		return &ValidationError{Reasons: reasons}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure design dir: %w", err)
	}
	if _, statErr := os.Stat(path); statErr == nil {
		bdir := filepath.Join(dir, BackupsDirName)
		stamp := time.Now().Format("20060102-150405.000")
		bpath := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", filepath.Base(path), stamp))
		if cerr := copyFile(path, bpath); cerr != nil {
			return fmt.Errorf("backup current design: %w", cerr)
		}
	}

	temp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", filepath.Base(path), os.Getpid(), rand.Int()))
	if werr := writeFileSync(temp, data); werr != nil {
		return fmt.Errorf("write temp design: %w", werr)
	}
	// On Windows, replace by removing destination first if needed
	if _, err := os.Stat(path); err == nil {
		_ = os.Remove(path)
	}
	if rerr := os.Rename(temp, path); rerr != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace design: %w", rerr)
	}
	return nil
}

// writeFileSync writes data to a file, ensures it is flushed to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

// copyFile copies a file from src to dst (overwrites dst if exists).
func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}

// loadLatestBackup tries the newest timestamped backup of path.
func loadLatestBackup(path string) (*domain.Design, error) {
	bdir := filepath.Join(filepath.Dir(path), BackupsDirName)
	ents, err := os.ReadDir(bdir)
	if err != nil {
		return nil, fmt.Errorf("read backups dir: %w", err)
	}
	prefix := filepath.Base(path) + "."
	var candidates []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, prefix) && strings.HasSuffix(name, ".bak") {
			candidates = append(candidates, filepath.Join(bdir, name))
		}
	}
	if len(candidates) == 0 {
		return nil, errors.New("no backups found")
	}
	sort.Strings(candidates) // timestamp in name yields lexicographic order
	f, err := os.Open(candidates[len(candidates)-1])
	if err != nil {
		return nil, fmt.Errorf("read latest backup: %w", err)
	}
	defer f.Close()
	return DecodeDesign(f)
}
