// Package migrations embeds the versioned SurrealDB schema.
//
// Files are named NNNN_name.surql and applied in version order. The runner in
// internal/service records each applied version with its sha256 checksum in
// the schema_migration table.
package migrations

import (
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"

	"github.com/forgo/staffhub/internal/model"
)

//go:embed *.surql
var files embed.FS

var fileName = regexp.MustCompile(`^(\d{4})_([a-z0-9_]+)\.surql$`)

// Load returns the embedded migrations sorted by version
func Load() ([]model.Migration, error) {
	return LoadFS(files)
}

// LoadFS reads every NNNN_name.surql file at the root of fsys. Any other
// .surql name or a repeated version is an error.
func LoadFS(fsys fs.FS) ([]model.Migration, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}

	var out []model.Migration
	seen := make(map[int]string)
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".surql" {
			continue
		}
		m := fileName.FindStringSubmatch(e.Name())
		if m == nil {
			return nil, fmt.Errorf("migration %q: name must look like 0001_name.surql", e.Name())
		}
		version, _ := strconv.Atoi(m[1])
		if version == 0 {
			return nil, fmt.Errorf("migration %q: versions start at 0001", e.Name())
		}
		if prev, ok := seen[version]; ok {
			return nil, fmt.Errorf("migration %q: version %d already used by %q", e.Name(), version, prev)
		}
		seen[version] = e.Name()

		content, err := fs.ReadFile(fsys, e.Name())
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", e.Name(), err)
		}
		out = append(out, model.Migration{
			Version:  version,
			Name:     m[2],
			Checksum: Checksum(content),
			SQL:      string(content),
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// Checksum returns the hex sha256 of a migration file
func Checksum(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
