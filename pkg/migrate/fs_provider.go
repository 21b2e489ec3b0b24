package migrate

import (
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// File names look like 001_settings.up.sql or 001_settings.down.sql
var migrationFile = regexp.MustCompile(`^(\d+)_(.+)\.(up|down)\.sql$`)

// FSProvider reads migrations from one directory of a filesystem, usually an embed.FS
type FSProvider struct {
	fsys fs.FS
	dir  string
}

// NewFSProvider reads migrations from dir within fsys. An empty dir means the root.
func NewFSProvider(fsys fs.FS, dir string) *FSProvider {
	if dir == "" {
		dir = "."
	}
	return &FSProvider{fsys: fsys, dir: dir}
}

// Migrations returns the migrations in the directory, oldest first. Other files are
// ignored. Every migration needs an up file and a version above zero.
func (p *FSProvider) Migrations() ([]Migration, error) {
	entries, err := fs.ReadDir(p.fsys, p.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migration directory %s: %w", p.dir, err)
	}

	byVersion := make(map[int]*Migration)
	for _, e := range entries {
		parts := migrationFile.FindStringSubmatch(e.Name())
		if e.IsDir() || parts == nil {
			continue
		}

		version, err := strconv.Atoi(parts[1])
		if err != nil || version <= 0 {
			return nil, fmt.Errorf("migration %s: version must be a positive number", e.Name())
		}

		content, err := fs.ReadFile(p.fsys, path.Join(p.dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", e.Name(), err)
		}

		mig, ok := byVersion[version]
		if !ok {
			mig = &Migration{Version: version, Name: strings.ReplaceAll(parts[2], "_", " ")}
			byVersion[version] = mig
		} else if mig.Name != strings.ReplaceAll(parts[2], "_", " ") {
			return nil, fmt.Errorf("migration version %d is used by %q and %q", version, mig.Name, parts[2])
		}

		if parts[3] == "up" {
			mig.Up = string(content)
		} else {
			mig.Down = string(content)
		}
	}

	migrations := make([]Migration, 0, len(byVersion))
	for _, mig := range byVersion {
		if mig.Up == "" {
			return nil, fmt.Errorf("migration %d (%s) has no up file", mig.Version, mig.Name)
		}
		migrations = append(migrations, *mig)
	}
	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}
