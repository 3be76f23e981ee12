package migration

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

//go:embed sql/*.sql
var embedded embed.FS

// Source lists and reads migrations from a file system.
type Source struct {
	fsys fs.FS
	dir  string
}

// NewSource creates a Source reading {version}_{name}.{up|down}.sql files
// from dir inside fsys.
func NewSource(fsys fs.FS, dir string) *Source {
	return &Source{fsys: fsys, dir: dir}
}

// Embedded returns the Source for the schema compiled into the binary.
func Embedded() *Source {
	return NewSource(embedded, "sql")
}

// ListMigrations lists migration file pairs ordered by version.
func (s *Source) ListMigrations() ([]MigrationFile, error) {
	entries, err := fs.ReadDir(s.fsys, s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	// Group files by version
	fileMap := make(map[string]*MigrationFile)

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		fileName := entry.Name()

		parts := strings.SplitN(fileName, "_", 2)
		if len(parts) != 2 {
			continue
		}
		version, rest := parts[0], parts[1]

		var name, direction string
		if before, ok := strings.CutSuffix(rest, ".up.sql"); ok {
			name, direction = before, "up"
		} else if before, ok := strings.CutSuffix(rest, ".down.sql"); ok {
			name, direction = before, "down"
		} else {
			continue
		}

		mf, exists := fileMap[version]
		if !exists {
			mf = &MigrationFile{Version: version, Name: name}
			fileMap[version] = mf
		}
		if mf.Name != name {
			return nil, fmt.Errorf("migration %s has mismatched names %q and %q", version, mf.Name, name)
		}

		full := path.Join(s.dir, fileName)
		if direction == "up" {
			mf.UpPath = full
		} else {
			mf.DownPath = full
		}
	}

	migrations := make([]MigrationFile, 0, len(fileMap))
	for _, mf := range fileMap {
		// Only include migrations that have both up and down files
		if mf.UpPath != "" && mf.DownPath != "" {
			migrations = append(migrations, *mf)
		}
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	return migrations, nil
}

func sortByVersion(migrations []Migration) {
	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
}

// ReadMigration reads the SQL content of a migration file pair.
func (s *Source) ReadMigration(file MigrationFile) (*Migration, error) {
	upSQL, err := fs.ReadFile(s.fsys, file.UpPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read up migration: %w", err)
	}

	downSQL, err := fs.ReadFile(s.fsys, file.DownPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read down migration: %w", err)
	}

	return &Migration{
		Version: file.Version,
		Name:    file.Name,
		UpSQL:   string(upSQL),
		DownSQL: string(downSQL),
	}, nil
}

// LoadAll lists and reads every migration in version order.
func (s *Source) LoadAll() ([]Migration, error) {
	files, err := s.ListMigrations()
	if err != nil {
		return nil, err
	}

	migrations := make([]Migration, 0, len(files))
	for _, file := range files {
		mig, err := s.ReadMigration(file)
		if err != nil {
			return nil, err
		}
		migrations = append(migrations, *mig)
	}
	return migrations, nil
}
