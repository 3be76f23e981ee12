package migration

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
)

var migrationName = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Generator creates migration file pairs in a directory.
type Generator struct {
	migrationsDir string
}

// NewGenerator creates a new migration file generator.
func NewGenerator(migrationsDir string) *Generator {
	return &Generator{
		migrationsDir: migrationsDir,
	}
}

// Source returns a Source reading the generator's directory.
func (g *Generator) Source() *Source {
	return NewSource(os.DirFS(g.migrationsDir), ".")
}

// NextVersion returns the version after the highest one found in the
// directory and in base. Versions are zero-padded to four digits.
func (g *Generator) NextVersion(base []Migration) (string, error) {
	highest := 0
	bump := func(version string) {
		if n, err := strconv.Atoi(version); err == nil && n > highest {
			highest = n
		}
	}
	for _, m := range base {
		bump(m.Version)
	}

	files, err := g.Source().ListMigrations()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}
	for _, f := range files {
		bump(f.Version)
	}
	return fmt.Sprintf("%04d", highest+1), nil
}

// GenerateEmpty creates empty migration files for manual editing. The
// version follows every migration in base and in the directory.
func (g *Generator) GenerateEmpty(name string, base []Migration) (*MigrationFile, error) {
	if !migrationName.MatchString(name) {
		return nil, fmt.Errorf("invalid migration name %q: use lower_snake_case", name)
	}

	// Ensure migrations directory exists
	if err := os.MkdirAll(g.migrationsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create migrations directory: %w", err)
	}

	version, err := g.NextVersion(base)
	if err != nil {
		return nil, err
	}

	migrationFile := &MigrationFile{
		Version:  version,
		Name:     name,
		UpPath:   filepath.Join(g.migrationsDir, FileName(version, name, "up")),
		DownPath: filepath.Join(g.migrationsDir, FileName(version, name, "down")),
	}

	upSQL := fmt.Sprintf("-- Migration: %s\n-- Version: %s\n\n-- Write your UP migration here\n", name, version)
	downSQL := fmt.Sprintf("-- Migration: %s\n-- Version: %s\n\n-- Write your DOWN migration here\n", name, version)

	if err := g.writeFile(migrationFile.UpPath, upSQL); err != nil {
		return nil, fmt.Errorf("failed to write up migration: %w", err)
	}

	if err := g.writeFile(migrationFile.DownPath, downSQL); err != nil {
		return nil, fmt.Errorf("failed to write down migration: %w", err)
	}

	return migrationFile, nil
}

// writeFile writes content to a new file and refuses to overwrite.
func (g *Generator) writeFile(path, content string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Merge combines migration sets ordered by version. A version present in
// more than one set is an error.
func Merge(sets ...[]Migration) ([]Migration, error) {
	seen := make(map[string]string)
	var merged []Migration
	for _, set := range sets {
		for _, m := range set {
			if name, ok := seen[m.Version]; ok {
				return nil, fmt.Errorf("migration version %s is defined twice (%s and %s)", m.Version, name, m.Name)
			}
			seen[m.Version] = m.Name
			merged = append(merged, m)
		}
	}
	sortByVersion(merged)
	return merged, nil
}
