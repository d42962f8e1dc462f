// Package migrations holds the embedded SQL schema for PostgreSQL and
// ClickHouse. Files are named NNN_description.sql; the numeric prefix is
// the schema version recorded by the store packages once applied.
package migrations

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strconv"
	"strings"
)

//go:embed postgres/*.sql clickhouse/*.sql
var files embed.FS

var (
	// ErrBadFileName is returned for a migration file without a NNN_ prefix.
	ErrBadFileName = errors.New("migration file name must look like NNN_name.sql")

	// ErrDuplicateVersion is returned when two files share a version.
	ErrDuplicateVersion = errors.New("duplicate migration version")
)

// Migration is one versioned schema change.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// String returns the file-style name, e.g. "003_arbitrage_opportunities".
func (m Migration) String() string {
	return fmt.Sprintf("%03d_%s", m.Version, m.Name)
}

// Postgres returns the PostgreSQL migrations ordered by version.
func Postgres() ([]Migration, error) {
	return Load(files, "postgres")
}

// ClickHouse returns the ClickHouse migrations ordered by version. Each
// one is checked so Statements can split it safely.
func ClickHouse() ([]Migration, error) {
	ms, err := Load(files, "clickhouse")
	if err != nil {
		return nil, err
	}
	for _, m := range ms {
		if err := validateNoSemicolonInStrings(m.SQL); err != nil {
			return nil, fmt.Errorf("migration %s: %w", m, err)
		}
	}
	return ms, nil
}

// Load reads every .sql file in dir of fsys. Empty files are skipped.
func Load(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations %s: %w", dir, err)
	}

	seen := make(map[int]string)
	var out []Migration
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".sql" {
			continue
		}
		version, name, err := parseFileName(entry.Name())
		if err != nil {
			return nil, err
		}
		if prev, ok := seen[version]; ok {
			return nil, fmt.Errorf("%w: %s and %s", ErrDuplicateVersion, prev, entry.Name())
		}
		seen[version] = entry.Name()

		data, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		if strings.TrimSpace(string(data)) == "" {
			continue
		}
		out = append(out, Migration{Version: version, Name: name, SQL: string(data)})
	}

	slices.SortFunc(out, func(a, b Migration) int { return a.Version - b.Version })
	return out, nil
}

func parseFileName(file string) (int, string, error) {
	base := strings.TrimSuffix(file, ".sql")
	prefix, name, ok := strings.Cut(base, "_")
	if !ok || name == "" {
		return 0, "", fmt.Errorf("%w: %s", ErrBadFileName, file)
	}
	version, err := strconv.Atoi(prefix)
	if err != nil || version <= 0 {
		return 0, "", fmt.Errorf("%w: %s", ErrBadFileName, file)
	}
	return version, name, nil
}

// Pending drops the migrations whose version is already applied.
func Pending(all []Migration, applied map[int]bool) []Migration {
	var out []Migration
	for _, m := range all {
		if !applied[m.Version] {
			out = append(out, m)
		}
	}
	return out
}

// Statements splits a migration into single statements for drivers that
// cannot run several per Exec. Lines starting with -- are dropped first.
// Semicolons inside string literals are not supported; ClickHouse rejects
// such files up front.
func Statements(sql string) []string {
	var kept []string
	for _, line := range strings.Split(sql, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		kept = append(kept, line)
	}

	var stmts []string
	for _, part := range strings.Split(strings.Join(kept, "\n"), ";") {
		if stmt := strings.TrimSpace(part); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}

func validateNoSemicolonInStrings(sql string) error {
	inString := false
	for i := 0; i < len(sql); i++ {
		switch sql[i] {
		case '\'':
			if inString && i+1 < len(sql) && sql[i+1] == '\'' {
				i++
				continue
			}
			inString = !inString
		case ';':
			if inString {
				return fmt.Errorf("semicolon inside string literal at byte %d", i)
			}
		}
	}
	return nil
}
