package clickhouse

import (
	"context"
	"fmt"
	"regexp"

	"solana-mev-lab/internal/storage/migrations"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Migrate creates the database named in dsn if needed, applies the
// embedded migrations not yet recorded in schema_migrations and returns
// a connection to that database. ClickHouse DDL is not transactional;
// each statement is written with IF NOT EXISTS so a partly applied
// migration can be rerun.
func Migrate(ctx context.Context, dsn string) (*Conn, int, error) {
	all, err := migrations.ClickHouse()
	if err != nil {
		return nil, 0, err
	}

	opts, err := parseDSN(dsn)
	if err != nil {
		return nil, 0, fmt.Errorf("parse clickhouse dsn: %w", err)
	}
	database := opts.Auth.Database
	if !identRe.MatchString(database) {
		return nil, 0, fmt.Errorf("clickhouse dsn needs a database name, got %q", database)
	}

	// Connect without a database first; it may not exist yet.
	opts.Auth.Database = ""
	admin, err := open(ctx, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("connect clickhouse admin: %w", err)
	}
	err = admin.Exec(ctx, "CREATE DATABASE IF NOT EXISTS "+database)
	_ = admin.Close()
	if err != nil {
		return nil, 0, fmt.Errorf("create database %s: %w", database, err)
	}

	opts.Auth.Database = database
	conn, err := open(ctx, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("connect clickhouse %s: %w", database, err)
	}
	n, err := conn.apply(ctx, all)
	if err != nil {
		_ = conn.Close()
		return nil, 0, err
	}
	return conn, n, nil
}

func (c *Conn) apply(ctx context.Context, all []migrations.Migration) (int, error) {
	if err := c.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    UInt32,
			name       String,
			applied_at DateTime DEFAULT now()
		) ENGINE = ReplacingMergeTree(applied_at)
		ORDER BY version`); err != nil {
		return 0, fmt.Errorf("create schema_migrations: %w", err)
	}

	done, err := c.appliedVersions(ctx)
	if err != nil {
		return 0, err
	}

	var applied int
	for _, m := range migrations.Pending(all, done) {
		for _, stmt := range migrations.Statements(m.SQL) {
			if err := c.Exec(ctx, stmt); err != nil {
				return applied, fmt.Errorf("apply migration %s: %w", m, err)
			}
		}
		if err := c.Exec(ctx,
			`INSERT INTO schema_migrations (version, name) VALUES (?, ?)`,
			uint32(m.Version), m.Name); err != nil {
			return applied, fmt.Errorf("record migration %s: %w", m, err)
		}
		applied++
	}
	return applied, nil
}

func (c *Conn) appliedVersions(ctx context.Context) (map[int]bool, error) {
	rows, err := c.Query(ctx, `SELECT DISTINCT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("read schema_migrations: %w", err)
	}
	defer rows.Close()

	done := make(map[int]bool)
	for rows.Next() {
		var v uint32
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan schema_migrations: %w", err)
		}
		done[int(v)] = true
	}
	return done, rows.Err()
}
