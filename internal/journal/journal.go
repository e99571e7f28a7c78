// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

// Package journal keeps a record of every orchestrated run in a SQL
// database (SQLite by default, PostgreSQL or MySQL optionally) through bun.
package journal // import "github.com/toeirei/keyrepo/internal/journal"

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/toeirei/keyrepo/internal/core"
	"github.com/toeirei/keyrepo/internal/model"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	_ "modernc.org/sqlite"             // Pure Go SQLite driver
)

// FileName is the default SQLite journal inside the backup directory.
const FileName = "journal.db"

// RunRecord is one row of the runs table.
type RunRecord struct {
	bun.BaseModel `bun:"table:runs"`

	ID          int64     `bun:"id,pk,autoincrement"`
	Repository  string    `bun:"repository,notnull"`
	Operations  string    `bun:"operations,notnull"`
	State       string    `bun:"state,notnull"`
	FailedOp    string    `bun:"failed_op"`
	ErrorKind   string    `bun:"error_kind"`
	Error       string    `bun:"error"`
	SnapshotDir string    `bun:"snapshot_dir"`
	FileCount   int       `bun:"file_count,notnull"`
	StartedAt   time.Time `bun:"started_at,notnull"`
	FinishedAt  time.Time `bun:"finished_at,notnull"`
}

// Duration is the wall time of the run.
func (r RunRecord) Duration() time.Duration { return r.FinishedAt.Sub(r.StartedAt) }

// NewRecord converts an orchestrator report into a row.
func NewRecord(rep core.Report) RunRecord {
	rec := RunRecord{
		Repository:  rep.Path,
		Operations:  rep.Requested.String(),
		State:       rep.State.String(),
		SnapshotDir: rep.Backup.Dir,
		FileCount:   rep.Backup.Len(),
		StartedAt:   rep.Started.UTC(),
		FinishedAt:  rep.Finished.UTC(),
	}
	if rep.FailedOp != 0 {
		rec.FailedOp = rep.FailedOp.String()
	}
	if rep.Err != nil {
		rec.ErrorKind = model.KindOf(rep.Err).String()
		rec.Error = rep.Err.Error()
	}
	return rec
}

// Journal is an open run journal.
type Journal struct {
	db *bun.DB
}

// Open connects to dbType (sqlite, postgres or mysql) at dsn and creates
// the runs table if needed.
func Open(ctx context.Context, dbType, dsn string) (*Journal, error) {
	driverName := dbType
	switch dbType {
	case "sqlite":
	case "postgres":
		// The pgx stdlib registers driver name "pgx".
		driverName = "pgx"
	case "mysql":
		cfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return nil, fmt.Errorf("invalid mysql dsn: %w", err)
		}
		cfg.ParseTime = true
		dsn = cfg.FormatDSN()
	default:
		return nil, fmt.Errorf("unsupported journal database type: '%s'", dbType)
	}

	sqlDB, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	if dbType == "sqlite" {
		// One connection keeps ":memory:" databases visible across queries
		// and serializes writers on file databases.
		sqlDB.SetMaxOpenConns(1)
	}

	j := &Journal{db: createBunDB(sqlDB, dbType)}
	if _, err := j.db.NewCreateTable().Model((*RunRecord)(nil)).IfNotExists().Exec(ctx); err != nil {
		_ = j.db.Close()
		return nil, fmt.Errorf("failed to create runs table: %w", err)
	}
	return j, nil
}

func createBunDB(sqlDB *sql.DB, dbType string) *bun.DB {
	switch dbType {
	case "postgres":
		return bun.NewDB(sqlDB, pgdialect.New())
	case "mysql":
		return bun.NewDB(sqlDB, mysqldialect.New())
	default:
		return bun.NewDB(sqlDB, sqlitedialect.New())
	}
}

// Record appends rec and sets its ID.
func (j *Journal) Record(ctx context.Context, rec *RunRecord) error {
	if rec == nil {
		return errors.New("nil run record")
	}
	if _, err := j.db.NewInsert().Model(rec).Exec(ctx); err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// Recent returns up to limit runs for repository, newest first. An empty
// repository returns runs of every repository.
func (j *Journal) Recent(ctx context.Context, repository string, limit int) ([]RunRecord, error) {
	var out []RunRecord
	q := j.db.NewSelect().Model(&out).OrderExpr("id DESC")
	if repository != "" {
		q = q.Where("repository = ?", repository)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return out, nil
}

// Close closes the underlying database.
func (j *Journal) Close() error { return j.db.Close() }
