package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite" // pure-Go SQLite driver, registers as "sqlite"
)

// walJournalSizeLimit bounds the WAL journal, mirroring the teacher's
// sync-state database pragmas.
const walJournalSizeLimit = 67108864 // 64 MiB

// Store is the transactional handle over the catalog schema. Per the
// "catalog exclusively owned by whichever component is currently executing
// a public entry point" rule, callers must not share a *Store across
// concurrent planner/engine/rollback invocations.
type Store struct {
	db     *sql.DB
	logger *slog.Logger

	driveStmts driveStatements
	fileStmts  fileStatements
	dupStmts   dupStatements
	planStmts  planStatements
	stepStmts  stepStatements
	auditStmts auditStatements
}

type driveStatements struct {
	get, getByLabel, insert, setOnline, delete *sql.Stmt
}

type fileStatements struct {
	get, getByPath, upsert, setStatus, setClassification, setDuplicate, setHash *sql.Stmt
}

type dupStatements struct {
	insert, get, clearMembers, deleteGroup, assignMembers *sql.Stmt
}

type planStatements struct {
	insert, get, setStatus, addProgress *sql.Stmt
}

type stepStatements struct {
	insert, get, setStatus, setHashes, listPendingOrdered, listCompletedOrdered *sql.Stmt
}

type auditStatements struct {
	insert *sql.Stmt
}

// Open opens (creating if necessary) the catalog database at dbPath,
// applies pragmas and migrations, and prepares all repeated statements.
// Use ":memory:" for tests.
func Open(ctx context.Context, dbPath string, logger *slog.Logger) (*Store, error) {
	logger.Info("opening catalog database", "path", dbPath)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := setPragmas(ctx, db); err != nil {
		db.Close()

		return nil, err
	}

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()

		return nil, err
	}

	s := &Store{db: db, logger: logger}

	if err := s.prepareAll(); err != nil {
		db.Close()

		return nil, fmt.Errorf("prepare statements: %w", err)
	}

	return s, nil
}

// Close releases prepared statements and the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func setPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = FULL",
		"PRAGMA foreign_keys = ON",
		fmt.Sprintf("PRAGMA journal_size_limit = %d", walJournalSizeLimit),
	}

	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("set pragma %q: %w", p, err)
		}
	}

	return nil
}

type stmtDef struct {
	dst   **sql.Stmt
	query string
}

func (s *Store) prepareAll() error {
	if err := s.prepareDriveStmts(); err != nil {
		return err
	}

	if err := s.prepareFileStmts(); err != nil {
		return err
	}

	if err := s.prepareDupStmts(); err != nil {
		return err
	}

	if err := s.preparePlanStmts(); err != nil {
		return err
	}

	if err := s.prepareStepStmts(); err != nil {
		return err
	}

	return s.prepareAuditStmts()
}

func (s *Store) prepareGroup(defs []stmtDef) error {
	for _, d := range defs {
		stmt, err := s.db.Prepare(d.query)
		if err != nil {
			return fmt.Errorf("prepare %q: %w", d.query, err)
		}

		*d.dst = stmt
	}

	return nil
}
