// Package sqlite provides a SQLite-backed implementation of the
// storage.Storage interface using Go's standard database/sql package.
//
// Uniqueness of email, phone and aadhar_number is enforced by UNIQUE
// column constraints, so two concurrent submissions with the same email
// cannot both succeed: SQLite rejects the second INSERT atomically and we
// translate that rejection into a *storage.DuplicateKeyError.
//
// Importing go-sqlite3 also registers the "sqlite3" driver with database/sql.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aanand-mishra/registration-api/internal/config"
	"github.com/aanand-mishra/registration-api/internal/storage"
	"github.com/aanand-mishra/registration-api/internal/types"

	"github.com/mattn/go-sqlite3"
)

// SQLite is the concrete implementation of storage.Storage.
// A single *sql.DB is opened at startup and shared by every request.
type SQLite struct {
	Db *sql.DB

	// now is swapped in tests to get deterministic creation times.
	now func() time.Time
}

// columnFields maps a UNIQUE column to the field name the rest of the
// application uses for it.
var columnFields = map[string]string{
	"email":         storage.FieldEmail,
	"phone":         storage.FieldPhone,
	"aadhar_number": storage.FieldAadharNumber,
}

const selectColumns = `id, first_name, last_name, email, phone, date_of_birth,
	address, city, state, pincode, aadhar_number, aadhar_file, signature_file,
	agree_terms, agree_marketing, course_name, created_at`

// New opens the SQLite database at cfg.StoragePath, creates the
// registrations table if it does not already exist, and returns a
// ready-to-use *SQLite.
func New(cfg *config.Config) (*SQLite, error) {
	if onDisk(cfg.StoragePath) {
		if err := os.MkdirAll(filepath.Dir(cfg.StoragePath), 0o755); err != nil {
			return nil, fmt.Errorf("sqlite.New: create storage dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("sqlite.New: open db: %w", err)
	}

	// SQLite serialises writers anyway. One connection also keeps a
	// ":memory:" database alive and shared across the whole pool.
	db.SetMaxOpenConns(1)

	// phone and aadhar_number are nullable: empty values are stored as
	// NULL, and SQLite lets any number of NULLs coexist under UNIQUE.
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS registrations (
			id              TEXT    PRIMARY KEY,
			first_name      TEXT    NOT NULL,
			last_name       TEXT    NOT NULL,
			email           TEXT    NOT NULL UNIQUE,
			phone           TEXT    UNIQUE,
			date_of_birth   TEXT    NOT NULL DEFAULT '',
			address         TEXT    NOT NULL DEFAULT '',
			city            TEXT    NOT NULL DEFAULT '',
			state           TEXT    NOT NULL DEFAULT '',
			pincode         TEXT    NOT NULL DEFAULT '',
			aadhar_number   TEXT    UNIQUE,
			aadhar_file     TEXT    NOT NULL,
			signature_file  TEXT    NOT NULL,
			agree_terms     INTEGER NOT NULL DEFAULT 0,
			agree_marketing INTEGER NOT NULL DEFAULT 0,
			course_name     TEXT    NOT NULL DEFAULT '',
			created_at      INTEGER NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite.New: create table: %w", err)
	}

	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_registrations_created_at
		ON registrations (created_at)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite.New: create index: %w", err)
	}

	return &SQLite{Db: db, now: time.Now}, nil
}

// Close releases the underlying connection pool.
func (s *SQLite) Close() error {
	return s.Db.Close()
}

// CreateRegistration builds the record and inserts it in one statement.
func (s *SQLite) CreateRegistration(ctx context.Context, in types.RegistrationInput) (types.Registration, error) {
	rec, err := storage.BuildRecord(in, s.now())
	if err != nil {
		return types.Registration{}, err
	}

	stmt, err := s.Db.PrepareContext(ctx, `
		INSERT INTO registrations (
			id, first_name, last_name, email, phone, date_of_birth,
			address, city, state, pincode, aadhar_number, aadhar_file,
			signature_file, agree_terms, agree_marketing, course_name, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return types.Registration{}, fmt.Errorf("CreateRegistration: prepare: %w", err)
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx,
		rec.ID, rec.FirstName, rec.LastName, rec.Email, nullIfEmpty(rec.Phone),
		rec.DateOfBirth, rec.Address, rec.City, rec.State, rec.Pincode,
		nullIfEmpty(rec.AadharNumber), rec.AadharFile, rec.SignatureFile,
		rec.AgreeTerms, rec.AgreeMarketing, rec.CourseName, rec.CreatedAt.UnixNano(),
	)
	if err != nil {
		if dup := duplicateKey(err); dup != nil {
			return types.Registration{}, dup
		}
		return types.Registration{}, fmt.Errorf("CreateRegistration: exec: %w", err)
	}

	return rec, nil
}

// GetRegistrations returns all rows, newest first. rowid breaks ties
// between rows stamped with the same nanosecond.
func (s *SQLite) GetRegistrations(ctx context.Context) ([]types.Registration, error) {
	stmt, err := s.Db.PrepareContext(ctx,
		"SELECT "+selectColumns+" FROM registrations ORDER BY created_at DESC, rowid DESC",
	)
	if err != nil {
		return nil, fmt.Errorf("GetRegistrations: prepare: %w", err)
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetRegistrations: query: %w", err)
	}
	defer rows.Close()

	registrations := make([]types.Registration, 0)

	for rows.Next() {
		var (
			rec          types.Registration
			phone        sql.NullString
			aadharNumber sql.NullString
			createdAt    int64
		)

		if err := rows.Scan(
			&rec.ID,
			&rec.FirstName,
			&rec.LastName,
			&rec.Email,
			&phone,
			&rec.DateOfBirth,
			&rec.Address,
			&rec.City,
			&rec.State,
			&rec.Pincode,
			&aadharNumber,
			&rec.AadharFile,
			&rec.SignatureFile,
			&rec.AgreeTerms,
			&rec.AgreeMarketing,
			&rec.CourseName,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("GetRegistrations: scan row: %w", err)
		}

		rec.Phone = phone.String
		rec.AadharNumber = aadharNumber.String
		rec.CreatedAt = time.Unix(0, createdAt).UTC()

		registrations = append(registrations, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("GetRegistrations: rows iteration: %w", err)
	}

	return registrations, nil
}

// duplicateKey recognises a UNIQUE violation, whose message reads
//
//	UNIQUE constraint failed: registrations.email
//
// and names the offending field. It returns nil for any other error.
func duplicateKey(err error) *storage.DuplicateKeyError {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) || sqliteErr.ExtendedCode != sqlite3.ErrConstraintUnique {
		return nil
	}

	msg := sqliteErr.Error()
	if i := strings.LastIndex(msg, "registrations."); i >= 0 {
		column := msg[i+len("registrations."):]
		if field, ok := columnFields[column]; ok {
			return &storage.DuplicateKeyError{Field: field}
		}
		return &storage.DuplicateKeyError{Field: column}
	}

	return &storage.DuplicateKeyError{}
}

// onDisk reports whether path names a plain database file, as opposed to
// an in-memory database or a "file:" URI.
func onDisk(path string) bool {
	return path != "" && !strings.HasPrefix(path, ":memory:") && !strings.HasPrefix(path, "file:")
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
