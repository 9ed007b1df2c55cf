package db

import (
	"errors"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound   = errors.New("record not found")
	ErrForeignKey = errors.New("foreign key violation")
	ErrDuplicate  = errors.New("duplicate value")
)

// SQLSTATE codes translated by Translate.
const (
	codeForeignKeyViolation = "23503"
	codeUniqueViolation     = "23505"
)

// ConstraintError is a constraint violation reported by PostgreSQL. Kind is
// ErrForeignKey or ErrDuplicate, so callers can use errors.Is.
type ConstraintError struct {
	Kind       error
	Table      string
	Column     string
	Constraint string
	Err        error
}

func (e *ConstraintError) Error() string {
	if e.Column != "" {
		return e.Kind.Error() + " on " + e.Table + "." + e.Column
	}
	return e.Kind.Error() + " on " + e.Table + " (" + e.Constraint + ")"
}

func (e *ConstraintError) Unwrap() []error { return []error{e.Kind, e.Err} }

var detailKeyPattern = regexp.MustCompile(`^Key \(([^)]+)\)=`)

// Translate maps driver errors onto the package sentinels. Errors it does not
// recognise are returned unchanged.
func Translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case codeForeignKeyViolation:
		return &ConstraintError{Kind: ErrForeignKey, Table: pgErr.TableName, Constraint: pgErr.ConstraintName, Err: err}
	case codeUniqueViolation:
		return &ConstraintError{
			Kind:       ErrDuplicate,
			Table:      pgErr.TableName,
			Column:     uniqueColumn(pgErr),
			Constraint: pgErr.ConstraintName,
			Err:        err,
		}
	}
	return err
}

// uniqueColumn reads the column out of "Key (col)=(value) already exists."
// and falls back to the <table>_<col>_key constraint naming convention.
func uniqueColumn(pgErr *pgconn.PgError) string {
	if pgErr.ColumnName != "" {
		return pgErr.ColumnName
	}
	if m := detailKeyPattern.FindStringSubmatch(pgErr.Detail); m != nil {
		return strings.TrimSpace(strings.Split(m[1], ",")[0])
	}
	name := strings.TrimPrefix(pgErr.ConstraintName, pgErr.TableName+"_")
	return strings.TrimSuffix(name, "_key")
}

// DuplicateColumn reports the column of a unique violation, if err is one.
func DuplicateColumn(err error) (string, bool) {
	var ce *ConstraintError
	if errors.As(err, &ce) && ce.Kind == ErrDuplicate {
		return ce.Column, true
	}
	return "", false
}
