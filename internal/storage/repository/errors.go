package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound - запись не найдена.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists - нарушено ограничение уникальности.
	ErrAlreadyExists = errors.New("already exists")
	// ErrReferenced - запись нельзя удалить, на неё ссылаются.
	ErrReferenced = errors.New("referenced by other records")
)

// ConstraintError сообщает, какое ограничение нарушено.
type ConstraintError struct {
	Constraint string
	Err        error
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("constraint %s: %v", e.Constraint, e.Err)
}

func (e *ConstraintError) Unwrap() error {
	return e.Err
}

// mapError переводит ошибки драйвера в ошибки пакета.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return &ConstraintError{Constraint: pgErr.ConstraintName, Err: ErrAlreadyExists}
		case pgerrcode.ForeignKeyViolation, pgerrcode.RestrictViolation:
			return &ConstraintError{Constraint: pgErr.ConstraintName, Err: ErrReferenced}
		}
	}
	return err
}

// ConstraintName возвращает имя нарушенного ограничения или пустую строку.
func ConstraintName(err error) string {
	var ce *ConstraintError
	if errors.As(err, &ce) {
		return ce.Constraint
	}
	return ""
}
