package storage

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Varun5711/clubhouse/internal/database"
	"github.com/Varun5711/clubhouse/internal/models"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// PostgresStorage groups the per-table storages behind the Store interface.
type PostgresStorage struct {
	*MemberStorage
	*ReservationStorage
	*AddressStorage
	*ResetTokenStorage
}

func NewPostgresStorage(db *database.DBManager) *PostgresStorage {
	return &PostgresStorage{
		MemberStorage:      NewMemberStorage(db),
		ReservationStorage: NewReservationStorage(db),
		AddressStorage:     NewAddressStorage(db),
		ResetTokenStorage:  NewResetTokenStorage(db),
	}
}

// translateError turns constraint violations into storage sentinels.
func translateError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			if strings.HasSuffix(pgErr.ConstraintName, "_pkey") {
				return fmt.Errorf("%s: %w (%s)", op, ErrDuplicateKey, pgErr.ConstraintName)
			}
			return fmt.Errorf("%s: %w (%s)", op, ErrDuplicate, pgErr.ConstraintName)
		case pgForeignKeyViolation:
			return fmt.Errorf("%s: %w (%s)", op, ErrForeignKey, pgErr.ConstraintName)
		}
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

func parseDate(s string) (time.Time, error) {
	d, err := time.Parse(models.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return d, nil
}

// dateLockKey packs a date into one advisory lock key (yyyymmdd).
func dateLockKey(d time.Time) int32 {
	return int32(d.Year()*10000 + int(d.Month())*100 + d.Day())
}
