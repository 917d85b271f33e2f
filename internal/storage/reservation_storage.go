package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Varun5711/clubhouse/internal/database"
	"github.com/Varun5711/clubhouse/internal/models"
	"github.com/jackc/pgx/v5"
)

type ReservationStorage struct {
	db *database.DBManager
}

func NewReservationStorage(db *database.DBManager) *ReservationStorage {
	return &ReservationStorage{db: db}
}

// lockSlot serializes writers of one court on one day for the rest of the transaction.
func lockSlot(ctx context.Context, tx pgx.Tx, court int, date time.Time) error {
	_, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1::int, $2::int)`, court, dateLockKey(date))
	if err != nil {
		return fmt.Errorf("failed to lock slot: %w", err)
	}
	return nil
}

func checkOverlap(ctx context.Context, tx pgx.Tx, r *models.Reservation, date time.Time, excludeID *string) error {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM reservation
			WHERE court_number = $1
			  AND reservation_date = $2
			  AND reservation_time < $3
			  AND reservation_time + duration > $4
			  AND ($5::uuid IS NULL OR id <> $5::uuid)
		)
	`

	var taken bool
	err := tx.QueryRow(ctx, query, r.CourtNumber, date, r.EndHour(), r.ReservationTime, excludeID).Scan(&taken)
	if err != nil {
		return fmt.Errorf("failed to check slot: %w", err)
	}
	if taken {
		return ErrSlotTaken
	}
	return nil
}

func (s *ReservationStorage) CreateReservation(ctx context.Context, r *models.Reservation) error {
	date, err := parseDate(r.ReservationDate)
	if err != nil {
		return err
	}

	return s.db.WithTx(ctx, func(tx pgx.Tx) error {
		if err := lockSlot(ctx, tx, r.CourtNumber, date); err != nil {
			return err
		}
		if err := checkOverlap(ctx, tx, r, date, nil); err != nil {
			return err
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO reservation (id, court_number, reservation_date, reservation_time, duration)
			VALUES ($1, $2, $3, $4, $5)
		`, r.ID, r.CourtNumber, date, r.ReservationTime, r.Duration)
		if err != nil {
			return translateError("create reservation", err)
		}

		for _, memberID := range r.MemberIDs {
			_, err := tx.Exec(ctx,
				`INSERT INTO reservation_to_member (reservation_id, member_id) VALUES ($1, $2)`,
				r.ID, memberID,
			)
			if err != nil {
				return translateError("link reservation member", err)
			}
		}

		return nil
	})
}

func (s *ReservationStorage) GetReservation(ctx context.Context, id string) (*models.Reservation, error) {
	query := `
		SELECT id::text, court_number, reservation_date, reservation_time, duration
		FROM reservation
		WHERE id = $1
	`

	var r models.Reservation
	var date time.Time
	err := s.db.Read().QueryRow(ctx, query, id).Scan(
		&r.ID,
		&r.CourtNumber,
		&date,
		&r.ReservationTime,
		&r.Duration,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	r.ReservationDate = date.Format(models.DateLayout)

	rows, err := s.db.Read().Query(ctx,
		`SELECT member_id FROM reservation_to_member WHERE reservation_id = $1 ORDER BY member_id`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get reservation members: %w", err)
	}

	memberIDs, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan reservation members: %w", err)
	}
	r.MemberIDs = memberIDs

	return &r, nil
}

func (s *ReservationStorage) ListPlanning(ctx context.Context, date time.Time) ([]*models.PlanningEntry, error) {
	query := `
		SELECT r.id::text, COALESCE(rm.member_id, ''), r.court_number, r.reservation_date,
		       r.reservation_time, r.duration,
		       COALESCE(m.first_name, ''), COALESCE(m.last_name, '')
		FROM reservation r
		LEFT JOIN reservation_to_member rm ON rm.reservation_id = r.id
		LEFT JOIN member m ON m.id = rm.member_id
		WHERE r.reservation_date = $1
		ORDER BY r.reservation_time, r.court_number, m.last_name NULLS LAST
	`

	rows, err := s.db.Read().Query(ctx, query, date)
	if err != nil {
		return nil, fmt.Errorf("failed to list planning: %w", err)
	}
	defer rows.Close()

	entries := make([]*models.PlanningEntry, 0)
	for rows.Next() {
		var e models.PlanningEntry
		var d time.Time
		err := rows.Scan(
			&e.ID,
			&e.MemberID,
			&e.CourtNumber,
			&d,
			&e.ReservationTime,
			&e.Duration,
			&e.MemberFirstName,
			&e.MemberLastName,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan planning entry: %w", err)
		}
		e.ReservationDate = d.Format(models.DateLayout)
		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating planning: %w", err)
	}

	return entries, nil
}

func (s *ReservationStorage) ListReservationsByMember(ctx context.Context, memberID string) ([]*models.Reservation, error) {
	query := `
		SELECT r.id::text, r.court_number, r.reservation_date, r.reservation_time, r.duration
		FROM reservation r
		JOIN reservation_to_member rm ON rm.reservation_id = r.id
		WHERE rm.member_id = $1
		ORDER BY r.reservation_date DESC, r.reservation_time
	`

	rows, err := s.db.Read().Query(ctx, query, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to list member reservations: %w", err)
	}
	defer rows.Close()

	reservations := make([]*models.Reservation, 0)
	for rows.Next() {
		var r models.Reservation
		var d time.Time
		if err := rows.Scan(&r.ID, &r.CourtNumber, &d, &r.ReservationTime, &r.Duration); err != nil {
			return nil, fmt.Errorf("failed to scan reservation: %w", err)
		}
		r.ReservationDate = d.Format(models.DateLayout)
		r.MemberIDs = []string{memberID}
		reservations = append(reservations, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reservations: %w", err)
	}

	return reservations, nil
}

func (s *ReservationStorage) UpdateReservation(ctx context.Context, r *models.Reservation) (bool, error) {
	date, err := parseDate(r.ReservationDate)
	if err != nil {
		return false, err
	}

	var updated bool
	err = s.db.WithTx(ctx, func(tx pgx.Tx) error {
		if err := lockSlot(ctx, tx, r.CourtNumber, date); err != nil {
			return err
		}
		if err := checkOverlap(ctx, tx, r, date, &r.ID); err != nil {
			return err
		}

		cmdTag, err := tx.Exec(ctx, `
			UPDATE reservation
			SET court_number = $1, reservation_date = $2, reservation_time = $3, duration = $4
			WHERE id = $5
		`, r.CourtNumber, date, r.ReservationTime, r.Duration, r.ID)
		if err != nil {
			return translateError("update reservation", err)
		}

		updated = cmdTag.RowsAffected() == 1
		return nil
	})

	return updated, err
}

func (s *ReservationStorage) DeleteReservation(ctx context.Context, id string) (bool, error) {
	cmdTag, err := s.db.Write().Exec(ctx, `DELETE FROM reservation WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete reservation: %w", err)
	}

	return cmdTag.RowsAffected() == 1, nil
}

func (s *ReservationStorage) AddReservationMember(ctx context.Context, reservationID, memberID string) error {
	_, err := s.db.Write().Exec(ctx,
		`INSERT INTO reservation_to_member (reservation_id, member_id) VALUES ($1, $2)`,
		reservationID, memberID,
	)
	if err != nil {
		return translateError("link reservation member", err)
	}
	return nil
}

func (s *ReservationStorage) RemoveReservationMember(ctx context.Context, reservationID, memberID string) (bool, error) {
	cmdTag, err := s.db.Write().Exec(ctx,
		`DELETE FROM reservation_to_member WHERE reservation_id = $1 AND member_id = $2`,
		reservationID, memberID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to unlink reservation member: %w", err)
	}

	return cmdTag.RowsAffected() == 1, nil
}
