package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/Varun5711/clubhouse/internal/database"
	"github.com/Varun5711/clubhouse/internal/models"
	"github.com/jackc/pgx/v5"
)

type AddressStorage struct {
	db *database.DBManager
}

func NewAddressStorage(db *database.DBManager) *AddressStorage {
	return &AddressStorage{db: db}
}

func (s *AddressStorage) CreateAddress(ctx context.Context, address *models.Address) error {
	query := `
		INSERT INTO address (member_id, line_1, line_2, postal_code, city, country)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id::text
	`

	err := s.db.Write().QueryRow(ctx, query,
		address.MemberID,
		address.Line1,
		address.Line2,
		address.PostalCode,
		address.City,
		address.Country,
	).Scan(&address.ID)
	if err != nil {
		return translateError("create address", err)
	}

	return nil
}

func (s *AddressStorage) GetAddressByMember(ctx context.Context, memberID string) (*models.Address, error) {
	query := `
		SELECT id::text, member_id, line_1, line_2, postal_code, city, country
		FROM address
		WHERE member_id = $1
	`

	var a models.Address
	err := s.db.Read().QueryRow(ctx, query, memberID).Scan(
		&a.ID,
		&a.MemberID,
		&a.Line1,
		&a.Line2,
		&a.PostalCode,
		&a.City,
		&a.Country,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get address: %w", err)
	}

	return &a, nil
}

func (s *AddressStorage) UpdateAddressByMember(ctx context.Context, address *models.Address) (bool, error) {
	query := `
		UPDATE address
		SET line_1 = $1, line_2 = $2, postal_code = $3, city = $4, country = $5
		WHERE member_id = $6
		RETURNING id::text
	`

	err := s.db.Write().QueryRow(ctx, query,
		address.Line1,
		address.Line2,
		address.PostalCode,
		address.City,
		address.Country,
		address.MemberID,
	).Scan(&address.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to update address: %w", err)
	}

	return true, nil
}

func (s *AddressStorage) DeleteAddressByMember(ctx context.Context, memberID string) (bool, error) {
	cmdTag, err := s.db.Write().Exec(ctx, `DELETE FROM address WHERE member_id = $1`, memberID)
	if err != nil {
		return false, fmt.Errorf("failed to delete address: %w", err)
	}

	return cmdTag.RowsAffected() > 0, nil
}
