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

type ResetTokenStorage struct {
	db *database.DBManager
}

func NewResetTokenStorage(db *database.DBManager) *ResetTokenStorage {
	return &ResetTokenStorage{db: db}
}

func (s *ResetTokenStorage) CreateResetToken(ctx context.Context, memberID string, expiresAt time.Time) (*models.PasswordResetToken, error) {
	token := &models.PasswordResetToken{MemberID: memberID, ExpiresAt: expiresAt}

	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM password_reset_token WHERE member_id = $1`, memberID); err != nil {
			return fmt.Errorf("failed to drop previous tokens: %w", err)
		}

		err := tx.QueryRow(ctx, `
			INSERT INTO password_reset_token (member_id, expires_at)
			VALUES ($1, $2)
			RETURNING token::text
		`, memberID, expiresAt).Scan(&token.Token)
		if err != nil {
			return translateError("create reset token", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return token, nil
}

func (s *ResetTokenStorage) GetResetToken(ctx context.Context, token string) (*models.PasswordResetToken, error) {
	var t models.PasswordResetToken
	err := s.db.Read().QueryRow(ctx,
		`SELECT token::text, member_id, expires_at FROM password_reset_token WHERE token = $1`,
		token,
	).Scan(&t.Token, &t.MemberID, &t.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reset token: %w", err)
	}

	return &t, nil
}

func (s *ResetTokenStorage) ConsumeResetToken(ctx context.Context, token, passwordHash string, now time.Time) (string, error) {
	var memberID string

	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		var expiresAt time.Time
		err := tx.QueryRow(ctx,
			`DELETE FROM password_reset_token WHERE token = $1 RETURNING member_id, expires_at`,
			token,
		).Scan(&memberID, &expiresAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrTokenNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to consume reset token: %w", err)
		}

		if !now.Before(expiresAt) {
			return ErrTokenExpired
		}

		cmdTag, err := tx.Exec(ctx, `UPDATE member SET password = $1 WHERE id = $2`, passwordHash, memberID)
		if err != nil {
			return fmt.Errorf("failed to update password: %w", err)
		}
		if cmdTag.RowsAffected() == 0 {
			return ErrTokenNotFound
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	return memberID, nil
}

func (s *ResetTokenStorage) DeleteExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	cmdTag, err := s.db.Write().Exec(ctx, `DELETE FROM password_reset_token WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired reset tokens: %w", err)
	}

	return cmdTag.RowsAffected(), nil
}
