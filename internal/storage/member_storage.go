package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Varun5711/clubhouse/internal/database"
	"github.com/Varun5711/clubhouse/internal/models"
	"github.com/jackc/pgx/v5"
)

const memberColumns = `id, phone, password, email, first_name, last_name, is_admin, created_at`

type MemberStorage struct {
	db *database.DBManager
}

func NewMemberStorage(db *database.DBManager) *MemberStorage {
	return &MemberStorage{db: db}
}

func scanMember(row pgx.Row) (*models.Member, error) {
	var member models.Member
	err := row.Scan(
		&member.ID,
		&member.Phone,
		&member.PasswordHash,
		&member.Email,
		&member.FirstName,
		&member.LastName,
		&member.IsAdmin,
		&member.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (s *MemberStorage) CreateMember(ctx context.Context, member *models.Member) error {
	query := `
		INSERT INTO member (id, phone, password, email, first_name, last_name, is_admin)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`

	err := s.db.Write().QueryRow(ctx, query,
		member.ID,
		member.Phone,
		member.PasswordHash,
		member.Email,
		member.FirstName,
		member.LastName,
		member.IsAdmin,
	).Scan(&member.CreatedAt)
	if err != nil {
		return translateError("create member", err)
	}

	return nil
}

func (s *MemberStorage) getMemberBy(ctx context.Context, column, value string) (*models.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM member WHERE ` + column + ` = $1`

	member, err := scanMember(s.db.Read().QueryRow(ctx, query, value))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}

	return member, nil
}

func (s *MemberStorage) GetMemberByID(ctx context.Context, id string) (*models.Member, error) {
	return s.getMemberBy(ctx, "id", id)
}

func (s *MemberStorage) GetMemberByPhone(ctx context.Context, phone string) (*models.Member, error) {
	return s.getMemberBy(ctx, "phone", phone)
}

func (s *MemberStorage) GetMemberByEmail(ctx context.Context, email string) (*models.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM member WHERE lower(email) = lower($1)`

	member, err := scanMember(s.db.Read().QueryRow(ctx, query, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}

	return member, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern matches search literally anywhere in a column.
func containsPattern(search string) string {
	return "%" + likeEscaper.Replace(search) + "%"
}

func (s *MemberStorage) ListMembers(ctx context.Context, params ListMembersParams) ([]*models.Member, int, error) {
	search := strings.TrimSpace(params.Search)
	pattern := containsPattern(search)

	filter := `
		WHERE $1 = ''
		   OR id ILIKE $2 ESCAPE '\'
		   OR phone ILIKE $2 ESCAPE '\'
		   OR email ILIKE $2 ESCAPE '\'
		   OR first_name ILIKE $2 ESCAPE '\'
		   OR last_name ILIKE $2 ESCAPE '\'
	`

	var total int
	if err := s.db.Read().QueryRow(ctx, `SELECT COUNT(*) FROM member `+filter, search, pattern).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count members: %w", err)
	}

	query := `SELECT ` + memberColumns + ` FROM member ` + filter + `
		ORDER BY last_name NULLS LAST, first_name NULLS LAST, id
		LIMIT $3 OFFSET $4
	`

	rows, err := s.db.Read().Query(ctx, query, search, pattern, params.Limit, params.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	members := make([]*models.Member, 0, params.Limit)
	for rows.Next() {
		member, err := scanMember(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, member)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating members: %w", err)
	}

	return members, total, nil
}

func (s *MemberStorage) UpdateMember(ctx context.Context, member *models.Member) (bool, error) {
	query := `
		UPDATE member
		SET phone = $1, email = $2, first_name = $3, last_name = $4, is_admin = $5
		WHERE id = $6
	`

	cmdTag, err := s.db.Write().Exec(ctx, query,
		member.Phone,
		member.Email,
		member.FirstName,
		member.LastName,
		member.IsAdmin,
		member.ID,
	)
	if err != nil {
		return false, translateError("update member", err)
	}

	return cmdTag.RowsAffected() == 1, nil
}

func (s *MemberStorage) UpdateMemberWithPassword(ctx context.Context, member *models.Member) (bool, error) {
	query := `
		UPDATE member
		SET phone = $1, password = $2, email = $3, first_name = $4, last_name = $5, is_admin = $6
		WHERE id = $7
	`

	cmdTag, err := s.db.Write().Exec(ctx, query,
		member.Phone,
		member.PasswordHash,
		member.Email,
		member.FirstName,
		member.LastName,
		member.IsAdmin,
		member.ID,
	)
	if err != nil {
		return false, translateError("update member", err)
	}

	return cmdTag.RowsAffected() == 1, nil
}

func (s *MemberStorage) UpdatePassword(ctx context.Context, id, passwordHash string) (bool, error) {
	cmdTag, err := s.db.Write().Exec(ctx, `UPDATE member SET password = $1 WHERE id = $2`, passwordHash, id)
	if err != nil {
		return false, fmt.Errorf("failed to update password: %w", err)
	}

	return cmdTag.RowsAffected() == 1, nil
}

func (s *MemberStorage) DeleteMember(ctx context.Context, id string) (bool, error) {
	cmdTag, err := s.db.Write().Exec(ctx, `DELETE FROM member WHERE id = $1`, id)
	if err != nil {
		return false, translateError("delete member", err)
	}

	return cmdTag.RowsAffected() == 1, nil
}
