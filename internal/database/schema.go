package database

import (
	"context"
	"fmt"
)

// CreateSchema creates the club tables. Safe to call on every start.
func (m *DBManager) CreateSchema(ctx context.Context) error {
	if _, err := m.Write().Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

const Schema = `
CREATE EXTENSION IF NOT EXISTS pgcrypto;

CREATE TABLE IF NOT EXISTS member (
    id VARCHAR(6) PRIMARY KEY,
    phone TEXT NOT NULL UNIQUE,
    password TEXT NOT NULL,
    email TEXT UNIQUE,
    first_name TEXT,
    last_name TEXT,
    is_admin BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_member_last_name ON member(last_name);

CREATE TABLE IF NOT EXISTS reservation (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    court_number SMALLINT NOT NULL CHECK (court_number > 0),
    reservation_date DATE NOT NULL,
    reservation_time SMALLINT NOT NULL CHECK (reservation_time BETWEEN 0 AND 23),
    duration SMALLINT NOT NULL DEFAULT 1 CHECK (duration > 0),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_reservation_date_court ON reservation(reservation_date, court_number);

CREATE TABLE IF NOT EXISTS reservation_to_member (
    reservation_id UUID NOT NULL REFERENCES reservation(id) ON DELETE CASCADE,
    member_id VARCHAR(6) NOT NULL REFERENCES member(id) ON DELETE CASCADE,
    PRIMARY KEY (reservation_id, member_id)
);

CREATE INDEX IF NOT EXISTS idx_reservation_to_member_member ON reservation_to_member(member_id);

CREATE TABLE IF NOT EXISTS address (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    member_id VARCHAR(6) NOT NULL UNIQUE REFERENCES member(id) ON DELETE CASCADE,
    line_1 TEXT NOT NULL,
    line_2 TEXT,
    postal_code TEXT NOT NULL,
    city TEXT NOT NULL,
    country TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS password_reset_token (
    token UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    member_id VARCHAR(6) NOT NULL REFERENCES member(id) ON DELETE CASCADE,
    expires_at TIMESTAMPTZ NOT NULL DEFAULT NOW() + INTERVAL '1 hour'
);

CREATE INDEX IF NOT EXISTS idx_password_reset_token_expires ON password_reset_token(expires_at);
`
