// Package storage holds the relational schema. Applied on startup and by
// integration test containers; statements are idempotent.
package storage

import (
	"context"
	"database/sql"
	"fmt"
)

const Schema = `
CREATE TABLE IF NOT EXISTS owner_profiles (
	id_no      VARCHAR(50) PRIMARY KEY,
	full_name  TEXT NOT NULL DEFAULT '',
	mobile     TEXT NOT NULL DEFAULT '',
	email      TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS institutions (
	id            UUID PRIMARY KEY,
	name          TEXT NOT NULL,
	code          VARCHAR(64) NOT NULL UNIQUE,
	contact_email TEXT NOT NULL DEFAULT '',
	verified      BOOLEAN NOT NULL DEFAULT FALSE,
	created_at    TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS institution_staff (
	institution_id UUID NOT NULL REFERENCES institutions(id) ON DELETE CASCADE,
	user_id        UUID NOT NULL,
	PRIMARY KEY (institution_id, user_id)
);

CREATE TABLE IF NOT EXISTS certificates (
	id                    UUID PRIMARY KEY,
	institution_id        UUID NOT NULL REFERENCES institutions(id) ON DELETE CASCADE,
	owner_id_no           VARCHAR(50) NOT NULL,
	owner_ref             VARCHAR(50) REFERENCES owner_profiles(id_no) ON DELETE SET NULL,
	owner_name            TEXT NOT NULL DEFAULT '',
	degree_name           TEXT NOT NULL DEFAULT '',
	program               TEXT NOT NULL DEFAULT '',
	conferral_date        TIMESTAMPTZ,
	certificate_reference TEXT NOT NULL DEFAULT '',
	created_at            TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_certificates_owner_id_no ON certificates (owner_id_no);

CREATE TABLE IF NOT EXISTS businesses (
	id                  UUID PRIMARY KEY,
	name                TEXT NOT NULL,
	registration_number VARCHAR(64) NOT NULL UNIQUE,
	contact_email       TEXT NOT NULL DEFAULT '',
	address             TEXT NOT NULL DEFAULT '',
	registered_by       UUID NOT NULL,
	verified            BOOLEAN NOT NULL DEFAULT FALSE,
	verified_by         UUID,
	verified_at         TIMESTAMPTZ,
	created_at          TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS business_staff (
	business_id UUID NOT NULL REFERENCES businesses(id) ON DELETE CASCADE,
	user_id     UUID NOT NULL,
	PRIMARY KEY (business_id, user_id)
);

CREATE TABLE IF NOT EXISTS verification_requests (
	id             UUID PRIMARY KEY,
	hr_user        UUID,
	business_id    UUID REFERENCES businesses(id) ON DELETE SET NULL,
	id_no          VARCHAR(50) NOT NULL,
	otp            VARCHAR(10) NOT NULL,
	otp_expires_at TIMESTAMPTZ NOT NULL,
	status         VARCHAR(20) NOT NULL DEFAULT 'pending',
	confirmed_at   TIMESTAMPTZ,
	viewed_at      TIMESTAMPTZ,
	note           TEXT NOT NULL DEFAULT '',
	created_at     TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_verification_requests_id_no ON verification_requests (id_no);
CREATE INDEX IF NOT EXISTS idx_verification_requests_hr_user ON verification_requests (hr_user);

CREATE TABLE IF NOT EXISTS audit_log (
	id         UUID PRIMARY KEY,
	actor      UUID,
	action     TEXT NOT NULL,
	details    TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_log_created_at ON audit_log (created_at DESC);
`

// Apply runs the schema against the database.
func Apply(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
