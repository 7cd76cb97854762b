package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ossideas/internal/domain"
)

// IdentityRepository define el contrato de persistencia para identidades.
type IdentityRepository interface {
	Create(ctx context.Context, identity domain.Identity) error
	GetByID(ctx context.Context, id string) (domain.Identity, error)
	GetByEmail(ctx context.Context, email string) (domain.Identity, error)
	GetByAuth(ctx context.Context, provider, subject string) (domain.Identity, error)
	UpdateOTP(ctx context.Context, id, otpHash string, otpExpiresAt time.Time) error
	ConfirmEmail(ctx context.Context, id string, confirmedAt time.Time) error
	LinkOAuth(ctx context.Context, id, provider, subject string) error
}

// PgIdentityRepository implementa IdentityRepository usando pgxpool.
type PgIdentityRepository struct {
	pool *pgxpool.Pool
}

func NewPgIdentityRepository(pool *pgxpool.Pool) *PgIdentityRepository {
	return &PgIdentityRepository{pool: pool}
}

const identityColumns = `
	id, email, full_name, avatar_url, locale, auth_provider, auth_subject,
	password_hash, email_confirmed_at, otp_code_hash, otp_expires_at, created_at
`

func (r *PgIdentityRepository) Create(ctx context.Context, identity domain.Identity) error {
	const query = `
		INSERT INTO identities (
			id, email, full_name, avatar_url, locale, auth_provider, auth_subject,
			password_hash, email_confirmed_at, otp_code_hash, otp_expires_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.pool.Exec(ctx, query,
		identity.ID,
		identity.Email,
		identity.FullName,
		identity.AvatarURL,
		identity.Locale,
		identity.AuthProvider,
		identity.AuthSubject,
		identity.PasswordHash,
		identity.EmailConfirmedAt,
		identity.OtpCodeHash,
		identity.OtpExpiresAt,
		identity.CreatedAt,
	)
	return err
}

func (r *PgIdentityRepository) GetByID(ctx context.Context, id string) (domain.Identity, error) {
	const query = `SELECT ` + identityColumns + ` FROM identities WHERE id = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

func (r *PgIdentityRepository) GetByEmail(ctx context.Context, email string) (domain.Identity, error) {
	const query = `SELECT ` + identityColumns + ` FROM identities WHERE email = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, email))
}

func (r *PgIdentityRepository) GetByAuth(ctx context.Context, provider, subject string) (domain.Identity, error) {
	const query = `SELECT ` + identityColumns + ` FROM identities WHERE auth_provider = $1 AND auth_subject = $2`
	return r.scanOne(r.pool.QueryRow(ctx, query, provider, subject))
}

func (r *PgIdentityRepository) UpdateOTP(ctx context.Context, id, otpHash string, otpExpiresAt time.Time) error {
	const query = `UPDATE identities SET otp_code_hash = $2, otp_expires_at = $3 WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id, otpHash, otpExpiresAt)
	return err
}

func (r *PgIdentityRepository) ConfirmEmail(ctx context.Context, id string, confirmedAt time.Time) error {
	const query = `
		UPDATE identities
		SET email_confirmed_at = $2, otp_code_hash = '', otp_expires_at = NULL
		WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query, id, confirmedAt)
	return err
}

func (r *PgIdentityRepository) LinkOAuth(ctx context.Context, id, provider, subject string) error {
	const query = `UPDATE identities SET auth_provider = $2, auth_subject = $3 WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id, provider, subject)
	return err
}

func (r *PgIdentityRepository) scanOne(row pgx.Row) (domain.Identity, error) {
	var identity domain.Identity
	err := row.Scan(
		&identity.ID,
		&identity.Email,
		&identity.FullName,
		&identity.AvatarURL,
		&identity.Locale,
		&identity.AuthProvider,
		&identity.AuthSubject,
		&identity.PasswordHash,
		&identity.EmailConfirmedAt,
		&identity.OtpCodeHash,
		&identity.OtpExpiresAt,
		&identity.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Identity{}, err
	}
	return identity, err
}
