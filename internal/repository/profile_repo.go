package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ossideas/internal/domain"
)

// ProfileRepository define el contrato de persistencia para perfiles.
type ProfileRepository interface {
	GetByID(ctx context.Context, id string) (domain.UserProfile, error)
	Upsert(ctx context.Context, profile domain.UserProfile) error
	UpdateOnboarding(ctx context.Context, id string, data domain.OnboardingData, updatedAt time.Time) error
}

type PgProfileRepository struct {
	pool *pgxpool.Pool
}

func NewPgProfileRepository(pool *pgxpool.Pool) *PgProfileRepository {
	return &PgProfileRepository{pool: pool}
}

func (r *PgProfileRepository) GetByID(ctx context.Context, id string) (domain.UserProfile, error) {
	const query = `
		SELECT id, email, full_name, location, avatar_url, phone_number,
		       usage_purpose, industries, referral_source, created_at, updated_at
		FROM profiles
		WHERE id = $1
	`
	var p domain.UserProfile
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&p.ID,
		&p.Email,
		&p.FullName,
		&p.Location,
		&p.AvatarURL,
		&p.PhoneNumber,
		&p.UsagePurpose,
		&p.Industries,
		&p.ReferralSource,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.UserProfile{}, err
	}
	return p, err
}

// Upsert crea el perfil o refresca los datos del proveedor, preservando los
// campos de onboarding ya capturados.
func (r *PgProfileRepository) Upsert(ctx context.Context, profile domain.UserProfile) error {
	const query = `
		INSERT INTO profiles (id, email, full_name, avatar_url, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			email      = EXCLUDED.email,
			full_name  = COALESCE(profiles.full_name, EXCLUDED.full_name),
			avatar_url = COALESCE(profiles.avatar_url, EXCLUDED.avatar_url),
			updated_at = NOW()
	`
	_, err := r.pool.Exec(ctx, query,
		profile.ID,
		profile.Email,
		profile.FullName,
		profile.AvatarURL,
		profile.CreatedAt,
	)
	return err
}

func (r *PgProfileRepository) UpdateOnboarding(ctx context.Context, id string, data domain.OnboardingData, updatedAt time.Time) error {
	const query = `
		UPDATE profiles
		SET phone_number = $2, location = $3, usage_purpose = $4,
		    industries = $5, referral_source = $6, updated_at = $7
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query,
		id,
		data.PhoneNumber,
		data.Location,
		data.UsagePurpose,
		data.Industries,
		data.ReferralSource,
		updatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
