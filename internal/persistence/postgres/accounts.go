package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"example.com/bjjpoints/internal/domain"
	"example.com/bjjpoints/internal/ledger"
)

// CreateAccount inserts credentials and profile in one transaction.
func (r *Repository) CreateAccount(ctx context.Context, creds domain.Credentials, profile domain.Profile) error {
	err := r.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO credentials (user_id, email, password_hash, created_at) VALUES ($1,$2,$3,$4)`,
			creds.UserID, strings.ToLower(creds.Email), creds.PasswordHash, creds.CreatedAt,
		); err != nil {
			return err
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO profiles (id, full_name, email, belt, is_trainer, created_at) VALUES ($1,$2,$3,$4,$5,$6)`,
			profile.ID, profile.FullName, profile.Email, profile.Belt.String(), profile.IsTrainer, profile.CreatedAt,
		)
		return err
	})
	if isUniqueViolation(err) {
		return domain.ErrEmailTaken
	}
	return err
}

// CredentialsByEmail looks up credentials case-insensitively.
func (r *Repository) CredentialsByEmail(ctx context.Context, email string) (*domain.Credentials, error) {
	return r.credentials(ctx, `SELECT user_id, email, password_hash, created_at FROM credentials WHERE lower(email) = lower($1)`, email)
}

// CredentialsByUser looks up credentials by user ID.
func (r *Repository) CredentialsByUser(ctx context.Context, userID string) (*domain.Credentials, error) {
	return r.credentials(ctx, `SELECT user_id, email, password_hash, created_at FROM credentials WHERE user_id = $1`, userID)
}

func (r *Repository) credentials(ctx context.Context, query string, arg string) (*domain.Credentials, error) {
	var creds domain.Credentials
	err := r.pool.QueryRow(ctx, query, arg).Scan(&creds.UserID, &creds.Email, &creds.PasswordHash, &creds.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &creds, nil
}

const profileColumns = `id, full_name, email, belt, is_trainer, created_at`

func scanProfile(row pgx.Row) (domain.Profile, error) {
	var (
		p    domain.Profile
		belt string
	)
	if err := row.Scan(&p.ID, &p.FullName, &p.Email, &belt, &p.IsTrainer, &p.CreatedAt); err != nil {
		return domain.Profile{}, err
	}
	p.Belt = ledger.BeltOrWhite(belt)
	return p, nil
}

// GetProfile returns nil when no profile row exists.
func (r *Repository) GetProfile(ctx context.Context, id string) (*domain.Profile, error) {
	p, err := scanProfile(r.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// UpsertProfile inserts or replaces a profile row.
func (r *Repository) UpsertProfile(ctx context.Context, profile domain.Profile) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO profiles (id, full_name, email, belt, is_trainer, created_at) VALUES ($1,$2,$3,$4,$5,$6)
         ON CONFLICT (id) DO UPDATE SET full_name = EXCLUDED.full_name, email = EXCLUDED.email, belt = EXCLUDED.belt, is_trainer = EXCLUDED.is_trainer`,
		profile.ID, profile.FullName, profile.Email, profile.Belt.String(), profile.IsTrainer, profile.CreatedAt,
	)
	return err
}

// ListProfiles returns every profile ordered by name.
func (r *Repository) ListProfiles(ctx context.Context) ([]domain.Profile, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+profileColumns+` FROM profiles ORDER BY full_name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]domain.Profile, 0)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, p)
	}
	return results, rows.Err()
}
