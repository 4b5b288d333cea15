package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/ServiceDeskGo/internal/domain"
	apperrors "github.com/utafrali/ServiceDeskGo/pkg/errors"
)

// AccountRepository implements repository.AccountRepository using PostgreSQL.
type AccountRepository struct {
	db DBTX
}

// NewAccountRepository creates a new PostgreSQL-backed OAuth account repository.
func NewAccountRepository(db DBTX) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create inserts a new provider account link.
func (r *AccountRepository) Create(ctx context.Context, a *domain.Account) error {
	query := `
		INSERT INTO oauth_accounts (id, user_id, provider, provider_account_id, access_token, refresh_token, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.Exec(ctx, query,
		a.ID,
		a.UserID,
		a.Provider,
		a.ProviderAccountID,
		a.AccessToken,
		a.RefreshToken,
		a.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("oauth account", "provider", a.Provider)
		}
		return fmt.Errorf("insert oauth account: %w", err)
	}

	return nil
}

// GetByProviderAccountID retrieves a link by the provider's account identity.
func (r *AccountRepository) GetByProviderAccountID(ctx context.Context, provider, providerAccountID string) (*domain.Account, error) {
	query := `
		SELECT id, user_id, provider, provider_account_id, access_token, refresh_token, created_at
		FROM oauth_accounts
		WHERE provider = $1 AND provider_account_id = $2`

	return r.scanAccount(ctx, query, provider, providerAccountID)
}

// GetByUserAndProvider retrieves the user's link for a provider, if any.
func (r *AccountRepository) GetByUserAndProvider(ctx context.Context, userID, provider string) (*domain.Account, error) {
	query := `
		SELECT id, user_id, provider, provider_account_id, access_token, refresh_token, created_at
		FROM oauth_accounts
		WHERE user_id = $1 AND provider = $2`

	return r.scanAccount(ctx, query, userID, provider)
}

// ListByUser returns all provider links for the given user.
func (r *AccountRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Account, error) {
	query := `
		SELECT id, user_id, provider, provider_account_id, access_token, refresh_token, created_at
		FROM oauth_accounts
		WHERE user_id = $1
		ORDER BY created_at ASC`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list oauth accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*domain.Account
	for rows.Next() {
		var a domain.Account
		if err := rows.Scan(
			&a.ID,
			&a.UserID,
			&a.Provider,
			&a.ProviderAccountID,
			&a.AccessToken,
			&a.RefreshToken,
			&a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan oauth account row: %w", err)
		}
		accounts = append(accounts, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate oauth account rows: %w", err)
	}

	if accounts == nil {
		accounts = []*domain.Account{}
	}

	return accounts, nil
}

func (r *AccountRepository) scanAccount(ctx context.Context, query string, args ...any) (*domain.Account, error) {
	var a domain.Account

	err := r.db.QueryRow(ctx, query, args...).Scan(
		&a.ID,
		&a.UserID,
		&a.Provider,
		&a.ProviderAccountID,
		&a.AccessToken,
		&a.RefreshToken,
		&a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan oauth account: %w", err)
	}

	return &a, nil
}
