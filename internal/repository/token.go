package repository

import (
	"context"
	"errors"
	"time"

	"github.com/forgo/staffhub/internal/database"
	"github.com/forgo/staffhub/internal/service"
)

// TokenRepository handles refresh token data access
type TokenRepository struct {
	db database.Database
}

// NewTokenRepository creates a new token repository
func NewTokenRepository(db database.Database) *TokenRepository {
	return &TokenRepository{db: db}
}

// CreateRefreshToken stores a new refresh token
func (r *TokenRepository) CreateRefreshToken(ctx context.Context, token *service.RefreshToken) error {
	query := `
		CREATE refresh_token CONTENT {
			user_id: $user_id,
			token_hash: $token_hash,
			expires_at: <datetime>$expires_at,
			created_at: time::now(),
			revoked: false
		}
	`

	vars := map[string]interface{}{
		"user_id":    token.UserID,
		"token_hash": token.TokenHash,
		"expires_at": timeVar(token.ExpiresAt),
	}

	result, err := r.db.Query(ctx, query, vars)
	if err != nil {
		return err
	}

	created, err := extractCreatedRecord(result)
	if err != nil {
		return err
	}

	token.ID = created.ID
	token.CreatedAt = time.Now()
	return nil
}

// GetRefreshTokenByHash retrieves a refresh token by its hash
func (r *TokenRepository) GetRefreshTokenByHash(ctx context.Context, hash string) (*service.RefreshToken, error) {
	query := `SELECT * FROM refresh_token WHERE token_hash = $hash LIMIT 1`

	result, err := r.db.QueryOne(ctx, query, map[string]interface{}{"hash": hash})
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	token, err := decodeRecord[service.RefreshToken](result)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return token, nil
}

// RevokeRefreshToken marks a live refresh token as revoked. It reports false
// when the token was already revoked, including by a concurrent call.
func (r *TokenRepository) RevokeRefreshToken(ctx context.Context, hash string) (bool, error) {
	query := `UPDATE refresh_token SET revoked = true WHERE token_hash = $hash AND revoked = false RETURN id`
	result, err := r.db.Query(ctx, query, map[string]interface{}{"hash": hash})
	if err != nil {
		return false, err
	}
	return len(statementRows(result, 0)) > 0, nil
}

// RevokeAllUserTokens revokes all refresh tokens for a user
func (r *TokenRepository) RevokeAllUserTokens(ctx context.Context, userID string) error {
	query := `UPDATE refresh_token SET revoked = true WHERE user_id = $user_id`
	return r.db.Execute(ctx, query, map[string]interface{}{"user_id": userID})
}

// DeleteExpiredTokens removes expired tokens and tokens revoked more than a week ago
func (r *TokenRepository) DeleteExpiredTokens(ctx context.Context) error {
	query := `
		DELETE refresh_token WHERE expires_at < time::now();
		DELETE refresh_token WHERE revoked = true AND created_at < <datetime>$cutoff;
	`
	cutoff := timeVar(time.Now().Add(-7 * 24 * time.Hour))
	return r.db.Execute(ctx, query, map[string]interface{}{"cutoff": cutoff})
}
