package identity

import (
	"context"
	"database/sql"
	"errors"
)

var ErrUnknownToken = errors.New("unknown token")

// Identity is the (userId, displayName) pair behind an api token. The hub
// and the HTTP layer trust it as-is; no signature validation happens here.
type Identity struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
}

type IIdentityService interface {
	Resolve(ctx context.Context, token string) (Identity, error)
}

type identityService struct {
	db *sql.DB
}

func NewIdentityService(db *sql.DB) IIdentityService {
	return &identityService{db: db}
}

func (svc *identityService) Resolve(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrUnknownToken
	}

	const q = `SELECT id, display_name FROM users WHERE api_token = $1`
	var ident Identity
	err := svc.db.QueryRowContext(ctx, q, token).Scan(&ident.UserID, &ident.DisplayName)
	if errors.Is(err, sql.ErrNoRows) {
		return Identity{}, ErrUnknownToken
	}
	if err != nil {
		return Identity{}, err
	}
	return ident, nil
}
