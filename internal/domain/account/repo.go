package account

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	ByUsername(ctx context.Context, username string) (*Account, error)
	ByID(ctx context.Context, id uuid.UUID) (*Account, error)
	Create(ctx context.Context, a *Account) error
}
