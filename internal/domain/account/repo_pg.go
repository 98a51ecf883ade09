package account

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const accountCols = `id, username, email, hashed_password, role, is_active, documento_id, matricula`

func (r *repoPG) scan(row pgx.Row) (*Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.Username, &a.Email, &a.HashedPassword, &a.Role,
		&a.IsActive, &a.DocumentoID, &a.Matricula)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}
	return &a, nil
}

func (r *repoPG) ByUsername(ctx context.Context, username string) (*Account, error) {
	return r.scan(r.pool.QueryRow(ctx,
		`SELECT `+accountCols+` FROM users WHERE username = $1`, username))
}

func (r *repoPG) ByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	return r.scan(r.pool.QueryRow(ctx,
		`SELECT `+accountCols+` FROM users WHERE id = $1`, id))
}

func (r *repoPG) Create(ctx context.Context, a *Account) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (id, username, email, hashed_password, role, is_active, documento_id, matricula)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		a.ID, a.Username, a.Email, a.HashedPassword, a.Role, a.IsActive, a.DocumentoID, a.Matricula)
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// Directory adapts the repository to the policy layer's AccountDirectory:
// userID is the token subject (the account UUID in string form).
type Directory struct{ repo Repository }

func NewDirectory(repo Repository) *Directory { return &Directory{repo: repo} }

func (d *Directory) ProfessionalRef(ctx context.Context, userID string) (string, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		// A subject that is not an account ID cannot have a matrícula.
		return "", nil
	}
	a, err := d.repo.ByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	return a.ProfessionalRef(), nil
}
