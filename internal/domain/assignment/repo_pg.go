package assignment

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

// Exists checks turnos (appointments) and atenciones (encounters) in one
// round trip. Both tables are sharded by documento_id, so each branch of the
// union is a single-shard lookup.
func (r *repoPG) Exists(ctx context.Context, documentoID, matricula string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM turnos
			WHERE documento_id = $1 AND matricula_profesional = $2
			UNION ALL
			SELECT 1 FROM atenciones
			WHERE documento_id = $1 AND matricula_profesional = $2
		)`, documentoID, matricula).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("assignment lookup: %w", err)
	}
	return exists, nil
}
