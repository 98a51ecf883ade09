// Package assignment answers the one question the ownership policy asks:
// has this professional ever been associated with this patient, through an
// appointment or an encounter.
package assignment

import "context"

type Repository interface {
	// Exists reports whether any appointment or encounter row links the
	// patient (by documento_id) to the professional (by matrícula).
	Exists(ctx context.Context, documentoID, matricula string) (bool, error)
}
