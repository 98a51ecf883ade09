package account

import (
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no account matches the lookup.
var ErrNotFound = errors.New("account not found")

// Account is a user of the system. DocumentoID links patient accounts to
// their clinical record; Matricula links practitioner accounts to their
// professional registration. Either may be empty depending on the role.
type Account struct {
	ID             uuid.UUID
	Username       string
	Email          string
	HashedPassword string
	Role           string
	IsActive       bool
	DocumentoID    *string
	Matricula      *string
}

// ProfessionalRef returns the linked matrícula, or "" when the account has
// no professional registration.
func (a *Account) ProfessionalRef() string {
	if a.Matricula == nil {
		return ""
	}
	return *a.Matricula
}

// PatientRef returns the linked documento_id, or "" when the account is not
// tied to a patient record.
func (a *Account) PatientRef() string {
	if a.DocumentoID == nil {
		return ""
	}
	return *a.DocumentoID
}
