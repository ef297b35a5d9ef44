package audit

import "time"

// Entry is an immutable, append-only audit log record.
//
// Invariants:
// - Entries are never updated or deleted; retention is unbounded.
// - Listing order is newest-first.
// - Entries record outcomes that happened; a denied action must not
//   produce an entry implying success.

type Entry struct {
	ID string `json:"id"`

	// Category is the business action being recorded. Values are the
	// user-facing labels shown in the audit view.
	Category Category `json:"action"`

	// Detail is a short human-readable description.
	Detail string `json:"detail"`

	// Actor is the acting user or subsystem label (e.g. a guard's name,
	// "Kiosko", "Sistema Público").
	Actor string `json:"actor"`

	CreatedAt time.Time `json:"created_at"`
}

type Category string

const (
	CategoryRequest         Category = "Solicitud"
	CategoryStatusChange    Category = "Cambio de Estado"
	CategoryCheckIn         Category = "Check-in"
	CategoryCheckOut        Category = "Check-out"
	CategoryAssetValidation Category = "Validación Activos"
	CategoryJudicialCheck   Category = "Verificación Judicial"
	CategoryLogin           Category = "Login"
)
