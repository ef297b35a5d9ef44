package accounts

import "crypto/subtle"

// Account is a demo login mapped to a role. This is a demonstration
// credential table, not an authentication system: passwords are static
// and compared in constant time only out of habit.
type Account struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	Label string `json:"label"`

	password string
}

// Table resolves demo credentials to roles.
type Table struct {
	byEmail map[string]Account
}

// DemoTable returns the built-in demo accounts.
func DemoTable() *Table {
	return NewTable([]Account{
		{Email: "kiosk@demo.com", password: "kiosk123", Role: "kiosk", Label: "Modo Kiosko"},
		{Email: "guardia@demo.com", password: "guardia123", Role: "gatehouse", Label: "Portería"},
		{Email: "admin@demo.com", password: "admin123", Role: "admin", Label: "Administrador"},
		{Email: "recepcion@demo.com", password: "recepcion123", Role: "reception", Label: "Recepción"},
		{Email: "sos@demo.com", password: "sos123", Role: "sos", Label: "Evacuación"},
	})
}

func NewTable(accounts []Account) *Table {
	t := &Table{byEmail: make(map[string]Account, len(accounts))}
	for _, a := range accounts {
		t.byEmail[a.Email] = a
	}
	return t
}

// Resolve matches a credential pair; ok is false on any mismatch.
func (t *Table) Resolve(email, password string) (Account, bool) {
	a, ok := t.byEmail[email]
	if !ok {
		return Account{}, false
	}
	if subtle.ConstantTimeCompare([]byte(a.password), []byte(password)) != 1 {
		return Account{}, false
	}
	return a, true
}

// List returns the demo accounts without passwords (login screen hints).
func (t *Table) List() []Account {
	out := make([]Account, 0, len(t.byEmail))
	for _, a := range t.byEmail {
		a.password = ""
		out = append(out, a)
	}
	return out
}
