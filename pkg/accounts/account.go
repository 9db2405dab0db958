// Package accounts holds the account model, the random account
// generator and credential export.
package accounts

// Account is one set of registration credentials.
type Account struct {
	ID        int    `json:"id"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Scope returns the account's fields as a placeholder scope.
func (a Account) Scope() map[string]string {
	return map[string]string{
		"email":      a.Email,
		"password":   a.Password,
		"first_name": a.FirstName,
		"last_name":  a.LastName,
	}
}
