package accounts

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
)

// ExportCSV writes accounts as CSV with a header row.
func ExportCSV(w io.Writer, accts []Account) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "email", "password", "first_name", "last_name"}); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, a := range accts {
		row := []string{strconv.Itoa(a.ID), a.Email, a.Password, a.FirstName, a.LastName}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportJSON writes accounts as an indented JSON array of credentials.
// Unlike CSV, the JSON form carries email and password only.
func ExportJSON(w io.Writer, accts []Account) error {
	type credential struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	creds := make([]credential, len(accts))
	for i, a := range accts {
		creds[i] = credential{Email: a.Email, Password: a.Password}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(creds)
}
