package accounts

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

// Generation bounds.
const (
	MinCount = 1
	MaxCount = 1000
)

const (
	localPartLength  = 15
	localPartLetters = "abcdefghijklmnopqrstuvwxyz0123456789"
	nameLetters      = "abcdefghijklmnopqrstuvwxyz"
	nameLength       = 3
)

// Generate creates count accounts with random addresses at domain. All
// accounts share the given password.
func Generate(count int, domain, password string) ([]Account, error) {
	if count < MinCount || count > MaxCount {
		return nil, fmt.Errorf("account count %d out of range [%d, %d]", count, MinCount, MaxCount)
	}
	if domain == "" {
		return nil, fmt.Errorf("email domain is required")
	}
	if password == "" {
		return nil, fmt.Errorf("password is required")
	}

	accts := make([]Account, count)
	for i := range accts {
		local, err := randomString(localPartLetters, localPartLength)
		if err != nil {
			return nil, err
		}
		first, err := randomName()
		if err != nil {
			return nil, err
		}
		last, err := randomName()
		if err != nil {
			return nil, err
		}
		accts[i] = Account{
			ID:        i + 1,
			Email:     local + "@" + domain,
			Password:  password,
			FirstName: first,
			LastName:  last,
		}
	}
	return accts, nil
}

func randomName() (string, error) {
	s, err := randomString(nameLetters, nameLength)
	if err != nil {
		return "", err
	}
	return strings.ToUpper(s[:1]) + s[1:], nil
}

func randomString(alphabet string, n int) (string, error) {
	var b strings.Builder
	max := big.NewInt(int64(len(alphabet)))
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to draw random letter: %w", err)
		}
		b.WriteByte(alphabet[idx.Int64()])
	}
	return b.String(), nil
}
