package otp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// DropFileFetcher reads codes from a JSON file mapping account email
// to code, e.g. {"a@example.com": "123456"}. An external mailbox
// watcher writes the file; the engine polls it. Missing file or
// missing entry mean the code has not arrived yet.
type DropFileFetcher struct {
	Path string
}

// FetchCode looks up the account's code in the drop file.
func (d *DropFileFetcher) FetchCode(ctx context.Context, accountEmail string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := os.ReadFile(d.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNoCode
		}
		return "", fmt.Errorf("failed to read code drop file: %w", err)
	}

	codes := make(map[string]string)
	if err := json.Unmarshal(data, &codes); err != nil {
		return "", fmt.Errorf("invalid code drop file %s: %w", d.Path, err)
	}
	code, ok := codes[accountEmail]
	if !ok || code == "" {
		return "", ErrNoCode
	}
	return ExtractCode(code), nil
}
