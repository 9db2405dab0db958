package engine

import (
	"errors"
	"strings"
	"testing"
)

func testScopes() *Scopes {
	return &Scopes{
		Flow:    map[string]string{"start_url": "https://example.com", "greeting": "hello"},
		Account: map[string]string{"email": "abc@example.com", "password": "s3cret"},
		Config: map[string]any{
			"registration": map[string]any{"domain": "example.com", "count": 3},
			"headless":     true,
		},
		Env: map[string]string{"MAIL_USER": "inbox@example.com"},
	}
}

func TestResolve(t *testing.T) {
	s := testScopes()

	tests := []struct {
		in   string
		want string
	}{
		{"{account.email}", "abc@example.com"},
		{"Hi {flow.greeting}, use {account.password}", "Hi hello, use s3cret"},
		{"{config.registration.domain}", "example.com"},
		{"{config.registration.count}", "3"},
		{"{config.headless}", "true"},
		{"{env.MAIL_USER}", "inbox@example.com"},
		{"no placeholders here", "no placeholders here"},
		{"", ""},
	}

	for _, tt := range tests {
		got, err := s.Resolve(tt.in)
		if err != nil {
			t.Errorf("Resolve(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Resolve(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestResolveIsIdempotent(t *testing.T) {
	s := testScopes()

	once, err := s.Resolve("login as {account.email} at {flow.start_url}")
	if err != nil {
		t.Fatalf("first Resolve() error: %v", err)
	}
	twice, err := s.Resolve(once)
	if err != nil {
		t.Fatalf("second Resolve() error: %v", err)
	}
	if twice != once {
		t.Errorf("second resolution changed the string: %q -> %q", once, twice)
	}
}

func TestResolveMissingKey(t *testing.T) {
	s := testScopes()

	_, err := s.Resolve("code for {env.MISSING_VAR}")
	if err == nil {
		t.Fatal("Resolve() succeeded, want error")
	}
	if !errors.Is(err, ErrUnresolvedVariable) {
		t.Errorf("error = %v, want ErrUnresolvedVariable", err)
	}
	if !strings.Contains(err.Error(), "{env.MISSING_VAR}") {
		t.Errorf("error %q does not name the placeholder", err)
	}
	if !strings.Contains(err.Error(), `"env"`) {
		t.Errorf("error %q does not name the scope", err)
	}
}

func TestResolveNeverSubstitutesEmpty(t *testing.T) {
	s := testScopes()
	s.Account["empty"] = ""

	// An empty stored value is a real value and substitutes fine.
	got, err := s.Resolve("[{account.empty}]")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if got != "[]" {
		t.Errorf("Resolve() = %q, want []", got)
	}

	// A missing key is an error, not an empty substitution.
	if _, err := s.Resolve("{account.nope}"); err == nil {
		t.Fatal("Resolve() succeeded for missing key, want error")
	}
}

func TestResolveUnknownScope(t *testing.T) {
	s := testScopes()
	_, err := s.Resolve("{secrets.token}")
	if err == nil {
		t.Fatal("Resolve() succeeded, want error")
	}
	if !errors.Is(err, ErrInvalidFlow) {
		t.Errorf("error = %v, want ErrInvalidFlow", err)
	}
}

func TestResolveWhitespaceSignificant(t *testing.T) {
	s := testScopes()
	got, err := s.Resolve("{ account.email}")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if got != "{ account.email}" {
		t.Errorf("Resolve() = %q, want the literal text back", got)
	}
}
