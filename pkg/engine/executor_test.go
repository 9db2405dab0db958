package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/accountforge/regrunner/pkg/accounts"
	"github.com/accountforge/regrunner/pkg/browser/mock"
	"github.com/accountforge/regrunner/pkg/flow"
)

func testFlow(t *testing.T, content string) *flow.Flow {
	t.Helper()
	f, err := flow.Parse([]byte(content), "test.yaml")
	if err != nil {
		t.Fatalf("flow.Parse() error: %v", err)
	}
	return f
}

func testContext(f *flow.Flow, mode Mode) *ExecutionContext {
	acct := accounts.Account{
		ID:        1,
		Email:     "abc@example.com",
		Password:  "s3cret",
		FirstName: "Abc",
		LastName:  "Def",
	}
	return NewExecutionContext(f, acct, map[string]any{"domain": "example.com"}, mode)
}

func TestExecuteNavigateFallsBackToStartURL(t *testing.T) {
	f := testFlow(t, "name: t\nstart_url: \"https://example.com/{account.email}\"\nsteps:\n  - navigate\n")
	b := mock.New(mock.Config{})
	exec := NewExecutor(b, f, ProbeConfig{})

	err := exec.Execute(context.Background(), testContext(f, ModeManual), f.Steps[0])
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}

	navs := b.CallsTo("navigate")
	if len(navs) != 1 {
		t.Fatalf("navigate calls = %d, want 1", len(navs))
	}
	if navs[0].Text != "https://example.com/abc@example.com" {
		t.Errorf("navigated to %q, want resolved start_url", navs[0].Text)
	}
}

func TestExecuteTypeResolvesValue(t *testing.T) {
	f := testFlow(t, `
name: t
selectors:
  email: "css:input[name=email]"
steps:
  - action: type
    target: email
    value: "{account.email}"
`)
	b := mock.New(mock.Config{})
	exec := NewExecutor(b, f, ProbeConfig{})

	if err := exec.Execute(context.Background(), testContext(f, ModeManual), f.Steps[0]); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}

	// type waits for visibility first, then types.
	ops := b.Ops()
	if len(ops) != 2 || ops[0] != "wait" || ops[1] != "type" {
		t.Fatalf("ops = %v, want [wait type]", ops)
	}
	typed := b.CallsTo("type")[0]
	if typed.Text != "abc@example.com" {
		t.Errorf("typed %q, want resolved email", typed.Text)
	}
}

func TestExecuteClickWaitsForClickable(t *testing.T) {
	f := testFlow(t, "name: t\nselectors:\n  go: \"css:button\"\nsteps:\n  - action: click\n    target: go\n")
	b := mock.New(mock.Config{})
	exec := NewExecutor(b, f, ProbeConfig{})

	if err := exec.Execute(context.Background(), testContext(f, ModeManual), f.Steps[0]); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	waits := b.CallsTo("wait")
	if len(waits) != 1 || waits[0].State != flow.StateClickable {
		t.Errorf("wait calls = %+v, want one clickable wait", waits)
	}
}

func TestExecuteWaitTimeout(t *testing.T) {
	f := testFlow(t, "name: t\nsteps:\n  - action: wait\n    target: \"css:div.spinner\"\n")
	b := mock.New(mock.Config{
		WaitErrs: map[string]error{`css="div.spinner"`: errors.New("never appeared")},
	})
	exec := NewExecutor(b, f, ProbeConfig{})

	err := exec.Execute(context.Background(), testContext(f, ModeManual), f.Steps[0])
	if !errors.Is(err, ErrElementTimeout) {
		t.Errorf("error = %v, want ErrElementTimeout", err)
	}
}

func TestExecuteExpectFailure(t *testing.T) {
	f := testFlow(t, "name: t\nsteps:\n  - action: expect\n    target: \"css:div.done\"\n")
	b := mock.New(mock.Config{
		WaitErrs: map[string]error{`css="div.done"`: errors.New("not there")},
	})
	exec := NewExecutor(b, f, ProbeConfig{})

	err := exec.Execute(context.Background(), testContext(f, ModeManual), f.Steps[0])
	if !errors.Is(err, ErrExpectationFailed) {
		t.Errorf("error = %v, want ErrExpectationFailed", err)
	}
}

func TestExecuteUnresolvedVariableFails(t *testing.T) {
	f := testFlow(t, "name: t\nsteps:\n  - action: type\n    target: \"css:input\"\n    value: \"{env.DEFINITELY_NOT_SET_12345}\"\n")
	b := mock.New(mock.Config{})
	exec := NewExecutor(b, f, ProbeConfig{})

	err := exec.Execute(context.Background(), testContext(f, ModeManual), f.Steps[0])
	if !errors.Is(err, ErrUnresolvedVariable) {
		t.Errorf("error = %v, want ErrUnresolvedVariable", err)
	}
	if len(b.Ops()) != 0 {
		t.Errorf("browser was touched despite resolution failure: %v", b.Ops())
	}
}

func TestExecuteSleep(t *testing.T) {
	f := testFlow(t, "name: t\nvariables:\n  nap: \"1\"\nsteps:\n  - action: sleep\n    value: \"{flow.nap}\"\n")
	b := mock.New(mock.Config{})
	exec := NewExecutor(b, f, ProbeConfig{})

	if err := exec.Execute(context.Background(), testContext(f, ModeManual), f.Steps[0]); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}

	// Non-numeric durations from substitution only surface at run time.
	bad := testFlow(t, "name: t\nvariables:\n  nap: soon\nsteps:\n  - action: sleep\n    value: \"{flow.nap}\"\n")
	err := exec.Execute(context.Background(), testContext(bad, ModeManual), bad.Steps[0])
	if !errors.Is(err, ErrInvalidFlow) {
		t.Errorf("error = %v, want ErrInvalidFlow", err)
	}
}

func TestExecuteEvalScript(t *testing.T) {
	f := testFlow(t, "name: t\nsteps:\n  - action: eval_script\n    value: \"account.email.indexOf('@') > 0\"\n")
	b := mock.New(mock.Config{})
	exec := NewExecutor(b, f, ProbeConfig{})

	if err := exec.Execute(context.Background(), testContext(f, ModeManual), f.Steps[0]); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}

	falsy := testFlow(t, "name: t\nsteps:\n  - action: eval_script\n    value: \"1 > 2\"\n")
	err := exec.Execute(context.Background(), testContext(falsy, ModeManual), falsy.Steps[0])
	if !errors.Is(err, ErrExpectationFailed) {
		t.Errorf("error = %v, want ErrExpectationFailed", err)
	}
}

func TestAutoContinue(t *testing.T) {
	f := testFlow(t, "name: t\nsteps:\n  - navigate\n")

	// Absent control: not ready, no error, no click.
	b := mock.New(mock.Config{})
	exec := NewExecutor(b, f, ProbeConfig{ContinuePattern: "button.go"})
	clicked, err := exec.AutoContinue(context.Background())
	if err != nil || clicked {
		t.Fatalf("AutoContinue() = (%v, %v), want (false, nil)", clicked, err)
	}
	if len(b.CallsTo("click")) != 0 {
		t.Error("clicked an absent control")
	}

	// Present but not yet clickable, then clickable.
	b = mock.New(mock.Config{
		Elements:          map[string]*mock.Element{"button.go": {Name: "go"}},
		NotClickablePolls: map[string]int{"go": 1},
	})
	exec = NewExecutor(b, f, ProbeConfig{ContinuePattern: "button.go"})

	clicked, err = exec.AutoContinue(context.Background())
	if err != nil || clicked {
		t.Fatalf("first probe = (%v, %v), want (false, nil)", clicked, err)
	}
	clicked, err = exec.AutoContinue(context.Background())
	if err != nil || !clicked {
		t.Fatalf("second probe = (%v, %v), want (true, nil)", clicked, err)
	}
	if len(b.CallsTo("click")) != 1 {
		t.Errorf("click calls = %d, want exactly 1", len(b.CallsTo("click")))
	}
}

func TestAutoFillOTP(t *testing.T) {
	f := testFlow(t, "name: t\nsteps:\n  - navigate\n")
	b := mock.New(mock.Config{
		Elements: map[string]*mock.Element{"input.otp": {Name: "otp"}},
	})
	exec := NewExecutor(b, f, ProbeConfig{OTPInputPattern: "input.otp"})
	ec := testContext(f, ModeAuto)

	// No code yet: nothing happens.
	filled, err := exec.AutoFillOTP(context.Background(), ec)
	if err != nil || filled {
		t.Fatalf("AutoFillOTP() = (%v, %v), want (false, nil)", filled, err)
	}

	ec.SetOTPCode("123456")
	filled, err = exec.AutoFillOTP(context.Background(), ec)
	if err != nil || !filled {
		t.Fatalf("AutoFillOTP() = (%v, %v), want (true, nil)", filled, err)
	}
	pastes := b.CallsTo("paste")
	if len(pastes) != 1 || pastes[0].Text != "123456" || pastes[0].Target != "otp" {
		t.Errorf("pastes = %+v, want one paste of 123456 into otp", pastes)
	}

	// The same code is never pasted twice.
	filled, err = exec.AutoFillOTP(context.Background(), ec)
	if err != nil || filled {
		t.Fatalf("repeat AutoFillOTP() = (%v, %v), want (false, nil)", filled, err)
	}
	if len(b.CallsTo("paste")) != 1 {
		t.Errorf("paste calls = %d, want exactly 1", len(b.CallsTo("paste")))
	}
}
