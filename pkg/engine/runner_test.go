package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/accountforge/regrunner/pkg/browser/mock"
	"github.com/accountforge/regrunner/pkg/otp"
)

func TestRunSuccess(t *testing.T) {
	f := testFlow(t, `
name: t
start_url: "https://example.com"
steps:
  - navigate
  - action: type
    target: "css:input[name=email]"
    value: "{account.email}"
  - action: click
    target: "css:button[type=submit]"
`)
	b := mock.New(mock.Config{})
	ec := testContext(f, ModeManual)
	r := NewRunner(f, NewExecutor(b, f, ProbeConfig{}), ec, RunnerOptions{})

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if r.State() != StateSuccess {
		t.Errorf("state = %v, want success", r.State())
	}
}

func TestRunStopsAtFirstFailure(t *testing.T) {
	f := testFlow(t, `
name: t
start_url: "https://example.com"
steps:
  - navigate
  - action: click
    target: "css:button.gone"
  - action: type
    target: "css:input"
    value: "never typed"
`)
	b := mock.New(mock.Config{
		WaitErrs: map[string]error{`css="button.gone"`: errors.New("nope")},
	})
	r := NewRunner(f, NewExecutor(b, f, ProbeConfig{}), testContext(f, ModeManual), RunnerOptions{})

	err := r.Run(context.Background())
	if err == nil {
		t.Fatal("Run() succeeded, want error")
	}

	var stepErr *StepError
	if !errors.As(err, &stepErr) {
		t.Fatalf("error = %T, want *StepError", err)
	}
	if stepErr.Index != 1 {
		t.Errorf("failed step index = %d, want 1", stepErr.Index)
	}
	if !errors.Is(err, ErrElementTimeout) {
		t.Errorf("error = %v, want ErrElementTimeout underneath", err)
	}
	if r.State() != StateFailed {
		t.Errorf("state = %v, want failed", r.State())
	}
	// Steps after the failure never ran.
	if calls := b.CallsTo("type"); len(calls) != 0 {
		t.Errorf("type was executed after a failed step: %+v", calls)
	}
}

func TestRunManualPauseWaitsForContinue(t *testing.T) {
	f := testFlow(t, `
name: t
start_url: "https://example.com"
steps:
  - navigate
  - action: pause_for_manual
    message: "finish the captcha for {account.email}"
  - action: click
    target: "css:button.done"
`)
	b := mock.New(mock.Config{})
	controls := NewControls()
	r := NewRunner(f, NewExecutor(b, f, ProbeConfig{}), testContext(f, ModeManual), RunnerOptions{
		ContinueSignal: controls.ContinueSignal(),
	})

	done := make(chan error, 1)
	go func() { done <- r.Run(context.Background()) }()

	waitForState(t, r, StateSuspendedManual)
	if calls := b.CallsTo("click"); len(calls) != 0 {
		t.Fatalf("click ran while suspended: %+v", calls)
	}

	controls.RequestContinue()
	if err := <-done; err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(b.CallsTo("click")) != 1 {
		t.Error("step after the pause did not run")
	}
}

func TestRunAutoPauseResumesWhenReady(t *testing.T) {
	f := testFlow(t, `
name: t
start_url: "https://example.com"
steps:
  - navigate
  - pause_for_manual
  - action: click
    target: "css:a.next"
`)
	b := mock.New(mock.Config{
		Elements:          map[string]*mock.Element{"button.go": {Name: "go"}},
		NotClickablePolls: map[string]int{"go": 2},
	})
	r := NewRunner(f, NewExecutor(b, f, ProbeConfig{ContinuePattern: "button.go"}), testContext(f, ModeAuto), RunnerOptions{
		PollInterval: 5 * time.Millisecond,
		PollBudget:   time.Second,
	})

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	// The probe clicked the continue control exactly once, and the
	// step after the pause ran next.
	var clicks []string
	for _, call := range b.CallsTo("click") {
		clicks = append(clicks, call.Target)
	}
	want := []string{`css="button.go"`, `css="a.next"`}
	if len(clicks) != 2 || clicks[0] != want[0] || clicks[1] != want[1] {
		t.Errorf("clicks = %v, want %v", clicks, want)
	}
}

func TestRunAutoPauseVerificationTimeout(t *testing.T) {
	f := testFlow(t, `
name: t
steps:
  - pause_for_manual
`)
	b := mock.New(mock.Config{}) // continue control never appears
	r := NewRunner(f, NewExecutor(b, f, ProbeConfig{}), testContext(f, ModeAuto), RunnerOptions{
		PollInterval: 5 * time.Millisecond,
		PollBudget:   30 * time.Millisecond,
	})

	err := r.Run(context.Background())
	if !errors.Is(err, ErrVerificationTimeout) {
		t.Fatalf("error = %v, want ErrVerificationTimeout", err)
	}
	if r.State() != StateFailed {
		t.Errorf("state = %v, want failed", r.State())
	}
}

func TestRunAutoPauseFillsOTPOnce(t *testing.T) {
	f := testFlow(t, `
name: t
steps:
  - pause_for_manual
`)
	b := mock.New(mock.Config{
		Elements: map[string]*mock.Element{
			"button.go": {Name: "go"},
			"input.otp": {Name: "otp"},
		},
		NotClickablePolls: map[string]int{"go": 3},
	})
	fetches := 0
	fetcher := otp.FetcherFunc(func(ctx context.Context, email string) (string, error) {
		fetches++
		if fetches < 2 {
			return "", otp.ErrNoCode
		}
		return "654321", nil
	})
	r := NewRunner(f, NewExecutor(b, f, ProbeConfig{ContinuePattern: "button.go", OTPInputPattern: "input.otp"}),
		testContext(f, ModeAuto), RunnerOptions{
			OTP:          fetcher,
			PollInterval: 5 * time.Millisecond,
			PollBudget:   time.Second,
		})

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	pastes := b.CallsTo("paste")
	if len(pastes) != 1 {
		t.Fatalf("paste calls = %d, want exactly 1", len(pastes))
	}
	if pastes[0].Text != "654321" {
		t.Errorf("pasted %q, want 654321", pastes[0].Text)
	}
}

func TestRunManualPauseHonorsCancellation(t *testing.T) {
	f := testFlow(t, "name: t\nsteps:\n  - pause_for_manual\n")
	b := mock.New(mock.Config{})
	controls := NewControls()
	r := NewRunner(f, NewExecutor(b, f, ProbeConfig{}), testContext(f, ModeManual), RunnerOptions{
		ContinueSignal: controls.ContinueSignal(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	waitForState(t, r, StateSuspendedManual)
	cancel()

	err := <-done
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func waitForState(t *testing.T, r *Runner, want RunState) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if r.State() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("runner never reached state %v (now %v)", want, r.State())
}
