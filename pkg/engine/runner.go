package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/accountforge/regrunner/pkg/flow"
	"github.com/accountforge/regrunner/pkg/logger"
	"github.com/accountforge/regrunner/pkg/otp"
)

// RunState is the lifecycle state of one flow run.
type RunState int

const (
	StateIdle                  RunState = iota // Not started
	StateRunning                              // Executing steps
	StateSuspendedManual                      // Waiting for operator continue
	StateSuspendedVerification                // Polling the verification page
	StateSuccess                              // All steps completed
	StateFailed                               // A step failed
)

// String returns the string representation of RunState.
func (s RunState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateSuspendedManual:
		return "suspended_manual"
	case StateSuspendedVerification:
		return "suspended_verification"
	case StateSuccess:
		return "success"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// IsTerminal returns true if the state is final.
func (s RunState) IsTerminal() bool {
	return s == StateSuccess || s == StateFailed
}

// StepError reports which step failed and why. Steps after the failed
// one are never attempted.
type StepError struct {
	Index  int // 0-based step index
	Action flow.ActionKind
	Err    error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s): %v", e.Index+1, e.Action, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// RunnerOptions configures suspension handling for a flow run.
type RunnerOptions struct {
	// ContinueSignal delivers operator continue requests in manual
	// mode. Required for ModeManual.
	ContinueSignal <-chan struct{}
	// OTP fetches verification codes in auto mode. Optional: without
	// it the poll relies on the continue control alone.
	OTP otp.Fetcher
	// PollInterval is the delay between verification probes.
	PollInterval time.Duration
	// PollBudget bounds the whole verification wait. A pause step's
	// own timeout takes precedence.
	PollBudget time.Duration
	// OnStep is called after every executed step.
	OnStep func(index int, step flow.Step, err error, took time.Duration)
	// OnStateChange is called on every state transition.
	OnStateChange func(RunState)
}

// Default verification poll settings.
const (
	DefaultPollInterval = 2 * time.Second
	DefaultPollBudget   = 90 * time.Second
)

// Runner executes one flow for one account, driving the run through
// the pause/continue state machine.
type Runner struct {
	flow *flow.Flow
	exec *Executor
	ec   *ExecutionContext
	opts RunnerOptions

	mu    sync.Mutex
	state RunState
}

// NewRunner creates a runner for one account's flow run.
func NewRunner(f *flow.Flow, exec *Executor, ec *ExecutionContext, opts RunnerOptions) *Runner {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.PollBudget <= 0 {
		opts.PollBudget = DefaultPollBudget
	}
	return &Runner{flow: f, exec: exec, ec: ec, opts: opts, state: StateIdle}
}

// State returns the current run state.
func (r *Runner) State() RunState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Runner) setState(s RunState) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
	logger.Debug("run state: %s", s)
	if r.opts.OnStateChange != nil {
		r.opts.OnStateChange(s)
	}
}

// Run executes the flow's steps in order. It returns nil when every
// step completed, or a *StepError identifying the first failure.
func (r *Runner) Run(ctx context.Context) error {
	r.setState(StateRunning)
	logger.Info("flow %q: starting (%d steps, mode %s)", r.flow.Name, len(r.flow.Steps), r.ec.Mode)

	for i, step := range r.flow.Steps {
		if err := ctx.Err(); err != nil {
			return r.fail(i, step, err)
		}

		start := time.Now()
		var err error
		if step.Action == flow.ActionPauseForManual {
			err = r.suspend(ctx, step)
		} else {
			err = r.exec.Execute(ctx, r.ec, step)
		}
		if r.opts.OnStep != nil {
			r.opts.OnStep(i, step, err, time.Since(start))
		}
		if err != nil {
			return r.fail(i, step, err)
		}
	}

	r.setState(StateSuccess)
	logger.Info("flow %q: completed", r.flow.Name)
	return nil
}

func (r *Runner) fail(i int, step flow.Step, err error) error {
	r.setState(StateFailed)
	stepErr := &StepError{Index: i, Action: step.Action, Err: err}
	logger.Error("flow %q: %v", r.flow.Name, stepErr)
	return stepErr
}

// suspend handles a pause step. In manual mode it blocks until the
// operator requests continue; in auto mode it polls the verification
// page until the continuation control was clicked.
func (r *Runner) suspend(ctx context.Context, step flow.Step) error {
	msg, err := r.ec.Scopes.Resolve(step.Message)
	if err != nil {
		return err
	}
	if msg != "" {
		logger.Info("pause: %s", msg)
	}

	if r.ec.Mode == ModeManual {
		return r.waitForOperator(ctx)
	}
	return r.pollVerification(ctx, step)
}

func (r *Runner) waitForOperator(ctx context.Context) error {
	if r.opts.ContinueSignal == nil {
		return ErrInvalidFlow.WithMessage("manual mode requires a continue signal")
	}
	r.setState(StateSuspendedManual)
	logger.Info("suspended: waiting for operator continue")
	select {
	case <-r.opts.ContinueSignal:
		logger.Info("operator requested continue")
		r.setState(StateRunning)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// errNotReady marks a poll round where the page was not ready yet.
var errNotReady = errors.New("verification page not ready")

func (r *Runner) pollVerification(ctx context.Context, step flow.Step) error {
	r.setState(StateSuspendedVerification)

	budget := r.opts.PollBudget
	if step.Timeout > 0 {
		budget = step.Timeout
	}
	logger.Info("suspended: polling verification page every %s for up to %s", r.opts.PollInterval, budget)

	pollCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	probe := func() error {
		// Fetch at most one code per run, and paste it at most once.
		if r.opts.OTP != nil && r.ec.OTPCode == "" {
			code, err := r.opts.OTP.FetchCode(pollCtx, r.ec.AccountEmail())
			if err != nil {
				logger.Debug("otp fetch: %v", err)
			} else if code != "" {
				logger.Info("otp: received code for %s", r.ec.AccountEmail())
				r.ec.SetOTPCode(code)
			}
		}
		if _, err := r.exec.AutoFillOTP(pollCtx, r.ec); err != nil {
			return backoff.Permanent(err)
		}

		clicked, err := r.exec.AutoContinue(pollCtx)
		if err != nil {
			return backoff.Permanent(err)
		}
		if clicked {
			return nil
		}
		return errNotReady
	}

	bo := backoff.WithContext(backoff.NewConstantBackOff(r.opts.PollInterval), pollCtx)
	if err := backoff.Retry(probe, bo); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, errNotReady) || errors.Is(err, context.DeadlineExceeded) {
			return ErrVerificationTimeout.WithMessage(
				fmt.Sprintf("verification page did not become ready within %s", budget))
		}
		return err
	}

	r.setState(StateRunning)
	return nil
}
