package engine

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/accountforge/regrunner/pkg/browser"
	"github.com/accountforge/regrunner/pkg/flow"
	"github.com/accountforge/regrunner/pkg/logger"
)

// ProbeConfig holds the reusable locator patterns the verification
// probes look for. Patterns are CSS and deliberately generic so one
// flow file works across small page variations.
type ProbeConfig struct {
	// ContinuePattern matches the continuation control on a
	// verification page.
	ContinuePattern string
	// OTPInputPattern matches the verification code input.
	OTPInputPattern string
}

// Default probe patterns, overridable per install via configuration.
const (
	DefaultContinuePattern = "button[type=submit], button.continue, a.continue"
	DefaultOTPInputPattern = "input[autocomplete=one-time-code], input[name*=code], input[name*=otp]"
)

func (p ProbeConfig) withDefaults() ProbeConfig {
	if p.ContinuePattern == "" {
		p.ContinuePattern = DefaultContinuePattern
	}
	if p.OTPInputPattern == "" {
		p.OTPInputPattern = DefaultOTPInputPattern
	}
	return p
}

// Executor executes individual steps against a browser. It owns no
// flow-level state: errors are returned, never retried here.
type Executor struct {
	browser  browser.Browser
	flow     *flow.Flow
	probes   ProbeConfig
	handlers map[flow.ActionKind]func(context.Context, *ExecutionContext, flow.Step) error
}

// NewExecutor creates an executor for one flow run.
func NewExecutor(b browser.Browser, f *flow.Flow, probes ProbeConfig) *Executor {
	e := &Executor{
		browser: b,
		flow:    f,
		probes:  probes.withDefaults(),
	}
	e.handlers = map[flow.ActionKind]func(context.Context, *ExecutionContext, flow.Step) error{
		flow.ActionNavigate:     e.execNavigate,
		flow.ActionWait:         e.execWait,
		flow.ActionType:         e.execType,
		flow.ActionClick:        e.execClick,
		flow.ActionSleep:        e.execSleep,
		flow.ActionExpect:       e.execExpect,
		flow.ActionAutoContinue: e.execAutoContinue,
		flow.ActionAutoFillOTP:  e.execAutoFillOTP,
		flow.ActionEvalScript:   e.execEvalScript,
	}
	return e
}

// Execute runs a single step. Pause steps are driven by the runner and
// never reach the executor.
func (e *Executor) Execute(ctx context.Context, ec *ExecutionContext, step flow.Step) error {
	handler, ok := e.handlers[step.Action]
	if !ok {
		return ErrUnknownAction.WithMessage(fmt.Sprintf("no handler for action %q", step.Action))
	}
	logger.Debug("executing: %s", step.Describe())
	return handler(ctx, ec, step)
}

// stepTimeout returns the effective wait budget for a step.
func (e *Executor) stepTimeout(step flow.Step) time.Duration {
	if step.Timeout > 0 {
		return step.Timeout
	}
	return e.flow.Timeout
}

// resolveLocator turns a step target into a concrete locator: a
// declared selector name, or the inline "strategy:value" form. The
// target is resolved before lookup so selector names may themselves
// come from variables.
func (e *Executor) resolveLocator(ec *ExecutionContext, target string) (flow.Locator, error) {
	resolved, err := ec.Scopes.Resolve(target)
	if err != nil {
		return flow.Locator{}, err
	}
	if loc, ok := e.flow.Locator(resolved); ok {
		return loc, nil
	}
	loc, err := flow.ParseLocator(resolved)
	if err != nil {
		return flow.Locator{}, ErrInvalidFlow.WithMessage(
			fmt.Sprintf("target %q is neither a declared selector nor an inline locator", resolved))
	}
	return loc, nil
}

func (e *Executor) execNavigate(ctx context.Context, ec *ExecutionContext, step flow.Step) error {
	raw := step.Value
	if raw == "" {
		raw = step.Target
	}
	if raw == "" {
		raw = e.flow.StartURL
	}
	url, err := ec.Scopes.Resolve(raw)
	if err != nil {
		return err
	}
	if url == "" {
		return ErrInvalidFlow.WithMessage("navigate has no URL and the flow has no start_url")
	}
	if err := e.browser.Navigate(ctx, url); err != nil {
		return ErrBrowser.WithMessage(fmt.Sprintf("navigate to %s failed", url)).WithCause(err)
	}
	return nil
}

func (e *Executor) execWait(ctx context.Context, ec *ExecutionContext, step flow.Step) error {
	loc, err := e.resolveLocator(ec, step.Target)
	if err != nil {
		return err
	}
	state := step.State
	if state == "" {
		state = flow.StatePresent
	}
	timeout := e.stepTimeout(step)
	if err := e.browser.WaitFor(ctx, loc, state, timeout); err != nil {
		return ErrElementTimeout.WithMessage(
			fmt.Sprintf("element %s did not become %s within %s", loc, state, timeout)).WithCause(err)
	}
	return nil
}

func (e *Executor) execType(ctx context.Context, ec *ExecutionContext, step flow.Step) error {
	loc, err := e.resolveLocator(ec, step.Target)
	if err != nil {
		return err
	}
	text, err := ec.Scopes.Resolve(step.Value)
	if err != nil {
		return err
	}
	timeout := e.stepTimeout(step)
	if err := e.browser.WaitFor(ctx, loc, flow.StateVisible, timeout); err != nil {
		return ErrElementTimeout.WithMessage(
			fmt.Sprintf("element %s did not become visible within %s", loc, timeout)).WithCause(err)
	}
	if err := e.browser.Type(ctx, loc, text); err != nil {
		return ErrBrowser.WithMessage(fmt.Sprintf("type into %s failed", loc)).WithCause(err)
	}
	return nil
}

func (e *Executor) execClick(ctx context.Context, ec *ExecutionContext, step flow.Step) error {
	loc, err := e.resolveLocator(ec, step.Target)
	if err != nil {
		return err
	}
	timeout := e.stepTimeout(step)
	if err := e.browser.WaitFor(ctx, loc, flow.StateClickable, timeout); err != nil {
		return ErrElementTimeout.WithMessage(
			fmt.Sprintf("element %s did not become clickable within %s", loc, timeout)).WithCause(err)
	}
	if err := e.browser.Click(ctx, loc); err != nil {
		return ErrBrowser.WithMessage(fmt.Sprintf("click on %s failed", loc)).WithCause(err)
	}
	return nil
}

func (e *Executor) execSleep(ctx context.Context, ec *ExecutionContext, step flow.Step) error {
	raw, err := ec.Scopes.Resolve(step.Value)
	if err != nil {
		return err
	}
	ms, err := strconv.Atoi(raw)
	if err != nil || ms < 0 {
		return ErrInvalidFlow.WithMessage(fmt.Sprintf("sleep duration %q is not a millisecond count", raw))
	}
	select {
	case <-time.After(time.Duration(ms) * time.Millisecond):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Executor) execExpect(ctx context.Context, ec *ExecutionContext, step flow.Step) error {
	loc, err := e.resolveLocator(ec, step.Target)
	if err != nil {
		return err
	}
	state := step.State
	if state == "" {
		state = flow.StateVisible
	}
	timeout := e.stepTimeout(step)
	if err := e.browser.WaitFor(ctx, loc, state, timeout); err != nil {
		return ErrExpectationFailed.WithMessage(
			fmt.Sprintf("expected %s to be %s within %s", loc, state, timeout)).WithCause(err)
	}
	return nil
}

func (e *Executor) execEvalScript(ctx context.Context, ec *ExecutionContext, step flow.Step) error {
	ok, err := evalCondition(step.Value, &ec.Scopes)
	if err != nil {
		return ErrInvalidFlow.WithMessage("eval_script failed").WithCause(err)
	}
	if !ok {
		return ErrExpectationFailed.WithMessage(fmt.Sprintf("script condition %q is false", step.Value))
	}
	return nil
}

// execAutoContinue is the step form of the continue probe. Not ready
// is not an error: the step just reports and moves on.
func (e *Executor) execAutoContinue(ctx context.Context, ec *ExecutionContext, _ flow.Step) error {
	clicked, err := e.AutoContinue(ctx)
	if err != nil {
		return err
	}
	if !clicked {
		logger.Info("auto_continue: continuation control not ready, moving on")
	}
	return nil
}

// execAutoFillOTP is the step form of the code-fill probe.
func (e *Executor) execAutoFillOTP(ctx context.Context, ec *ExecutionContext, _ flow.Step) error {
	filled, err := e.AutoFillOTP(ctx, ec)
	if err != nil {
		return err
	}
	if !filled {
		logger.Info("auto_fill_otp: no code input or no pending code, moving on")
	}
	return nil
}

// AutoContinue probes for the continuation control. It clicks at most
// once and reports whether a click happened. Absence and a not yet
// clickable control both report (false, nil).
func (e *Executor) AutoContinue(ctx context.Context) (bool, error) {
	el, err := e.browser.QueryFirstMatching(ctx, e.probes.ContinuePattern)
	if err != nil {
		return false, ErrBrowser.WithMessage("continue probe failed").WithCause(err)
	}
	if el == nil {
		return false, nil
	}
	clickable, err := e.browser.IsClickable(ctx, el)
	if err != nil {
		return false, ErrBrowser.WithMessage("continue probe failed").WithCause(err)
	}
	if !clickable {
		return false, nil
	}
	loc := flow.Locator{Strategy: flow.ByCSS, Value: e.probes.ContinuePattern}
	if err := e.browser.Click(ctx, loc); err != nil {
		return false, ErrBrowser.WithMessage("continue click failed").WithCause(err)
	}
	logger.Info("auto-continue: clicked %s", el.Describe())
	return true, nil
}

// AutoFillOTP pastes the pending verification code into the first
// matching code input. Each fetched code is pasted at most once; the
// paste targets exactly one element even if several match.
func (e *Executor) AutoFillOTP(ctx context.Context, ec *ExecutionContext) (bool, error) {
	code := ec.PendingOTPCode()
	if code == "" {
		return false, nil
	}
	el, err := e.browser.QueryFirstMatching(ctx, e.probes.OTPInputPattern)
	if err != nil {
		return false, ErrBrowser.WithMessage("code input probe failed").WithCause(err)
	}
	if el == nil {
		return false, nil
	}
	if err := e.browser.PasteInto(ctx, el, code); err != nil {
		return false, ErrBrowser.WithMessage("code paste failed").WithCause(err)
	}
	ec.MarkOTPPasted()
	logger.Info("auto-fill: pasted verification code into %s", el.Describe())
	return true, nil
}
