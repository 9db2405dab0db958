package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/accountforge/regrunner/pkg/accounts"
	"github.com/accountforge/regrunner/pkg/browser"
	"github.com/accountforge/regrunner/pkg/flow"
	"github.com/accountforge/regrunner/pkg/logger"
	"github.com/accountforge/regrunner/pkg/store"
)

// BatchOptions configures a batch run.
type BatchOptions struct {
	// BatchID resumes an existing batch when set; otherwise a new
	// batch with a fresh ID is created.
	BatchID string
	// Mode is how pause steps are handled for every account.
	Mode Mode
	// ConfigScope backs {config.*} placeholders.
	ConfigScope map[string]any
	// Interval is the delay between consecutive accounts.
	Interval time.Duration
	// MaxRetries is how many times a failed account is retried with a
	// fresh browser session before it counts as failed.
	MaxRetries int
	// Probes configures the verification page probes.
	Probes ProbeConfig
	// Runner configures suspension handling per account.
	Runner RunnerOptions
	// Controls delivers operator continue/stop requests. Optional.
	Controls *Controls
	// OnTaskStart is called before an account's first attempt.
	OnTaskStart func(task *store.Task)
	// OnTask is called after each account reaches a terminal status.
	OnTask func(task *store.Task)
}

// BatchController runs one flow for a sequence of accounts, strictly
// one at a time, checkpointing after every account.
type BatchController struct {
	flow       *flow.Flow
	st         store.Store
	newBrowser browser.Factory
	opts       BatchOptions

	batch *store.Batch
	tasks []*store.Task
}

// NewBatchController creates a controller for a fresh batch over the
// given accounts.
func NewBatchController(ctx context.Context, f *flow.Flow, accts []accounts.Account, st store.Store, factory browser.Factory, opts BatchOptions) (*BatchController, error) {
	if !opts.Mode.IsValid() {
		return nil, fmt.Errorf("invalid mode %q", opts.Mode)
	}
	if len(accts) == 0 {
		return nil, fmt.Errorf("batch has no accounts")
	}
	if err := checkConfigScope(f, opts.ConfigScope); err != nil {
		return nil, err
	}
	if opts.Controls != nil && opts.Runner.ContinueSignal == nil {
		opts.Runner.ContinueSignal = opts.Controls.ContinueSignal()
	}

	c := &BatchController{flow: f, st: st, newBrowser: factory, opts: opts}

	if opts.BatchID == "" {
		opts.BatchID = uuid.NewString()
	}
	c.batch = &store.Batch{
		ID:       opts.BatchID,
		FlowName: f.Name,
		Total:    len(accts),
	}
	c.opts.BatchID = opts.BatchID

	for i, a := range accts {
		id := a.ID
		if id == 0 {
			id = i + 1
		}
		c.tasks = append(c.tasks, &store.Task{
			BatchID:   opts.BatchID,
			TaskID:    id,
			Email:     a.Email,
			Password:  a.Password,
			FirstName: a.FirstName,
			LastName:  a.LastName,
			Status:    store.TaskPending,
		})
	}

	if err := st.SaveBatch(ctx, c.batch); err != nil {
		return nil, err
	}
	for _, t := range c.tasks {
		if err := st.SaveTask(ctx, t); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// ResumeBatchController loads an interrupted batch and continues it.
// Accounts already in a terminal status are not reprocessed.
func ResumeBatchController(ctx context.Context, f *flow.Flow, st store.Store, factory browser.Factory, opts BatchOptions) (*BatchController, error) {
	if opts.BatchID == "" {
		return nil, fmt.Errorf("resume requires a batch id")
	}
	if !opts.Mode.IsValid() {
		return nil, fmt.Errorf("invalid mode %q", opts.Mode)
	}
	if err := checkConfigScope(f, opts.ConfigScope); err != nil {
		return nil, err
	}
	if opts.Controls != nil && opts.Runner.ContinueSignal == nil {
		opts.Runner.ContinueSignal = opts.Controls.ContinueSignal()
	}

	batch, err := st.LoadBatch(ctx, opts.BatchID)
	if err != nil {
		return nil, err
	}
	tasks, err := st.LoadTasks(ctx, opts.BatchID)
	if err != nil {
		return nil, err
	}

	// A task caught mid-flight by the interruption restarts from scratch.
	for _, t := range tasks {
		if t.Status == store.TaskRunning {
			t.Status = store.TaskPending
		}
	}

	logger.Info("batch %s: resuming, %d/%d accounts done", batch.ID, batch.Completed, batch.Total)
	return &BatchController{flow: f, st: st, newBrowser: factory, opts: opts, batch: batch, tasks: tasks}, nil
}

// Batch returns the current batch summary.
func (c *BatchController) Batch() store.Batch {
	return *c.batch
}

// Run processes the pending accounts in task ID order. A stop request
// or context cancellation takes effect between accounts, never in the
// middle of one.
func (c *BatchController) Run(ctx context.Context) error {
	logger.Info("batch %s: starting flow %q for %d accounts", c.batch.ID, c.flow.Name, c.batch.Total)

	for _, task := range c.tasks {
		if task.Status != store.TaskPending {
			continue
		}
		if err := ctx.Err(); err != nil {
			logger.Warn("batch %s: interrupted, %d/%d accounts done", c.batch.ID, c.batch.Completed, c.batch.Total)
			return err
		}
		if c.opts.Controls != nil && c.opts.Controls.StopRequested() {
			logger.Info("batch %s: stop requested, %d/%d accounts done", c.batch.ID, c.batch.Completed, c.batch.Total)
			return nil
		}

		c.processTask(ctx, task)

		if err := c.checkpoint(ctx, task); err != nil {
			return fmt.Errorf("checkpoint failed after task %d: %w", task.TaskID, err)
		}
		if c.opts.OnTask != nil {
			c.opts.OnTask(task)
		}
		if c.opts.Interval > 0 && c.hasPending() {
			select {
			case <-time.After(c.opts.Interval):
			case <-ctx.Done():
			}
		}
	}

	logger.Info("batch %s: done, %d success / %d failed of %d",
		c.batch.ID, c.batch.Success, c.batch.Failed, c.batch.Total)
	return nil
}

// processTask runs the flow for one account, retrying with a fresh
// browser session up to MaxRetries times.
func (c *BatchController) processTask(ctx context.Context, task *store.Task) {
	if c.opts.OnTaskStart != nil {
		c.opts.OnTaskStart(task)
	}
	task.Status = store.TaskRunning
	if err := c.st.SaveTask(ctx, task); err != nil {
		logger.Warn("batch %s: failed to persist task %d: %v", c.batch.ID, task.TaskID, err)
	}

	acct := accounts.Account{
		ID:        task.TaskID,
		Email:     task.Email,
		Password:  task.Password,
		FirstName: task.FirstName,
		LastName:  task.LastName,
	}

	var lastErr error
	attempts := c.opts.MaxRetries + 1
	for attempt := 1; attempt <= attempts; attempt++ {
		task.Attempts++
		logger.Info("batch %s: account %s attempt %d/%d", c.batch.ID, task.Email, attempt, attempts)

		lastErr = c.runOnce(ctx, acct)
		if lastErr == nil {
			task.Status = store.TaskSuccess
			task.Error = ""
			return
		}
		logger.Warn("batch %s: account %s attempt %d failed: %v", c.batch.ID, task.Email, attempt, lastErr)
		if ctx.Err() != nil {
			break
		}
	}

	task.Status = store.TaskFailed
	task.Error = lastErr.Error()
}

// runOnce gives the account a fresh browser session and runs the flow
// start to finish.
func (c *BatchController) runOnce(ctx context.Context, acct accounts.Account) error {
	b, err := c.newBrowser(ctx)
	if err != nil {
		return fmt.Errorf("failed to start browser session: %w", err)
	}
	defer func() {
		if cerr := b.Close(); cerr != nil {
			logger.Warn("failed to close browser session: %v", cerr)
		}
	}()

	ec := NewExecutionContext(c.flow, acct, c.opts.ConfigScope, c.opts.Mode)
	exec := NewExecutor(b, c.flow, c.opts.Probes)
	runner := NewRunner(c.flow, exec, ec, c.opts.Runner)
	return runner.Run(ctx)
}

// checkpoint folds a finished task into the batch counters and
// persists both rows. The counters and last_processed_id only move
// forward. Persistence survives cancellation so an interrupt never
// loses a finished account.
func (c *BatchController) checkpoint(ctx context.Context, task *store.Task) error {
	ctx = context.WithoutCancel(ctx)
	c.batch.Completed++
	switch task.Status {
	case store.TaskSuccess:
		c.batch.Success++
	case store.TaskFailed:
		c.batch.Failed++
	}
	if task.TaskID > c.batch.LastProcessedID {
		c.batch.LastProcessedID = task.TaskID
	}

	if err := c.st.SaveTask(ctx, task); err != nil {
		return err
	}
	return c.st.SaveBatch(ctx, c.batch)
}

func (c *BatchController) hasPending() bool {
	for _, t := range c.tasks {
		if t.Status == store.TaskPending {
			return true
		}
	}
	return false
}

// checkConfigScope verifies that every {config.*} placeholder in the
// flow has a value in the batch's config scope, so a bad reference
// aborts the batch before the first account runs.
func checkConfigScope(f *flow.Flow, cfg map[string]any) error {
	for _, p := range f.AllPlaceholders() {
		if p.Scope != flow.ScopeConfig {
			continue
		}
		if _, ok := configValue(cfg, p.Key); !ok {
			return unresolvedVariable(p.Scope, p.Key)
		}
	}
	return nil
}
