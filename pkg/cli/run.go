package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/accountforge/regrunner/pkg/accounts"
	"github.com/accountforge/regrunner/pkg/browser"
	_ "github.com/accountforge/regrunner/pkg/browser/mock" // registers the mock driver
	"github.com/accountforge/regrunner/pkg/config"
	"github.com/accountforge/regrunner/pkg/engine"
	"github.com/accountforge/regrunner/pkg/flow"
	"github.com/accountforge/regrunner/pkg/logger"
	"github.com/accountforge/regrunner/pkg/otp"
	"github.com/accountforge/regrunner/pkg/report"
	"github.com/accountforge/regrunner/pkg/store"
)

var runCommand = &cli.Command{
	Name:      "run",
	Usage:     "Run a registration flow for a batch of accounts",
	ArgsUsage: "[flow-file]",
	Description: `Run a flow once per account, strictly one account at a time.
With no argument the flow_file from the workspace config is used.

In manual mode (the default) the run suspends at every pause step until
you press Enter. In auto mode the runner polls the verification page
and resumes by itself.

Progress is checkpointed after every account. Interrupt with Ctrl-C and
pick up where you left off:

  regrunner run flow.yaml --count 10
  regrunner run flow.yaml --resume <batch-id>`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "mode",
			Aliases: []string{"m"},
			Usage:   "Pause handling: manual or auto",
			Value:   "manual",
			EnvVars: []string{"REGRUNNER_MODE"},
		},
		&cli.StringFlag{
			Name:    "driver",
			Aliases: []string{"d"},
			Usage:   "Browser driver to use",
			Value:   "mock",
			EnvVars: []string{"REGRUNNER_DRIVER"},
		},
		&cli.IntFlag{
			Name:    "count",
			Aliases: []string{"n"},
			Usage:   "Number of accounts to generate (overrides config)",
		},
		&cli.IntFlag{
			Name:  "interval",
			Usage: "Seconds between accounts (overrides config)",
			Value: -1,
		},
		&cli.StringFlag{
			Name:  "resume",
			Usage: "Resume an interrupted batch by ID",
		},
		&cli.StringFlag{
			Name:    "state",
			Usage:   "SQLite checkpoint database path",
			Value:   "data/regrunner.db",
			EnvVars: []string{"REGRUNNER_STATE"},
		},
		&cli.StringFlag{
			Name:  "report",
			Usage: "Batch report JSON path (empty disables the report)",
			Value: "reports/batch.json",
		},
	},
	Action: runAction,
}

func runAction(c *cli.Context) error {
	if c.NArg() > 1 {
		return fmt.Errorf("expected at most one flow file, got %d arguments", c.NArg())
	}

	mode := engine.Mode(c.String("mode"))
	if !mode.IsValid() {
		return fmt.Errorf("invalid mode %q (want manual or auto)", c.String("mode"))
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	flowPath := c.Args().First()
	if flowPath == "" {
		flowPath = cfg.FlowFile
	}
	if flowPath == "" {
		return fmt.Errorf("no flow file given and no flow_file in the config")
	}

	f, err := flow.ParseFile(flowPath)
	if err != nil {
		return err
	}

	factory, err := browser.Lookup(c.String("driver"))
	if err != nil {
		return err
	}

	st, err := store.NewSQLiteStore(store.WithDSN(c.String("state")))
	if err != nil {
		return err
	}
	defer st.Close()

	controls := engine.NewControls()

	interval := cfg.Interval()
	if c.Int("interval") >= 0 {
		interval = time.Duration(c.Int("interval")) * time.Second
	}

	// The report builder is attached after the controller exists,
	// once the batch ID and size are known.
	var rb *report.Builder

	opts := engine.BatchOptions{
		Mode:        mode,
		ConfigScope: cfg.Scope(),
		Interval:    interval,
		MaxRetries:  cfg.Registration.MaxRetries,
		Probes: engine.ProbeConfig{
			ContinuePattern: cfg.Verification.ContinuePattern,
			OTPInputPattern: cfg.Verification.OTPInputPattern,
		},
		Runner: engine.RunnerOptions{
			PollInterval: cfg.PollInterval(),
			PollBudget:   cfg.PollBudget(),
			OnStep: func(i int, step flow.Step, err error, took time.Duration) {
				if rb != nil {
					rb.RecordStep(i, string(step.Action), step.Describe(), err, took)
				}
			},
		},
		Controls: controls,
		OnTaskStart: func(t *store.Task) {
			if rb != nil {
				rb.BeginTask()
			}
		},
		OnTask: func(t *store.Task) {
			fmt.Printf("  %-40s %s\n", t.Email, t.Status)
			if rb != nil {
				if err := rb.EndTask(t.TaskID, t.Email, t.Status, t.Attempts, t.Error); err != nil {
					logger.Warn("failed to write report: %v", err)
				}
			}
		},
	}
	if mode == engine.ModeAuto && cfg.Verification.CodeDropFile != "" {
		opts.Runner.OTP = &otp.DropFileFetcher{Path: cfg.Verification.CodeDropFile}
	}

	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()
	go handleSignals(cancel, controls)
	if mode == engine.ModeManual {
		go readOperatorInput(controls)
		fmt.Println("Manual mode: press Enter to continue a suspended flow, type 'stop' to stop after the current account.")
	}

	var controller *engine.BatchController
	if batchID := c.String("resume"); batchID != "" {
		opts.BatchID = batchID
		controller, err = engine.ResumeBatchController(ctx, f, st, factory, opts)
	} else {
		var accts []accounts.Account
		accts, err = generateAccounts(c, cfg)
		if err != nil {
			return err
		}
		controller, err = engine.NewBatchController(ctx, f, accts, st, factory, opts)
	}
	if err != nil {
		return err
	}

	batch := controller.Batch()
	fmt.Printf("Batch %s: flow %q, %d accounts\n", batch.ID, f.Name, batch.Total)

	if path := c.String("report"); path != "" {
		rb = report.NewBuilder(path, batch.ID, f.Name, f.SourcePath, string(mode), batch.Total)
	}

	runErr := controller.Run(ctx)
	if rb != nil {
		if err := rb.Finish(); err != nil {
			logger.Warn("failed to finalize report: %v", err)
		}
	}
	batch = controller.Batch()
	fmt.Printf("Done: %d completed, %d success, %d failed (batch %s)\n",
		batch.Completed, batch.Success, batch.Failed, batch.ID)
	if batch.Completed < batch.Total {
		fmt.Printf("Resume with: regrunner run %s --resume %s\n", f.SourcePath, batch.ID)
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}

func generateAccounts(c *cli.Context, cfg *config.Config) ([]accounts.Account, error) {
	count := cfg.Registration.Count
	if c.Int("count") > 0 {
		count = c.Int("count")
	}
	domain := cfg.Registration.Domain
	if domain == "" {
		domain = os.Getenv("REGRUNNER_DOMAIN")
	}
	password := cfg.Registration.Password
	if password == "" {
		password = os.Getenv("REGRUNNER_PASSWORD")
	}
	return accounts.Generate(count, domain, password)
}

func handleSignals(cancel context.CancelFunc, controls *engine.Controls) {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	logger.Warn("interrupt received, stopping after the current account (interrupt again to abort)")
	controls.RequestStop()

	<-sigCh
	logger.Warn("second interrupt, aborting")
	cancel()
}

// readOperatorInput turns stdin lines into control requests: an empty
// line or "c" continues a suspended flow, "stop" stops the batch.
func readOperatorInput(controls *engine.Controls) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		switch strings.TrimSpace(strings.ToLower(scanner.Text())) {
		case "", "c", "continue":
			controls.RequestContinue()
		case "stop", "q", "quit":
			controls.RequestStop()
			fmt.Println("Stopping after the current account.")
		}
	}
}
