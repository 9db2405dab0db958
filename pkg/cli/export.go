package cli

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/accountforge/regrunner/pkg/accounts"
	"github.com/accountforge/regrunner/pkg/store"
)

var exportCommand = &cli.Command{
	Name:  "export",
	Usage: "Export a batch's account credentials",
	Description: `Write the credentials of a finished (or partial) batch to stdout
or a file, as CSV or JSON.

  regrunner export --batch <id> --format csv > accounts.csv
  regrunner export --batch <id> --only success -o accounts.json`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "batch",
			Aliases:  []string{"b"},
			Usage:    "Batch ID to export",
			Required: true,
		},
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Output format: csv or json",
			Value:   "csv",
		},
		&cli.StringFlag{
			Name:  "only",
			Usage: "Filter by task status (success, failed, pending)",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output file (default: stdout)",
		},
		&cli.StringFlag{
			Name:    "state",
			Usage:   "SQLite checkpoint database path",
			Value:   "data/regrunner.db",
			EnvVars: []string{"REGRUNNER_STATE"},
		},
	},
	Action: exportAction,
}

func exportAction(c *cli.Context) error {
	st, err := store.NewSQLiteStore(store.WithDSN(c.String("state")))
	if err != nil {
		return err
	}
	defer st.Close()

	batchID := c.String("batch")
	if _, err := st.LoadBatch(c.Context, batchID); err != nil {
		return err
	}
	tasks, err := st.LoadTasks(c.Context, batchID)
	if err != nil {
		return err
	}

	only := c.String("only")
	var accts []accounts.Account
	for _, t := range tasks {
		if only != "" && t.Status != only {
			continue
		}
		accts = append(accts, accounts.Account{
			ID:        t.TaskID,
			Email:     t.Email,
			Password:  t.Password,
			FirstName: t.FirstName,
			LastName:  t.LastName,
		})
	}

	out := os.Stdout
	if path := c.String("output"); path != "" {
		f, err := os.Create(path) //#nosec G304 -- user-provided output path
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	switch c.String("format") {
	case "csv":
		return accounts.ExportCSV(out, accts)
	case "json":
		return accounts.ExportJSON(out, accts)
	default:
		return fmt.Errorf("unknown format %q (want csv or json)", c.String("format"))
	}
}
