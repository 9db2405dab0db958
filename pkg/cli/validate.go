package cli

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/accountforge/regrunner/pkg/flow"
)

var validateCommand = &cli.Command{
	Name:      "validate",
	Usage:     "Check flow files without running them",
	ArgsUsage: "<flow-file>...",
	Description: `Parse and validate one or more flow files. Reports the first
problem per file; exits non-zero if any file is invalid.`,
	Action: func(c *cli.Context) error {
		if c.NArg() == 0 {
			return fmt.Errorf("expected at least one flow file")
		}

		failed := 0
		for _, path := range c.Args().Slice() {
			f, err := flow.ParseFile(path)
			if err != nil {
				failed++
				fmt.Printf("FAIL  %s\n      %v\n", path, err)
				continue
			}
			fmt.Printf("OK    %s (%q, %d steps)\n", path, f.Name, len(f.Steps))
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d files invalid", failed, c.NArg())
		}
		return nil
	},
}
