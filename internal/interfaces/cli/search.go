package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/PharmaCliff-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/PharmaCliff-Intelligence/pkg/client"
	apperrors "github.com/turtacn/PharmaCliff-Intelligence/pkg/errors"
)

func newSearchCmd() *cobra.Command {
	searchCmd := &cobra.Command{
		Use:   "search",
		Short: "Run patent expiry searches and inspect jobs",
	}

	var (
		runBrand     string
		runCountries string
	)
	runCmd := &cobra.Command{
		Use:   "run <molecule>",
		Short: "Search patents for a molecule and wait for the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			countries := splitCSV(runCountries)
			if len(countries) == 0 {
				return apperrors.NewValidation("--countries required, e.g. --countries US,EP,BR")
			}

			ctx, cancel := commandContext(cmd, cliCtx)
			defer cancel()

			cliCtx.Logger.Info("submitting search",
				logging.String("molecule", args[0]),
				logging.String("countries", runCountries))

			outcome, err := cliCtx.Client.Search().Run(ctx, client.SearchRequest{
				Molecule:  args[0],
				Brand:     runBrand,
				Countries: countries,
			})
			if err != nil {
				return err
			}
			return printResult(cmd, outcome)
		},
	}
	runCmd.Flags().StringVar(&runBrand, "brand", "", "commercial brand name hint")
	runCmd.Flags().StringVar(&runCountries, "countries", "", "comma-separated country codes (required)")

	statusCmd := &cobra.Command{
		Use:   "status <jobID>",
		Short: "Show the state of a search job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd, cliCtx)
			defer cancel()

			status, err := cliCtx.Client.Search().JobStatus(ctx, args[0])
			if err != nil {
				return err
			}
			return printResult(cmd, status)
		},
	}

	var historyLimit int
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List your past searches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd, cliCtx)
			defer cancel()

			entries, err := cliCtx.Client.Search().History(ctx, historyLimit)
			if err != nil {
				return err
			}
			return printResult(cmd, entries)
		},
	}
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum entries to return")

	searchCmd.AddCommand(runCmd, statusCmd, historyCmd)
	return searchCmd
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
