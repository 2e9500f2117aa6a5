package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newQuotaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "quota",
		Short: "Show your search quota",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd, cliCtx)
			defer cancel()

			usage, err := cliCtx.Client.Quota(ctx)
			if err != nil {
				return err
			}
			if cliCtx.OutputFormat == "json" {
				return printJSON(cmd, usage)
			}

			out := cmd.OutOrStdout()
			if usage.Ledger == nil {
				fmt.Fprintln(out, "no active plan; searches are blocked")
				return nil
			}
			if usage.Unlimited {
				fmt.Fprintf(out, "plan %s: unlimited searches (%d used)\n",
					usage.Ledger.PlanName, usage.Ledger.SearchesUsed)
				return nil
			}
			fmt.Fprintf(out, "plan %s: %d/%d searches used, %d remaining\n",
				usage.Ledger.PlanName, usage.Ledger.SearchesUsed, usage.Ledger.SearchesLimit, usage.Remaining)
			if !usage.CanSearch {
				fmt.Fprintln(out, "quota exhausted; new searches will be rejected")
			}
			return nil
		},
	}
}
