package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/turtacn/PharmaCliff-Intelligence/pkg/client"
)

func newPlansCmd() *cobra.Command {
	plansCmd := &cobra.Command{
		Use:   "plans",
		Short: "Manage quota plans (admin)",
	}

	var listActive bool
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List plans",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd, cliCtx)
			defer cancel()

			plans, err := cliCtx.Client.Admin().ListPlans(ctx, listActive)
			if err != nil {
				return err
			}
			return printResult(cmd, plans)
		},
	}
	listCmd.Flags().BoolVar(&listActive, "active", false, "only active plans")

	var (
		createPrice    float64
		createSearches int
		createSeats    int
		createFeatures []string
	)
	createCmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd, cliCtx)
			defer cancel()

			plan, err := cliCtx.Client.Admin().CreatePlan(ctx, client.CreatePlanRequest{
				Name:            args[0],
				Price:           createPrice,
				SearchesPerUser: createSearches,
				MaxUsers:        createSeats,
				Features:        createFeatures,
			})
			if err != nil {
				return err
			}
			return printResult(cmd, plan)
		},
	}
	createCmd.Flags().Float64Var(&createPrice, "price", 0, "monthly price")
	createCmd.Flags().IntVar(&createSearches, "searches-per-user", 0, "monthly searches per seat; -1 for unlimited")
	createCmd.Flags().IntVar(&createSeats, "max-users", 1, "seat count")
	createCmd.Flags().StringSliceVar(&createFeatures, "features", nil, "feature labels")
	createCmd.MarkFlagRequired("searches-per-user")

	var deleteTarget string
	deleteCmd := &cobra.Command{
		Use:   "delete <planID>",
		Short: "Delete a plan, migrating its users to another plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd, cliCtx)
			defer cancel()

			report, err := cliCtx.Client.Admin().DeletePlan(ctx, args[0], deleteTarget)
			if err != nil {
				return err
			}
			if len(report.Failures) > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %d users could not be migrated; plan deleted=%t\n",
					len(report.Failures), report.PlanDeleted)
			}
			return printResult(cmd, report)
		},
	}
	deleteCmd.Flags().StringVar(&deleteTarget, "target", "", "plan to migrate existing users to (required)")
	deleteCmd.MarkFlagRequired("target")

	plansCmd.AddCommand(listCmd, createCmd, deleteCmd)
	return plansCmd
}
