package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSubscriptionsCmd() *cobra.Command {
	subsCmd := &cobra.Command{
		Use:     "subscriptions",
		Aliases: []string{"subs"},
		Short:   "Manage subscriptions and seat assignments (admin)",
	}

	var listOrg string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List subscriptions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd, cliCtx)
			defer cancel()

			subs, err := cliCtx.Client.Admin().ListSubscriptions(ctx, listOrg)
			if err != nil {
				return err
			}
			return printResult(cmd, subs)
		},
	}
	listCmd.Flags().StringVar(&listOrg, "org", "", "filter by organization ID")

	var assignConfirm bool
	assignCmd := &cobra.Command{
		Use:   "assign <subscriptionID> <userID>",
		Short: "Assign a user to a subscription",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd, cliCtx)
			defer cancel()

			sub, err := cliCtx.Client.Admin().AssignUser(ctx, args[0], args[1], assignConfirm)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "assigned %s to %s (%d/%d seats)\n",
				args[1], sub.ID, sub.CurrentUsers, sub.MaxUsers)
			return nil
		},
	}
	assignCmd.Flags().BoolVar(&assignConfirm, "confirm-migration", false,
		"move the user even if they belong to another subscription")

	removeCmd := &cobra.Command{
		Use:   "remove <subscriptionID> <userID>",
		Short: "Remove a user from a subscription",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd, cliCtx)
			defer cancel()

			sub, err := cliCtx.Client.Admin().RemoveUser(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s from %s (%d/%d seats)\n",
				args[1], sub.ID, sub.CurrentUsers, sub.MaxUsers)
			return nil
		},
	}

	var migrateFrom string
	migrateCmd := &cobra.Command{
		Use:   "migrate <subscriptionID> <userID>",
		Short: "Move a user from one subscription to another",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd, cliCtx)
			defer cancel()

			sub, err := cliCtx.Client.Admin().MigrateUser(ctx, args[0], args[1], migrateFrom)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrated %s into %s (%d/%d seats)\n",
				args[1], sub.ID, sub.CurrentUsers, sub.MaxUsers)
			return nil
		},
	}
	migrateCmd.Flags().StringVar(&migrateFrom, "from", "", "subscription the user currently belongs to (required)")
	migrateCmd.MarkFlagRequired("from")

	recountCmd := &cobra.Command{
		Use:   "recount <subscriptionID>",
		Short: "Recompute seat count and usage aggregates from member ledgers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd, cliCtx)
			defer cancel()

			sub, err := cliCtx.Client.Admin().RecountSubscription(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "recounted %s: %d users, %d searches used\n",
				sub.ID, sub.CurrentUsers, sub.TotalSearchesUsed)
			return nil
		},
	}

	pauseCmd := &cobra.Command{
		Use:   "pause <subscriptionID>",
		Short: "Pause a subscription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatusChange(cmd, args[0], "pause")
		},
	}
	resumeCmd := &cobra.Command{
		Use:   "resume <subscriptionID>",
		Short: "Resume a paused subscription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatusChange(cmd, args[0], "resume")
		},
	}

	subsCmd.AddCommand(listCmd, assignCmd, removeCmd, migrateCmd, recountCmd, pauseCmd, resumeCmd)
	return subsCmd
}

func runStatusChange(cmd *cobra.Command, subID, action string) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd, cliCtx)
	defer cancel()

	admin := cliCtx.Client.Admin()
	change := admin.ResumeSubscription
	if action == "pause" {
		change = admin.PauseSubscription
	}
	sub, err := change(ctx, subID)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", sub.ID, sub.Status)
	return nil
}
