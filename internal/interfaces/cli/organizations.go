package cli

import (
	"github.com/spf13/cobra"

	"github.com/turtacn/PharmaCliff-Intelligence/pkg/client"
)

func newOrganizationsCmd() *cobra.Command {
	orgsCmd := &cobra.Command{
		Use:     "organizations",
		Aliases: []string{"orgs"},
		Short:   "Manage customer organizations (admin)",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List organizations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd, cliCtx)
			defer cancel()

			orgs, err := cliCtx.Client.Admin().ListOrganizations(ctx)
			if err != nil {
				return err
			}
			return printResult(cmd, orgs)
		},
	}

	var (
		createType  string
		createEmail string
		createCNPJ  string
		createPhone string
	)
	createCmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create an organization",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd, cliCtx)
			defer cancel()

			org, err := cliCtx.Client.Admin().CreateOrganization(ctx, client.CreateOrganizationRequest{
				Name:  args[0],
				Type:  createType,
				Email: createEmail,
				CNPJ:  createCNPJ,
				Phone: createPhone,
			})
			if err != nil {
				return err
			}
			return printResult(cmd, org)
		},
	}
	createCmd.Flags().StringVar(&createType, "type", "company", "organization type (individual, company)")
	createCmd.Flags().StringVar(&createEmail, "email", "", "contact email (required)")
	createCmd.Flags().StringVar(&createCNPJ, "cnpj", "", "Brazilian company registry number")
	createCmd.Flags().StringVar(&createPhone, "phone", "", "contact phone")
	createCmd.MarkFlagRequired("email")

	var setStatus string
	statusCmd := &cobra.Command{
		Use:   "status <orgID>",
		Short: "Activate or deactivate an organization",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd, cliCtx)
			defer cancel()

			if err := cliCtx.Client.Admin().SetOrganizationStatus(ctx, args[0], setStatus); err != nil {
				return err
			}
			return printResult(cmd, map[string]string{"id": args[0], "status": setStatus})
		},
	}
	statusCmd.Flags().StringVar(&setStatus, "set", "", "new status (active, inactive)")
	statusCmd.MarkFlagRequired("set")

	orgsCmd.AddCommand(listCmd, createCmd, statusCmd)
	return orgsCmd
}
