// Package cli implements the cliffctl command tree. Every command talks to
// the API server through the SDK in pkg/client; nothing here touches
// Firestore directly.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/turtacn/PharmaCliff-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/PharmaCliff-Intelligence/pkg/client"
	apperrors "github.com/turtacn/PharmaCliff-Intelligence/pkg/errors"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

const (
	envServer = "PHARMACLIFF_SERVER"
	envToken  = "PHARMACLIFF_TOKEN"
)

type cliContextKey struct{}

// RootOptions holds global CLI flags.
type RootOptions struct {
	ServerAddr   string
	Token        string
	OutputFormat string
	LogLevel     string
	Verbose      bool
	Timeout      time.Duration
}

// CLIContext carries initialized dependencies through the command tree.
type CLIContext struct {
	Logger       logging.Logger
	Client       *client.Client
	OutputFormat string
	Verbose      bool
	Timeout      time.Duration
}

// NewRootCommand creates the cliffctl root command with global flags and all
// subcommands attached.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:     "cliffctl",
		Short:   "PharmaCliff Intelligence CLI — pharmaceutical patent cliff monitoring",
		Long:    "cliffctl administers the PharmaCliff Intelligence platform:\npatent expiry searches, subscription and plan management, and quota inspection.",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return persistentPreRun(cmd, opts)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.ServerAddr, "server", "", "API server address (env "+envServer+", default http://localhost:8080)")
	pf.StringVar(&opts.Token, "token", "", "Firebase ID token (env "+envToken+")")
	pf.StringVarP(&opts.OutputFormat, "output", "o", "table", "output format (table, json)")
	pf.StringVar(&opts.LogLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "enable verbose output")
	pf.DurationVar(&opts.Timeout, "timeout", 20*time.Minute, "operation timeout; searches block until the job finishes")

	cmd.AddCommand(
		newSearchCmd(),
		newPlansCmd(),
		newSubscriptionsCmd(),
		newOrganizationsCmd(),
		newQuotaCmd(),
	)
	return cmd
}

func persistentPreRun(cmd *cobra.Command, opts *RootOptions) error {
	level := opts.LogLevel
	if opts.Verbose {
		level = "debug"
	}
	logger, err := logging.NewLogger(logging.LogConfig{
		Level:            level,
		Format:           "console",
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	})
	if err != nil {
		return fmt.Errorf("logger initialization failed: %w", err)
	}

	addr := opts.ServerAddr
	if addr == "" {
		addr = os.Getenv(envServer)
	}
	if addr == "" {
		addr = "http://localhost:8080"
	}
	token := opts.Token
	if token == "" {
		token = os.Getenv(envToken)
	}

	apiClient, err := client.NewClient(addr, token, client.WithUserAgent("cliffctl/"+Version))
	if err != nil {
		return fmt.Errorf("client initialization failed: %w", err)
	}

	cliCtx := &CLIContext{
		Logger:       logger,
		Client:       apiClient,
		OutputFormat: opts.OutputFormat,
		Verbose:      opts.Verbose,
		Timeout:      opts.Timeout,
	}
	cmd.SetContext(context.WithValue(cmd.Context(), cliContextKey{}, cliCtx))
	return nil
}

// GetCLIContext extracts the CLIContext stored by persistentPreRun.
func GetCLIContext(cmd *cobra.Command) (*CLIContext, error) {
	ctx := cmd.Context()
	if ctx == nil {
		return nil, apperrors.NewValidation("command context is nil")
	}
	cliCtx, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok || cliCtx == nil {
		return nil, apperrors.NewValidation("CLI context not initialized")
	}
	return cliCtx, nil
}

// commandContext returns a context bounded by the global timeout flag.
func commandContext(cmd *cobra.Command, cliCtx *CLIContext) (context.Context, context.CancelFunc) {
	base := cmd.Context()
	if base == nil {
		base = context.Background()
	}
	if cliCtx.Timeout <= 0 {
		return context.WithCancel(base)
	}
	return context.WithTimeout(base, cliCtx.Timeout)
}

// Execute runs the command tree and reports errors on stderr.
func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		printError(rootCmd, err)
		return err
	}
	return nil
}

func printError(cmd *cobra.Command, err error) {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s (HTTP %d)\n", apiErr.Message, apiErr.StatusCode)
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
}

// printResult renders data per the --output flag.
func printResult(cmd *cobra.Command, data interface{}) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return printJSON(cmd, data)
	}
	switch strings.ToLower(cliCtx.OutputFormat) {
	case "json":
		return printJSON(cmd, data)
	default:
		return printTable(cmd, data)
	}
}

func printJSON(cmd *cobra.Command, data interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// printTable renders known types as aligned columns and falls back to JSON.
func printTable(cmd *cobra.Command, data interface{}) error {
	out := cmd.OutOrStdout()
	switch v := data.(type) {
	case []client.Plan:
		fmt.Fprintf(out, "%-24s %-20s %10s %8s %8s %s\n", "ID", "NAME", "PRICE", "SEARCHES", "SEATS", "ACTIVE")
		for _, p := range v {
			fmt.Fprintf(out, "%-24s %-20s %10.2f %8d %8d %t\n", p.ID, p.Name, p.Price, p.SearchesPerUser, p.MaxUsers, p.IsActive)
		}
		return nil
	case []client.Subscription:
		fmt.Fprintf(out, "%-24s %-24s %-10s %6s %10s\n", "ID", "ORGANIZATION", "STATUS", "SEATS", "END DATE")
		for _, s := range v {
			fmt.Fprintf(out, "%-24s %-24s %-10s %3d/%2d %10s\n", s.ID, s.OrganizationID, s.Status, s.CurrentUsers, s.MaxUsers, s.EndDate.Format("2006-01-02"))
		}
		return nil
	case []client.Organization:
		fmt.Fprintf(out, "%-24s %-24s %-12s %-10s %s\n", "ID", "NAME", "TYPE", "STATUS", "EMAIL")
		for _, o := range v {
			fmt.Fprintf(out, "%-24s %-24s %-12s %-10s %s\n", o.ID, o.Name, o.Type, o.Status, o.Email)
		}
		return nil
	case []client.HistoryEntry:
		fmt.Fprintf(out, "%-28s %-20s %-16s %-6s %s\n", "JOB", "MOLECULE", "COUNTRIES", "CACHED", "WHEN")
		for _, e := range v {
			fmt.Fprintf(out, "%-28s %-20s %-16s %-6t %s\n", e.JobID, e.Molecule, strings.Join(e.Countries, ","), e.FromCache, e.CreatedAt.Format(time.RFC3339))
		}
		return nil
	case *client.SearchOutcome:
		if v.Result == nil {
			fmt.Fprintln(out, "no result")
			return nil
		}
		fmt.Fprintf(out, "Job %s — %s (%d patents, cached=%t)\n", v.Result.JobID, v.Result.Molecule, len(v.Result.Patents), v.FromCache)
		fmt.Fprintf(out, "%-16s %-4s %-12s %s\n", "PATENT", "CC", "EXPIRES", "HOLDER")
		for _, p := range v.Result.Patents {
			fmt.Fprintf(out, "%-16s %-4s %-12s %s\n", p.PatentNumber, p.Country, p.ExpirationDate.Format("2006-01-02"), p.Holder)
		}
		return nil
	default:
		return printJSON(cmd, data)
	}
}
