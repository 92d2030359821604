package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/giantswarm/mcpcore/internal/api"
	"github.com/giantswarm/mcpcore/pkg/logging"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeConfig indicates an invalid or unreadable server configuration.
	ExitCodeConfig = 2
	// ExitCodeNotFound indicates an unknown server id.
	ExitCodeNotFound = 3
)

// Global flags, shared by every subcommand.
var (
	configFile   string
	runtimeRoot  string
	logLevel     string
	outputFormat string
	quiet        bool
	noColor      bool
)

// rootCmd represents the base command for the mcpcore application.
var rootCmd = &cobra.Command{
	Use:   "mcpcore",
	Short: "Launch, supervise and talk to MCP servers",
	Long: `mcpcore discovers the MCP servers listed in its configuration file,
launches or dials them, negotiates capabilities and exposes their tools,
resources and prompts.

Local servers are started from the search path, falling back to the
managed runtime bundle. Container servers run through docker or podman.
Remote servers are reached over MCP streamable HTTP.`,
	// Errors are printed once by Execute.
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupLogging,
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
// This function is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "mcpcore version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code based on the error type.
// This provides semantic exit codes for scripting and automation.
func getExitCode(err error) int {
	if err == nil {
		return ExitCodeSuccess
	}
	if api.IsConfigError(err) {
		return ExitCodeConfig
	}
	if api.IsServerNotFound(err) {
		return ExitCodeNotFound
	}
	return ExitCodeError
}

// setupLogging configures the logger from --log-level, falling back to the
// environment settings. Logs go to stderr so they never mix with output.
func setupLogging(cmd *cobra.Command, _ []string) error {
	level := logLevel
	if level == "" {
		level = os.Getenv("MCPCORE_LOG_LEVEL")
	}
	if level == "" {
		level = "warn"
	}
	parsed, err := logging.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid --log-level: %w", err)
	}
	logging.InitForCLI(parsed, cmd.ErrOrStderr())
	return nil
}

// errToolFailed marks a tool call whose result reported an error.
var errToolFailed = errors.New("tool reported an error")

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "Server configuration file (default $XDG_CONFIG_HOME/mcpcore/mcp.json)")
	flags.StringVar(&runtimeRoot, "runtime-root", "", "Managed runtime bundle directory")
	flags.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error")
	flags.StringVarP(&outputFormat, "output", "o", "table", "Output format (table, json, yaml)")
	flags.BoolVarP(&quiet, "quiet", "q", false, "Suppress non-essential output")
	flags.BoolVar(&noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(newVersionCmd())
}
