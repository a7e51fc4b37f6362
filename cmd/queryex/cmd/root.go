package cmd

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
)

var (
	version string

	// Global flags
	flagAPIURL  string
	flagToken   string
	flagUser    string
	flagContext string
	flagOutput  string
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:   "queryex",
	Short: "Report catalog command line client",
	Long: `queryex is a kubectl-style client for the queryex reporting API.

It lists the reports you may run, shows their parameters and dropdown
options, and executes them.

Use "queryex config set-context" to configure your connection.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the CLI version from build flags.
func SetVersion(v string) {
	version = v
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&flagAPIURL, "api-url", "", "Override API URL (env: QUERYEX_API_URL)")
	rootCmd.PersistentFlags().StringVar(&flagToken, "token", "", "Bearer token for jwt auth mode (env: QUERYEX_TOKEN)")
	rootCmd.PersistentFlags().StringVar(&flagUser, "user", "", "Username header for header auth mode (env: QUERYEX_USER)")
	rootCmd.PersistentFlags().StringVarP(&flagContext, "context", "c", "", "Use specific context (env: QUERYEX_CONTEXT)")
	rootCmd.PersistentFlags().StringVarP(&flagOutput, "output", "o", "table", "Output format: table, json, yaml")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable verbose output")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(describeCmd)
	rootCmd.AddCommand(runCmd)
}

func initConfig() {
	if flagAPIURL == "" {
		flagAPIURL = os.Getenv("QUERYEX_API_URL")
	}
	if flagToken == "" {
		flagToken = os.Getenv("QUERYEX_TOKEN")
	}
	if flagUser == "" {
		flagUser = os.Getenv("QUERYEX_USER")
	}

	if flagAPIURL == "" || (flagToken == "" && flagUser == "") {
		detail := resolveFromConfigFile()
		if flagAPIURL == "" {
			flagAPIURL = detail.APIURL
		}
		if flagToken == "" && flagUser == "" {
			flagToken = detail.Token
			flagUser = detail.User
		}
	}
}

func resolveFromConfigFile() ContextDetail {
	ctxName := flagContext
	if ctxName == "" {
		ctxName = os.Getenv("QUERYEX_CONTEXT")
	}

	cfg, err := loadConfig()
	if err != nil {
		return ContextDetail{}
	}

	if ctxName == "" {
		ctxName = cfg.CurrentContext
	}

	ctx := cfg.GetContext(ctxName)
	if ctx == nil {
		return ContextDetail{}
	}

	detail := ctx.Context
	if detail.Token == "" && detail.TokenFile != "" {
		data, err := os.ReadFile(expandPath(detail.TokenFile))
		if err == nil {
			detail.Token = strings.TrimSpace(string(data))
		}
	}
	return detail
}

func mustClient() *Client {
	if flagAPIURL == "" {
		fmt.Fprintln(os.Stderr, "Error: API URL not configured. Use --api-url, QUERYEX_API_URL, or 'queryex config set-context'")
		os.Exit(1)
	}
	return NewClient(flagAPIURL, Credentials{Token: flagToken, User: flagUser}, flagVerbose)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show CLI version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("queryex version %s\n", version)
		fmt.Printf("  Go:       %s\n", runtime.Version())
		fmt.Printf("  OS/Arch:  %s/%s\n", runtime.GOOS, runtime.GOARCH)
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the resolved user, groups and organizational unit",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := mustClient().Get(cmd.Context(), "/api/v1/me")
		if err != nil {
			return fmt.Errorf("connection failed: %w", err)
		}
		return printPrincipal(data)
	},
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Drop the cached user information and resolve it again",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := mustClient().Post(cmd.Context(), "/api/v1/me/refresh", nil)
		if err != nil {
			return err
		}
		return printPrincipal(data)
	},
}

func printPrincipal(data []byte) error {
	var resp PrincipalResponse
	if err := unmarshal(data, &resp); err != nil {
		return err
	}

	switch flagOutput {
	case outputJSON:
		printJSON(resp)
	case outputYAML:
		printYAML(resp)
	default:
		fmt.Printf("API URL:   %s\n", flagAPIURL)
		fmt.Printf("User:      %s\n", resp.Username)
		fmt.Printf("Admin:     %s\n", boolToStr(resp.Admin))
		fmt.Printf("Org Unit:  %s\n", dash(resp.OrgUnit))
		fmt.Printf("Groups:    %s\n", dash(strings.Join(resp.Groups, ", ")))
		fmt.Printf("Resolved:  %s\n", shortTime(resp.ResolvedAt))
	}
	return nil
}
