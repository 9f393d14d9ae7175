package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/antoniostano/reelstudio/internal/app"
	"github.com/antoniostano/reelstudio/internal/auth"
	"github.com/antoniostano/reelstudio/internal/config"
)

var rootCmd = &cobra.Command{
	Use:           "reelstudio",
	Short:         "Generate short-form video scripts and voiceovers",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if len(flagEnvFiles) == 0 {
			return config.LoadDotEnv()
		}
		return config.LoadDotEnv(flagEnvFiles...)
	},
	RunE: runServe,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "reelstudio %s\n", app.Version)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and capability endpoints",
	RunE:  runServe,
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token for a user id",
	RunE:  runToken,
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List the recognized niches and voices",
	RunE:  runCatalog,
}

var (
	flagEnvFiles []string
	flagBindAddr string
	flagUserID   string
	flagTokenTTL time.Duration
	flagJSON     bool
)

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(catalogCmd)

	rootCmd.PersistentFlags().StringSliceVar(&flagEnvFiles, "env-file", nil, "Dotenv files to load before reading the environment (default .env)")
	rootCmd.Flags().StringVar(&flagBindAddr, "addr", "", "Listen address (overrides APP_BIND_ADDR)")
	serveCmd.Flags().StringVar(&flagBindAddr, "addr", "", "Listen address (overrides APP_BIND_ADDR)")
	tokenCmd.Flags().StringVarP(&flagUserID, "user", "u", "", "User id to sign (required)")
	tokenCmd.Flags().DurationVar(&flagTokenTTL, "ttl", auth.DefaultTokenTTL, "Token lifetime")
	_ = tokenCmd.MarkFlagRequired("user")
	catalogCmd.Flags().BoolVar(&flagJSON, "json", false, "Print the catalog as JSON")
}

func Execute() error {
	return rootCmd.Execute()
}
