package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
)

var (
	settingsPath string
	debugMode    bool

	generateURL          string
	generateKeyword      string
	generateCategory     string
	generateTargetLength int

	servePort int
)

var debugEnabled bool

// SetDebugMode enables or disables debug logging
func SetDebugMode(enabled bool) {
	debugEnabled = enabled
}

func debugLog(format string, args ...interface{}) {
	if debugEnabled {
		log.Printf("[DEBUG] "+format, args...)
	}
}

var rootCmd = &cobra.Command{
	Use:           "toolpress",
	Short:         "Turn AI tool pages into published review articles",
	Long:          `Fetches a product page, writes a review article about it and publishes finished articles to WordPress.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		SetDebugMode(debugMode)
	},
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a draft article for a tool URL",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGenerate(cmd.Context(), cmd.OutOrStdout(), GenerateRequest{
			URL:          generateURL,
			Keyword:      generateKeyword,
			Category:     generateCategory,
			TargetLength: generateTargetLength,
		})
	},
}

var fetchCmd = &cobra.Command{
	Use:   "fetch URL",
	Short: "Extract page facts and print them as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFetch(cmd.Context(), cmd.OutOrStdout(), args[0])
	},
}

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish content/*_final.md articles to WordPress",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPublish(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context(), servePort)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&settingsPath, "settings", "", "Path to settings YAML file")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")

	generateCmd.Flags().StringVar(&generateURL, "url", "", "URL of the AI tool")
	generateCmd.Flags().StringVar(&generateKeyword, "keyword", "", "SEO keyword")
	generateCmd.Flags().StringVar(&generateCategory, "category", defaultCategory, "Tool category")
	generateCmd.Flags().IntVar(&generateTargetLength, "target-length", defaultTargetLength, "Target article length in characters")
	generateCmd.MarkFlagRequired("url")
	generateCmd.MarkFlagRequired("keyword")

	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (default from settings or BACKEND_PORT)")

	rootCmd.AddCommand(generateCmd, fetchCmd, publishCmd, serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
