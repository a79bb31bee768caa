package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "0.1.0-preview"
	commit  = "dev"
	date    = "unknown"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "sxo",
		Short: "SXO - the server-side JSX web framework",
		Long: `SXO renders JSX pages on the server with file-system routing,
a managed <head>, hashed asset injection, and a dev server with hot reload.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	}

	rootCmd.AddCommand(newDevCommand())
	rootCmd.AddCommand(newGenerateCommand())
	rootCmd.AddCommand(newStartCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
