package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "gh-serv",
	Short: "gh-serv - multi-tenant git hosting service",
	Long: `gh-serv hosts many independent git repositories behind one HTTP
service. Repositories are provisioned from zip archives or cloned from
existing ones, stored in a sharded directory layout, and every push is
checked against size caps and read-only path policy before it is
accepted.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
