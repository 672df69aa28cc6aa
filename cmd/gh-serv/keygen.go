package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mikecalendo/gh-serv/pkg/auth"
	"github.com/mikecalendo/gh-serv/pkg/config"
)

var keygenCmd = &cobra.Command{
	Use:   "keygen <repo-id>",
	Short: "Derive the manager key for a repository",
	Long: `Derive the manager key for a repository id from the configured
manager secret. The same key is returned in the repository summary; this
command recovers it without a running server.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		fmt.Println(auth.ManagerKey(args[0], cfg.Auth.ManagerSecret))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(keygenCmd)
}
