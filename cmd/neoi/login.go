package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/rohankatakam/neointerface/internal/config"
	"github.com/rohankatakam/neointerface/internal/graph"
)

var loginSkipCheck bool

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store the Neo4j password in the keychain",
	Long: `Prompt for the password of the configured user and host, check it
against the server and store it in the OS keychain. Without a keychain the
password goes to ~/.neointerface/credentials.yaml (mode 0600).`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored Neo4j password",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cm := config.NewCredentialManager(logger)
		if err := cm.DeletePassword(cfg.Neo4j.User, cfg.Neo4j.Host); err != nil {
			return err
		}
		color.Green("✓ Forgot the password of %s", config.PasswordItem(cfg.Neo4j.User, cfg.Neo4j.Host))
		return nil
	},
}

func runLogin(cmd *cobra.Command, args []string) error {
	item := config.PasswordItem(cfg.Neo4j.User, cfg.Neo4j.Host)
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("Neo4j login for %s\n", item)
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	cm := config.NewCredentialManager(logger)
	password, err := cm.PromptPassword("Password: ")
	if err != nil {
		return err
	}
	if password == "" {
		return fmt.Errorf("empty password")
	}

	if !loginSkipCheck {
		ctx := cmd.Context()
		c, err := graph.New(ctx, graph.Options{
			Host:     cfg.Neo4j.Host,
			User:     cfg.Neo4j.User,
			Password: password,
			Database: cfg.Neo4j.Database,
			Verbose:  cfg.Verbose,
		}, logger)
		if err != nil {
			return err
		}
		defer c.Close(context.Background())
		if err := c.Connect(ctx); err != nil {
			return err
		}
		fmt.Printf("→ Connected to Neo4j %s\n", c.ServerVersion())
	}

	where, err := cm.SavePassword(cfg.Neo4j.User, cfg.Neo4j.Host, password)
	if err != nil {
		return err
	}
	color.Green("✓ Password stored in %s", where)
	fmt.Println()
	fmt.Println("Run 'neoi logout' to remove it")
	return nil
}

func init() {
	loginCmd.Flags().BoolVar(&loginSkipCheck, "no-check", false, "store the password without connecting")
	rootCmd.AddCommand(loginCmd, logoutCmd)
}
