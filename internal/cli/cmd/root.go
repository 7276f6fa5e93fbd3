package cmd

import (
	"fmt"
	"os"

	"outpost/pkg/sdk"

	"github.com/spf13/cobra"
)

var (
	Client  *sdk.Client
	BaseURL string
	Token   string
)

var RootCmd = &cobra.Command{
	Use:   "outpost-cli",
	Short: "CLI for the Outpost community portal daemon",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		Client = sdk.NewClient(BaseURL)
		if Token != "" {
			Client.SetToken(Token)
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		RunDashboard()
	},
}

func Execute() {
	RootCmd.PersistentFlags().StringVar(&BaseURL, "url", "http://localhost:23010", "URL of the Outpost Daemon")
	RootCmd.PersistentFlags().StringVar(&Token, "token", "", "Bearer token from a previous login")

	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
