package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
)

var loginEmail, loginPassword string
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and print a bearer token",
	Run: func(cmd *cobra.Command, args []string) {
		if loginEmail == "" || loginPassword == "" {
			log.Fatal("Error: You must specify both --email and --password")
		}
		handleLogin(loginEmail, loginPassword)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the current server status",
	Run: func(cmd *cobra.Command, args []string) {
		handleStatus()
	},
}

var actionCmd = &cobra.Command{
	Use:   "action [Start|Stop|Restart|Kill]",
	Short: "Dispatch a lifecycle action",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		handleAction(args[0])
	},
}

var systemCmd = &cobra.Command{
	Use:   "system",
	Short: "Show daemon host resource usage (admin)",
	Run: func(cmd *cobra.Command, args []string) {
		handleSystemStats()
	},
}

var keyTier string
var keyCmd = &cobra.Command{
	Use:   "key [api-key]",
	Short: "Store a control-endpoint master key (admin)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		handleSetMasterKey(keyTier, args[0])
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "Account email")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "Account password")
	keyCmd.Flags().StringVar(&keyTier, "tier", "standard", "Key tier (standard or admin)")

	RootCmd.AddCommand(loginCmd, statusCmd, actionCmd, systemCmd, keyCmd)
}

func handleLogin(email, password string) {
	session, err := Client.Login(email, password)
	if err != nil {
		log.Fatalf("Error logging in: %v", err)
	}
	fmt.Println("\n--- LOGIN OK ---")
	fmt.Printf("User:  %s\n", session.UserID)
	fmt.Printf("Token: %s\n", session.Token)
	fmt.Println("\nPass it to later calls with --token")
}

func handleStatus() {
	snapshot, err := Client.Status()
	if err != nil {
		log.Fatalf("Error fetching status: %v", err)
	}

	fmt.Println("\n--- SERVER STATUS ---")
	fmt.Printf("Server:  %s (%s)\n", snapshot.ServerName, snapshot.ServerID)
	fmt.Printf("Status:  %s\n", snapshot.Status)
	fmt.Printf("CPU:     %.1f%%\n", snapshot.Stats.CPUUsage)
	fmt.Printf("RAM:     %.1f%%\n", snapshot.Stats.RAMUsage)
	fmt.Printf("Players: %d/%d\n", snapshot.Stats.PlayersOnline, snapshot.Stats.PlayersMax)
	fmt.Printf("Uptime:  %s\n", snapshot.Stats.Uptime)
}

func handleAction(action string) {
	snapshot, err := Client.PerformAction(action)
	if err != nil {
		log.Fatalf("Error dispatching %s: %v", action, err)
	}
	fmt.Printf("%s accepted. Server is now %s\n", action, snapshot.Status)
}

func handleSystemStats() {
	stats, err := Client.SystemStats()
	if err != nil {
		log.Fatalf("Error fetching system stats: %v", err)
	}

	fmt.Println("\n--- DAEMON HOST ---")
	for _, key := range []string{"os", "arch", "cpu_usage", "memory_usage", "disk_usage", "uptime_seconds"} {
		if value, ok := stats[key]; ok {
			fmt.Printf("%-15s %v\n", key+":", value)
		}
	}
}

func handleSetMasterKey(tier, key string) {
	if err := Client.SetMasterKey(tier, key); err != nil {
		log.Fatalf("Error storing key: %v", err)
	}
	fmt.Printf("Master key for tier '%s' updated.\n", tier)
}
