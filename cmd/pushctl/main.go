package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "pushctl",
	Short: "Webhook tester for the push notification relay",
	Long:  `A CLI tool to fire sample database-change payloads at a running webhook instance.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
