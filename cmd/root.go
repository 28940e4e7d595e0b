/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "eventhub",
	Short: "Event listing platform backend and client tooling",
	Long: `eventhub is the API server and client tooling for the event
listing platform. Run "eventhub server" to start the HTTP API,
"eventhub indexes" to bootstrap database indexes, or
"eventhub browse" to list events from a running server.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
