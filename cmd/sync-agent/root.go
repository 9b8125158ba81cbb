package main

import "github.com/spf13/cobra"

var rootCmd = &cobra.Command{
	Use:   "sync-agent",
	Short: "Background image upload agent for the wardrobe matcher",
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(migrateCmd)
}
