// Package main provides the entry point for the pressroom HTTP server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "pressroom",
	Short: "Automated content generation and publishing service",
	Long:  "Pressroom turns scheduled trigger webhooks into AI-generated, quality-gated articles published to WordPress and cross-post targets, with per-user token accounting.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
