package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/pressroom/internal/trigger"
)

var signCmd = &cobra.Command{
	Use:   "sign [payload-file]",
	Short: "Sign a trigger payload for manual webhook testing",
	Long:  `Compute the webhook signature for a JSON payload using TRIGGER_SIGNING_KEY, so a trigger can be fired by hand with curl. Reads stdin when no file is given.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSign,
}

func init() {
	rootCmd.AddCommand(signCmd)
}

func runSign(_ *cobra.Command, args []string) error {
	key := os.Getenv("TRIGGER_SIGNING_KEY")
	if key == "" {
		return fmt.Errorf("TRIGGER_SIGNING_KEY environment variable is required")
	}

	var (
		body []byte
		err  error
	)
	if len(args) == 1 {
		body, err = os.ReadFile(args[0])
	} else {
		body, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		return fmt.Errorf("failed to read payload: %w", err)
	}

	fmt.Println(trigger.Sign(body, key))
	return nil
}
