package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/FACorreiaa/go-trip-itinerary-planner/cmd/tripctl/commands"
)

var rootCmd = &cobra.Command{
	Use:   "tripctl",
	Short: "tripctl - plan multi-day trips from the terminal",
	Long: `tripctl talks to the itinerary planner without the HTTP server.
It can parse a free-text request into a trip intent, plan an itinerary
from an intent file against the place catalog, or collect requirements
in an interactive chat.`,
	SilenceUsage: true,
}

func main() {
	_ = godotenv.Load()

	rootCmd.PersistentFlags().StringVar(&commands.Mode, "mode", "", "log mode: development (colour) or production (JSON); defaults to config")
	rootCmd.PersistentFlags().BoolVarP(&commands.Quiet, "quiet", "q", false, "only log warnings and errors")

	rootCmd.AddCommand(commands.ParseIntentCmd)
	rootCmd.AddCommand(commands.PlanCmd)
	rootCmd.AddCommand(commands.ChatCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
