package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/FACorreiaa/go-trip-itinerary-planner/internal/container"
	"github.com/FACorreiaa/go-trip-itinerary-planner/internal/types"
)

var (
	planIntentFile string
	planText       string
	planFormat     string
)

var PlanCmd = &cobra.Command{
	Use:   "plan",
	Short: "Plan an itinerary against the place catalog",
	Long: `Plans an itinerary from an intent JSON file (--intent, "-" for stdin) or from
free text (--text). Needs the Postgres catalog from the configuration; sessions
stay in process.`,
	Example: `  tripctl plan --text "我想去宜蘭三天"
  tripctl parse-intent "three days in Yilan" | tripctl plan --intent - --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if (planIntentFile == "") == (planText == "") {
			return errors.New("exactly one of --intent or --text is required")
		}
		if planFormat != "text" && planFormat != "json" {
			return fmt.Errorf("unknown format %q", planFormat)
		}
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		cfg.Repositories.Redis.Address = ""

		c, err := container.NewContainer(cmd.Context(), &cfg, logger)
		if err != nil {
			return err
		}
		defer c.Close()
		if !c.WaitForDB(cmd.Context()) {
			return errors.New("database is not reachable")
		}

		var tripIntent types.TripIntent
		if planText != "" {
			tripIntent = c.IntentService.ExtractIntent(cmd.Context(), planText).Intent
		} else {
			tripIntent, err = readIntent(cmd.InOrStdin(), planIntentFile)
			if err != nil {
				return err
			}
		}

		it, err := c.PlannerService.PlanTrip(cmd.Context(), tripIntent)
		if err != nil {
			return fmt.Errorf("planning failed: %w", err)
		}
		if planFormat == "json" {
			return writeJSON(cmd.OutOrStdout(), it)
		}
		renderItinerary(cmd.OutOrStdout(), it)
		return nil
	},
}

// readIntent accepts a bare intent or the output of parse-intent.
func readIntent(stdin io.Reader, path string) (types.TripIntent, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return types.TripIntent{}, fmt.Errorf("failed to read intent: %w", err)
	}

	var wrapped struct {
		Intent *types.TripIntent `json:"intent"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.Intent != nil {
		return *wrapped.Intent, nil
	}
	var tripIntent types.TripIntent
	if err := json.Unmarshal(data, &tripIntent); err != nil {
		return types.TripIntent{}, fmt.Errorf("failed to decode intent %s: %w", strings.TrimSpace(path), err)
	}
	return tripIntent, nil
}

func init() {
	PlanCmd.Flags().StringVarP(&planIntentFile, "intent", "i", "", "intent JSON file, - for stdin")
	PlanCmd.Flags().StringVarP(&planText, "text", "t", "", "free-text trip request")
	PlanCmd.Flags().StringVarP(&planFormat, "format", "f", "text", "output format: text or json")
}
