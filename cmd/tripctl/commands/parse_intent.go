package commands

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/FACorreiaa/go-trip-itinerary-planner/internal/api/intent"
)

var parseRulesOnly bool

var ParseIntentCmd = &cobra.Command{
	Use:     "parse-intent [text...]",
	Aliases: []string{"parse"},
	Short:   "Turn a free-text trip request into a trip intent",
	Long: `Parses a request such as "我想去宜蘭三天" or "two relaxed days in Taipei"
into the structured trip intent the planner consumes. The LLM is used when
GOOGLE_GEMINI_API_KEY is set, with the rule parser as fallback.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.TrimSpace(strings.Join(args, " "))
		if text == "" {
			return errors.New("text must not be empty")
		}
		cfg, logger, err := setup()
		if err != nil {
			return err
		}

		svc := intent.NewService(nil, logger)
		if !parseRulesOnly {
			svc = intent.NewService(optionalLLM(cmd.Context(), cfg.LLM, logger), logger)
		}
		return writeJSON(cmd.OutOrStdout(), svc.ExtractIntent(cmd.Context(), text))
	},
}

func init() {
	ParseIntentCmd.Flags().BoolVar(&parseRulesOnly, "rules", false, "skip the LLM and use the rule parser only")
}
