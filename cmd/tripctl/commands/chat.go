package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/FACorreiaa/go-trip-itinerary-planner/internal/api/conversation"
	"github.com/FACorreiaa/go-trip-itinerary-planner/internal/api/planner"
	"github.com/FACorreiaa/go-trip-itinerary-planner/internal/api/session"
	"github.com/FACorreiaa/go-trip-itinerary-planner/internal/container"
)

var chatPlan bool

var ChatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Collect trip requirements in an interactive conversation",
	Long: `Starts a conversation that asks for destination, duration, interests,
budget, travel style and group size until everything is known, then prints the
trip intent. With --plan the itinerary is planned right away, which needs the
Postgres catalog. Type "exit" to quit.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}

		var chat conversation.Service
		var plan planner.Service
		if chatPlan {
			cfg.Repositories.Redis.Address = ""
			c, err := container.NewContainer(cmd.Context(), &cfg, logger)
			if err != nil {
				return err
			}
			defer c.Close()
			chat, plan = c.ConversationService, c.PlannerService
		} else {
			c := container.Build(&cfg, container.Collaborators{
				LLM:      optionalLLM(cmd.Context(), cfg.LLM, logger),
				Sessions: session.NewMemoryStore(time.Minute),
			}, logger)
			chat = c.ConversationService
		}
		return runChat(cmd, chat, plan)
	},
}

func runChat(cmd *cobra.Command, chat conversation.Service, plan planner.Service) error {
	out := cmd.OutOrStdout()
	in := bufio.NewScanner(cmd.InOrStdin())
	sessionID := uuid.NewString()

	fmt.Fprintln(out, "Where would you like to go? (type \"exit\" to quit)")
	for {
		fmt.Fprint(out, "> ")
		if !in.Scan() {
			if err := in.Err(); err != nil && !errors.Is(err, io.EOF) {
				return err
			}
			return nil
		}
		line := strings.TrimSpace(in.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}

		reply, err := chat.CollectTurn(cmd.Context(), sessionID, line)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, reply.Reply)
		if !reply.Done {
			continue
		}

		if reply.Intent != nil {
			if err := writeJSON(out, reply.Intent); err != nil {
				return err
			}
		}
		if plan != nil {
			it, err := plan.PlanSession(cmd.Context(), sessionID)
			if err != nil {
				return fmt.Errorf("planning failed: %w", err)
			}
			renderItinerary(out, it)
		}
		return nil
	}
}

func init() {
	ChatCmd.Flags().BoolVar(&chatPlan, "plan", false, "plan the itinerary once every requirement is collected")
}
