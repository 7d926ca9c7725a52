package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"mercator-hq/concierge/pkg/catalog"
	"mercator-hq/concierge/pkg/cli"
	"mercator-hq/concierge/pkg/conversation"
	"mercator-hq/concierge/pkg/synthesis"
	"mercator-hq/concierge/pkg/synthesis/guardrails"
)

var guardFlags struct {
	level           string
	tier            int
	escalationLevel int
	failOnViolation bool
}

var errGuardrailsFailed = errors.New("guardrails failed")

var guardCmd = &cobra.Command{
	Use:   "guard [text]",
	Short: "Evaluate text against the guardrails",
	Long: `Evaluate text against the content-safety, compliance, and capability
guardrails and print the result as JSON. Text is read from the arguments, or
from stdin when none are given.

Examples:
  concierge guard "you should buy this stock now"
  concierge guard --level high --tier 2 < reply.txt
  concierge guard --fail-on-violation "reset the server for me"`,
	RunE: runGuard,
}

func init() {
	rootCmd.AddCommand(guardCmd)

	guardCmd.Flags().StringVar(&guardFlags.level, "level", "medium", "risk level the text is checked at (low, medium, high, critical)")
	guardCmd.Flags().IntVar(&guardFlags.tier, "tier", 1, "agent knowledge tier")
	guardCmd.Flags().IntVar(&guardFlags.escalationLevel, "escalation-level", 0, "conversation escalation level")
	guardCmd.Flags().BoolVar(&guardFlags.failOnViolation, "fail-on-violation", false, "exit non-zero when the text fails")
}

func runGuard(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	level, err := guardrails.ParseRiskLevel(guardFlags.level)
	if err != nil {
		return cli.NewConfigError("level", "%v", err)
	}

	text := strings.Join(args, " ")
	if len(args) == 0 {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return cli.NewCommandError("guard", err)
		}
		text = string(data)
	}

	cat, err := catalog.LoadOrBuiltin(cfg.Catalog.Path)
	if err != nil {
		return cli.NewCommandError("guard", err)
	}
	engine, err := synthesis.New(synthesis.Options{
		Catalog:    cat,
		Engine:     &cfg.Engine,
		Guardrails: &cfg.Guardrails,
		Logger:     logger,
	})
	if err != nil {
		return cli.NewCommandError("guard", err)
	}

	conv := &conversation.Context{
		AgentTier:       guardFlags.tier,
		EscalationLevel: guardFlags.escalationLevel,
	}
	res := engine.EvaluateGuardrails(cmd.Context(), text, level, conv)

	if err := (&cli.JSONFormatter{Indent: true}).FormatTo(cmd.OutOrStdout(), res); err != nil {
		return err
	}
	if guardFlags.failOnViolation && !res.Passed {
		return cli.NewCommandError("guard", fmt.Errorf("%w at %s risk", errGuardrailsFailed, res.RiskLevel))
	}
	return nil
}
