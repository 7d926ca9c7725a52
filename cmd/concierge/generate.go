package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/concierge/pkg/cli"
	"mercator-hq/concierge/pkg/conversation"
)

var generateFlags struct {
	template    string
	persona     string
	session     string
	contextFile string
	vars        map[string]string
	compact     bool
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Render one prompt and print the result as JSON",
	Long: `Render one prompt for a template, persona, and conversation.

The conversation context is read as JSON from --context (use "-" for stdin).
--var values are merged over it and take precedence. The full result,
including guardrail and escalation metadata, is printed as JSON. Generation
never fails: on error the fallback prompt is returned with the error kind in
metadata.

The configured session store and audit trail are updated as in the server.

Examples:
  concierge generate -t customer_greeting -p tier1_customer_service --var customer_name=Jane

  echo '{"session_id":"s-1","topic":"billing","message_count":3}' | \
    concierge generate -t billing_inquiry -p tier1_customer_service --context -`,
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringVarP(&generateFlags.template, "template", "t", "", "template ID (required)")
	generateCmd.Flags().StringVarP(&generateFlags.persona, "persona", "p", "", "persona ID (required)")
	generateCmd.Flags().StringVar(&generateFlags.session, "session", "", "session ID (overrides the context file)")
	generateCmd.Flags().StringVar(&generateFlags.contextFile, "context", "", "conversation context JSON file, or - for stdin")
	generateCmd.Flags().StringToStringVar(&generateFlags.vars, "var", nil, "template variable as key=value (repeatable)")
	generateCmd.Flags().BoolVar(&generateFlags.compact, "compact", false, "print compact JSON")
	generateCmd.MarkFlagRequired("template")
	generateCmd.MarkFlagRequired("persona")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	conv, err := readConversation(generateFlags.contextFile, cmd.InOrStdin())
	if err != nil {
		return cli.NewConfigError("context", "%v", err)
	}
	if generateFlags.session != "" {
		if conv == nil {
			conv = &conversation.Context{}
		}
		conv.SessionID = generateFlags.session
	}

	comp, err := openComponents(cfg, logger, nil)
	if err != nil {
		return cli.NewCommandError("generate", err)
	}
	engine, err := comp.newEngine(comp.catalog)
	if err != nil {
		comp.Close()
		return cli.NewCommandError("generate", err)
	}

	res := engine.Generate(cmd.Context(), generateFlags.template, generateFlags.persona, conv, stringVars(generateFlags.vars))

	// Close before printing so the audit record is flushed.
	if err := comp.Close(); err != nil {
		logger.Warn("failed to close components", "error", err)
	}

	formatter := &cli.JSONFormatter{Indent: !generateFlags.compact}
	return formatter.FormatTo(cmd.OutOrStdout(), res)
}

// readConversation decodes a conversation context from path, or from stdin
// when path is "-". An empty path yields a nil context.
func readConversation(path string, stdin io.Reader) (*conversation.Context, error) {
	if path == "" {
		return nil, nil
	}

	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var conv conversation.Context
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&conv); err != nil {
		return nil, fmt.Errorf("invalid conversation context: %w", err)
	}
	return &conv, nil
}

func stringVars(vars map[string]string) map[string]any {
	if len(vars) == 0 {
		return nil
	}
	out := make(map[string]any, len(vars))
	for k, v := range vars {
		out[k] = v
	}
	return out
}
