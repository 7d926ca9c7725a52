package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"mercator-hq/concierge/pkg/catalog"
	"mercator-hq/concierge/pkg/cli"
)

var catalogFlags struct {
	format string
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect and validate the template catalog",
}

var catalogValidateCmd = &cobra.Command{
	Use:   "validate [path]",
	Short: "Validate a catalog file",
	Long: `Validate a catalog file: YAML syntax, template placeholders, variable
declarations, persona styles, and template/persona references. Without a path
the configured catalog (or the built-in catalog) is validated.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCatalogValidate,
}

var catalogListCmd = &cobra.Command{
	Use:       "list [templates|personas]",
	Short:     "List catalog templates or personas",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"templates", "personas"},
	RunE:      runCatalogList,
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogValidateCmd, catalogListCmd)

	catalogListCmd.Flags().StringVar(&catalogFlags.format, "format", "text", "output format: text, json, csv")
}

func loadCatalog(args []string) (*catalog.Catalog, error) {
	if len(args) == 1 {
		return catalog.Load(args[0])
	}
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return catalog.LoadOrBuiltin(cfg.Catalog.Path)
}

func runCatalogValidate(cmd *cobra.Command, args []string) error {
	cat, err := loadCatalog(args)
	if err != nil {
		return cli.NewCommandError("catalog validate", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Catalog %s is valid\n  Templates: %d\n  Personas: %d\n  Version: %s\n",
		cat.Source, cat.Templates.Len(), cat.Personas.Len(), cat.Version)
	return nil
}

func runCatalogList(cmd *cobra.Command, args []string) error {
	formatter, err := cli.NewFormatter(cli.OutputFormat(catalogFlags.format))
	if err != nil {
		return err
	}
	cat, err := loadCatalog(nil)
	if err != nil {
		return cli.NewCommandError("catalog list", err)
	}

	f := cat.Export()
	if len(args) == 1 && args[0] == "personas" {
		if catalogFlags.format == string(cli.FormatJSON) {
			return formatter.FormatTo(cmd.OutOrStdout(), f.Personas)
		}
		return formatter.FormatTo(cmd.OutOrStdout(), personaTable(f.Personas))
	}
	if catalogFlags.format == string(cli.FormatJSON) {
		return formatter.FormatTo(cmd.OutOrStdout(), f.Templates)
	}
	return formatter.FormatTo(cmd.OutOrStdout(), templateTable(f.Templates))
}

type templateTable []catalog.Template

func (t templateTable) Header() []string {
	return []string{"ID", "KIND", "GUARDRAIL", "VARIABLES", "PERSONAS"}
}

func (t templateTable) Rows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, tmpl := range t {
		vars := make([]string, 0, len(tmpl.Variables))
		for _, v := range tmpl.Variables {
			name := v.Name
			if v.Required {
				name += "*"
			}
			vars = append(vars, name)
		}
		personas := "any"
		if len(tmpl.AllowedPersonas) > 0 {
			personas = strings.Join(tmpl.AllowedPersonas, ",")
		}
		rows = append(rows, []string{
			tmpl.ID,
			string(tmpl.Kind),
			tmpl.GuardrailLevel.String(),
			strings.Join(vars, ","),
			personas,
		})
	}
	return rows
}

type personaTable []catalog.Persona

func (t personaTable) Header() []string {
	return []string{"ID", "NAME", "TIER", "TONE", "FORMALITY", "LENGTH"}
}

func (t personaTable) Rows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, p := range t {
		rows = append(rows, []string{
			p.ID,
			p.Name,
			strconv.Itoa(p.KnowledgeTier),
			string(p.Style.Tone),
			string(p.Style.Formality),
			string(p.Style.Length),
		})
	}
	return rows
}
