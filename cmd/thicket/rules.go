package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/jward/thicket"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the available rules and their configured severity",
	Args:  cobra.NoArgs,
	RunE:  runRules,
}

func runRules(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return outputError("rules", err)
	}
	proj, err := loadProject(cwd)
	if err != nil {
		return outputError("rules", err)
	}
	engine, err := proj.newEngine("", nil)
	if err != nil {
		return outputError("rules", err)
	}
	defer engine.Close()

	rules := rulesToCLI(engine)
	total := len(rules)
	return outputResult(CLIResult{Command: "rules", Results: rules, TotalCount: &total})
}

func rulesToCLI(engine *thicket.Engine) []CLIRule {
	all := engine.Rules()
	out := make([]CLIRule, 0, len(all))
	for _, a := range all {
		out = append(out, CLIRule{
			Name:     a.Name,
			Language: a.Language,
			Severity: a.Severity.String(),
			Enabled:  engine.RuleEnabled(a.Name),
			Doc:      a.Doc,
		})
	}
	return out
}
