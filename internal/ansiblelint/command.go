package ansiblelint

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	commandUseConstant              = "lint-modes"
	commandShortDescriptionConstant = "Check that task file modes are strings"
	commandLongDescriptionConstant  = "lint-modes walks the role task files and reports every mode-like argument whose value is not a quoted string."

	flagRootNameConstant  = "root"
	flagRootUsageConstant = "Repository root containing the roles."

	defaultRootConstant = "."

	findingRenderTemplateConstant = "%s: %s: %s\n"
	lintSummaryTemplateConstant   = "%d mode findings"
)

// CommandBuilder assembles the Cobra command linting task modes.
type CommandBuilder struct {
	LoggerProvider func() *zap.Logger
}

// Build constructs the lint-modes command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandUseConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		Args:  cobra.NoArgs,
		RunE:  builder.run,
	}

	command.Flags().String(flagRootNameConstant, defaultRootConstant, flagRootUsageConstant)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	rootValue, _ := command.Flags().GetString(flagRootNameConstant)

	linter := NewLinter(builder.resolveLogger())
	findings, lintError := linter.LintTree(rootValue)
	if lintError != nil {
		return lintError
	}

	for _, finding := range findings {
		fmt.Fprintf(command.ErrOrStderr(), findingRenderTemplateConstant, finding.File, finding.TaskName, finding.Message)
	}

	if len(findings) > 0 {
		return fmt.Errorf(lintSummaryTemplateConstant, len(findings))
	}

	return nil
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}
	logger := builder.LoggerProvider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
