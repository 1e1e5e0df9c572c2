package labeler

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	commandUseConstant              = "labeler"
	commandShortDescriptionConstant = "Generate the GitHub labeler configuration"
	commandLongDescriptionConstant  = "labeler reads the provisioning playbook and writes the pull request labeler configuration derived from its roles and tags."

	flagPlaybookNameConstant  = "playbook"
	flagPlaybookUsageConstant = "Playbook whose roles drive the labels."
	flagOutputNameConstant    = "output"
	flagOutputUsageConstant   = "Destination for the generated labeler configuration."

	configWrittenTemplateConstant = "Labeler configuration written to %s\n"
)

// CommandBuilder assembles the Cobra command generating labeler config.
type CommandBuilder struct {
	LoggerProvider func() *zap.Logger
}

// Build constructs the labeler command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandUseConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		Args:  cobra.NoArgs,
		RunE:  builder.run,
	}

	command.Flags().String(flagPlaybookNameConstant, DefaultPlaybookPath, flagPlaybookUsageConstant)
	command.Flags().String(flagOutputNameConstant, DefaultConfigPath, flagOutputUsageConstant)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	playbookValue, _ := command.Flags().GetString(flagPlaybookNameConstant)
	outputValue, _ := command.Flags().GetString(flagOutputNameConstant)

	generator := NewGenerator(builder.resolveLogger())
	if writeError := generator.WriteConfig(playbookValue, outputValue); writeError != nil {
		return writeError
	}

	fmt.Fprintf(command.OutOrStdout(), configWrittenTemplateConstant, outputValue)
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
