package branchresolve

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jmunixusers/vmcfg/internal/execshell"
	"github.com/jmunixusers/vmcfg/internal/gitremote"
	"github.com/jmunixusers/vmcfg/internal/osrelease"
	"github.com/jmunixusers/vmcfg/internal/settings"
)

const (
	commandUseConstant              = "resolve"
	commandShortDescriptionConstant = "Validate the configured branch against the default remote"
	commandLongDescriptionConstant  = "resolve checks the persisted branch and remote settings against the detected system release and reports whether provisioning may proceed."

	flagSettingsPathNameConstant  = "settings-path"
	flagSettingsPathUsageConstant = "Override the persisted settings document location."

	resolutionBranchTemplateConstant  = "Branch: %s\n"
	resolutionRemoteTemplateConstant  = "Remote: %s\n"
	resolutionReleaseTemplateConstant = "System release: %s\n"
	resolutionProceedTemplateConstant = "Proceed: %t\n"
	warningRenderTemplateConstant     = "\n%s\n%s\n"
)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the Cobra command reporting branch resolutions.
type CommandBuilder struct {
	LoggerProvider LoggerProvider
	RefChecker     RefChecker
	SettingsPath   string
	ReleaseFile    string
}

// Build constructs the resolve command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandUseConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		Args:  cobra.NoArgs,
		RunE:  builder.run,
	}

	command.Flags().String(flagSettingsPathNameConstant, builder.SettingsPath, flagSettingsPathUsageConstant)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	logger := builder.resolveLogger()

	refChecker, checkerError := builder.resolveRefChecker(logger)
	if checkerError != nil {
		return checkerError
	}

	settingsPathValue, _ := command.Flags().GetString(flagSettingsPathNameConstant)
	settingsStore := settings.NewStore(logger, settingsPathValue)
	userSettings := settingsStore.Load()

	systemReleaseName := osrelease.NewDetector(logger, builder.ReleaseFile).ReleaseName()

	resolver := NewResolver(logger, refChecker, ResolverOptions{})
	if len(userSettings.GitBranch) == 0 {
		userSettings.GitBranch = resolver.InitialBranch(command.Context(), systemReleaseName)
	}

	resolution := resolver.Resolve(command.Context(), userSettings, systemReleaseName)

	outputWriter := command.OutOrStdout()
	fmt.Fprintf(outputWriter, resolutionBranchTemplateConstant, resolution.EffectiveBranch)
	fmt.Fprintf(outputWriter, resolutionRemoteTemplateConstant, userSettings.GitURL)
	fmt.Fprintf(outputWriter, resolutionReleaseTemplateConstant, systemReleaseName)
	fmt.Fprintf(outputWriter, resolutionProceedTemplateConstant, resolution.Proceed)
	if resolution.Warning != nil {
		fmt.Fprintf(outputWriter, warningRenderTemplateConstant, resolution.Warning.Title, resolution.Warning.Message)
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

func (builder *CommandBuilder) resolveRefChecker(logger *zap.Logger) (RefChecker, error) {
	if builder.RefChecker != nil {
		return builder.RefChecker, nil
	}

	shellExecutor, creationError := execshell.NewShellExecutor(logger, execshell.NewOSCommandRunner())
	if creationError != nil {
		return nil, creationError
	}

	return gitremote.NewClient(logger, shellExecutor), nil
}
