package provision

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jmunixusers/vmcfg/internal/branchresolve"
	"github.com/jmunixusers/vmcfg/internal/execshell"
	"github.com/jmunixusers/vmcfg/internal/gitremote"
	"github.com/jmunixusers/vmcfg/internal/osrelease"
	"github.com/jmunixusers/vmcfg/internal/settings"
	"github.com/jmunixusers/vmcfg/internal/ui"
)

const (
	commandUseConstant              = "run"
	commandShortDescriptionConstant = "Provision the machine with ansible-pull"
	commandLongDescriptionConstant  = "run validates the branch settings, persists them, and provisions the machine by running ansible-pull with the selected role tags."

	flagRoleNameConstant                 = "role"
	flagRoleUsageConstant                = "Role tag to provision in this run (repeatable)."
	flagAcknowledgeNameConstant          = "acknowledge-warnings"
	flagAcknowledgeUsageConstant         = "Proceed past blocking warnings without prompting."
	flagSuppressNameConstant             = "suppress-warnings"
	flagSuppressUsageConstant            = "Never show the acknowledged warning again."
	flagSettingsPathNameConstant         = "settings-path"
	flagSettingsPathUsageConstant        = "Override the persisted settings document location."
	warningRenderTemplateConstant        = "%s\n%s\n"
	acknowledgeRequiredTemplateConstant  = "warning requires acknowledgement, re-run with --%s: %s"
	unknownRoleTemplateConstant          = "unknown role tag %s; pass --allow-experimental via the settings command to use experimental roles"
	provisioningFailedTemplateConstant   = "provisioning failed: %s"
	suppressionPersistTemplateConstant   = "unable to persist warning suppression: %w"
	configurationConnectivityKeyConstant = "connectivity_target"
)

// Configuration captures the provisioning options read from the config file.
type Configuration struct {
	ConnectivityTarget string `mapstructure:"connectivity_target"`
}

// DefaultConfiguration returns the provisioning defaults.
func DefaultConfiguration() Configuration {
	return Configuration{ConnectivityTarget: gitremote.DefaultConnectivityTarget}
}

// DefaultConfigurationValues exposes the provisioning defaults for the
// configuration loader keyed beneath rootKey.
func DefaultConfigurationValues(rootKey string) map[string]any {
	defaults := DefaultConfiguration()
	return map[string]any{
		rootKey + "." + configurationConnectivityKeyConstant: defaults.ConnectivityTarget,
	}
}

// CommandBuilder assembles the Cobra command running ansible-pull.
type CommandBuilder struct {
	LoggerProvider        func() *zap.Logger
	ConfigurationProvider func() Configuration
	PullExecutor          PullExecutor
	ConnectivityProber    ConnectivityProber
	BranchChecker         BranchChecker
	SettingsPath          string
	ReleaseFile           string
}

// Build constructs the run command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandUseConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		Args:  cobra.NoArgs,
		RunE:  builder.run,
	}

	command.Flags().StringSlice(flagRoleNameConstant, nil, flagRoleUsageConstant)
	command.Flags().Bool(flagAcknowledgeNameConstant, false, flagAcknowledgeUsageConstant)
	command.Flags().Bool(flagSuppressNameConstant, false, flagSuppressUsageConstant)
	command.Flags().String(flagSettingsPathNameConstant, builder.SettingsPath, flagSettingsPathUsageConstant)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	logger := builder.resolveLogger()

	shellExecutor, executorError := builder.resolveShellExecutor(logger)
	if executorError != nil {
		return executorError
	}

	remoteClient := gitremote.NewClient(logger, shellExecutor)
	branchChecker := builder.resolveBranchChecker(remoteClient)

	settingsPathValue, _ := command.Flags().GetString(flagSettingsPathNameConstant)
	settingsStore := settings.NewStore(logger, settingsPathValue)
	userSettings := settingsStore.Load()

	if roleError := builder.applyRoleSelections(command, &userSettings); roleError != nil {
		return roleError
	}

	systemReleaseName := osrelease.NewDetector(logger, builder.ReleaseFile).ReleaseName()

	resolver := branchresolve.NewResolver(logger, branchChecker, branchresolve.ResolverOptions{})
	if len(userSettings.GitBranch) == 0 {
		userSettings.GitBranch = resolver.InitialBranch(command.Context(), systemReleaseName)
	}

	resolution := resolver.Resolve(command.Context(), userSettings, systemReleaseName)
	if resolution.Warning != nil {
		fmt.Fprintf(command.ErrOrStderr(), warningRenderTemplateConstant, resolution.Warning.Title, resolution.Warning.Message)
	}

	decision := branchresolve.NewDecision(resolution)
	if decision.State() == branchresolve.DecisionStateAwaiting {
		acknowledgeValue, _ := command.Flags().GetBool(flagAcknowledgeNameConstant)
		if !acknowledgeValue {
			return fmt.Errorf(acknowledgeRequiredTemplateConstant, flagAcknowledgeNameConstant, resolution.Warning.Title)
		}

		suppressValue, _ := command.Flags().GetBool(flagSuppressNameConstant)
		if suppressionKey, persistSuppression := decision.Acknowledge(suppressValue); persistSuppression {
			userSettings.ApplySuppression(suppressionKey)
			if saveError := settingsStore.Save(userSettings); saveError != nil {
				return fmt.Errorf(suppressionPersistTemplateConstant, saveError)
			}
		}
	}

	runner := NewRunner(
		logger,
		builder.resolvePullExecutor(shellExecutor),
		builder.resolveConnectivityProber(remoteClient),
		branchChecker,
		settingsStore,
		RunnerOptions{ConnectivityTarget: builder.connectivityTarget()},
	)

	runReport, runError := runner.Run(command.Context(), userSettings)
	if runError != nil {
		return runError
	}

	fmt.Fprintln(command.OutOrStdout(), runReport.Message)
	if !runReport.Succeeded() {
		return fmt.Errorf(provisioningFailedTemplateConstant, runReport.Message)
	}

	return nil
}

// applyRoleSelections adds --role tags to the run after checking them against
// the course catalog. Unknown tags are allowed only for experimental setups.
func (builder *CommandBuilder) applyRoleSelections(command *cobra.Command, userSettings *settings.Settings) error {
	selectedRoles, _ := command.Flags().GetStringSlice(flagRoleNameConstant)
	for _, selectedRole := range selectedRoles {
		trimmedRole := strings.TrimSpace(selectedRole)
		if len(trimmedRole) == 0 {
			continue
		}

		_, isCatalogTag := CourseForTag(trimmedRole)
		if !isCatalogTag && trimmedRole != settings.BaseRole && !userSettings.AllowExperimental {
			return fmt.Errorf(unknownRoleTemplateConstant, trimmedRole)
		}

		userSettings.AddRole(trimmedRole)
	}
	return nil
}

func (builder *CommandBuilder) connectivityTarget() string {
	if builder.ConfigurationProvider == nil {
		return ""
	}
	return builder.ConfigurationProvider().ConnectivityTarget
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

func (builder *CommandBuilder) resolveShellExecutor(logger *zap.Logger) (*execshell.ShellExecutor, error) {
	shellExecutor, creationError := execshell.NewShellExecutor(logger, execshell.NewOSCommandRunner())
	if creationError != nil {
		return nil, creationError
	}
	shellExecutor.SetEventObserver(ui.NewConsoleCommandEventLogger(logger))
	return shellExecutor, nil
}

func (builder *CommandBuilder) resolvePullExecutor(shellExecutor *execshell.ShellExecutor) PullExecutor {
	if builder.PullExecutor != nil {
		return builder.PullExecutor
	}
	return shellExecutor
}

func (builder *CommandBuilder) resolveConnectivityProber(remoteClient *gitremote.Client) ConnectivityProber {
	if builder.ConnectivityProber != nil {
		return builder.ConnectivityProber
	}
	return remoteClient
}

func (builder *CommandBuilder) resolveBranchChecker(remoteClient *gitremote.Client) BranchChecker {
	if builder.BranchChecker != nil {
		return builder.BranchChecker
	}
	return remoteClient
}
