package settings

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	parentCommandUseConstant            = "settings"
	parentCommandShortConstant          = "Inspect and update the persisted provisioning settings"
	showCommandUseConstant              = "show"
	showCommandShortConstant            = "Print the persisted settings document"
	setCommandUseConstant               = "set"
	setCommandShortConstant             = "Update persisted settings values"
	flagSettingsPathNameConstant        = "settings-path"
	flagSettingsPathUsageConstant       = "Override the persisted settings document location."
	flagBranchNameConstant              = "branch"
	flagBranchUsageConstant             = "Git branch to provision from."
	flagRemoteURLNameConstant           = "url"
	flagRemoteURLUsageConstant          = "Git remote URL to provision from."
	flagAddRoleNameConstant             = "add-role"
	flagAddRoleUsageConstant            = "Role tag to include in provisioning runs (repeatable)."
	flagRemoveRoleNameConstant          = "remove-role"
	flagRemoveRoleUsageConstant         = "Role tag to exclude from provisioning runs (repeatable)."
	flagAllowExperimentalNameConstant   = "allow-experimental"
	flagAllowExperimentalUsageConstant  = "Permit role tags outside the course catalog."
	flagResetWarningsNameConstant       = "reset-warnings"
	flagResetWarningsUsageConstant      = "Show previously suppressed warnings again."
	settingsRenderErrorTemplateConstant = "unable to render settings: %w"
	settingsDocumentIndentConstant      = "    "
	nothingToUpdateMessageConstant      = "no settings changes requested"
	settingsUpdatedTemplateConstant     = "Settings written to %s\n"
)

// CommandBuilder assembles the settings command tree.
type CommandBuilder struct {
	LoggerProvider func() *zap.Logger
	SettingsPath   string
}

// Build constructs the settings command with its show and set subcommands.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	parentCommand := &cobra.Command{
		Use:   parentCommandUseConstant,
		Short: parentCommandShortConstant,
		RunE: func(command *cobra.Command, arguments []string) error {
			return command.Help()
		},
	}
	parentCommand.PersistentFlags().String(flagSettingsPathNameConstant, builder.SettingsPath, flagSettingsPathUsageConstant)

	showCommand := &cobra.Command{
		Use:   showCommandUseConstant,
		Short: showCommandShortConstant,
		Args:  cobra.NoArgs,
		RunE:  builder.runShow,
	}
	parentCommand.AddCommand(showCommand)

	setCommand := &cobra.Command{
		Use:   setCommandUseConstant,
		Short: setCommandShortConstant,
		Args:  cobra.NoArgs,
		RunE:  builder.runSet,
	}
	setCommand.Flags().String(flagBranchNameConstant, "", flagBranchUsageConstant)
	setCommand.Flags().String(flagRemoteURLNameConstant, "", flagRemoteURLUsageConstant)
	setCommand.Flags().StringSlice(flagAddRoleNameConstant, nil, flagAddRoleUsageConstant)
	setCommand.Flags().StringSlice(flagRemoveRoleNameConstant, nil, flagRemoveRoleUsageConstant)
	setCommand.Flags().Bool(flagAllowExperimentalNameConstant, false, flagAllowExperimentalUsageConstant)
	setCommand.Flags().Bool(flagResetWarningsNameConstant, false, flagResetWarningsUsageConstant)
	parentCommand.AddCommand(setCommand)

	return parentCommand, nil
}

func (builder *CommandBuilder) runShow(command *cobra.Command, arguments []string) error {
	settingsStore := builder.resolveStore(command)
	userSettings := settingsStore.Load()

	documentBytes, marshalError := json.MarshalIndent(userSettings, "", settingsDocumentIndentConstant)
	if marshalError != nil {
		return fmt.Errorf(settingsRenderErrorTemplateConstant, marshalError)
	}

	fmt.Fprintln(command.OutOrStdout(), string(documentBytes))
	return nil
}

func (builder *CommandBuilder) runSet(command *cobra.Command, arguments []string) error {
	settingsStore := builder.resolveStore(command)
	userSettings := settingsStore.Load()

	changeCount := 0
	commandFlags := command.Flags()

	if commandFlags.Changed(flagBranchNameConstant) {
		branchValue, _ := commandFlags.GetString(flagBranchNameConstant)
		userSettings.GitBranch = strings.TrimSpace(branchValue)
		changeCount++
	}

	if commandFlags.Changed(flagRemoteURLNameConstant) {
		remoteURLValue, _ := commandFlags.GetString(flagRemoteURLNameConstant)
		userSettings.GitURL = strings.TrimSpace(remoteURLValue)
		changeCount++
	}

	addedRoles, _ := commandFlags.GetStringSlice(flagAddRoleNameConstant)
	for _, addedRole := range addedRoles {
		userSettings.AddRole(addedRole)
		changeCount++
	}

	removedRoles, _ := commandFlags.GetStringSlice(flagRemoveRoleNameConstant)
	for _, removedRole := range removedRoles {
		userSettings.RemoveRole(removedRole)
		changeCount++
	}

	if commandFlags.Changed(flagAllowExperimentalNameConstant) {
		allowExperimentalValue, _ := commandFlags.GetBool(flagAllowExperimentalNameConstant)
		userSettings.AllowExperimental = allowExperimentalValue
		changeCount++
	}

	if commandFlags.Changed(flagResetWarningsNameConstant) {
		resetWarningsValue, _ := commandFlags.GetBool(flagResetWarningsNameConstant)
		if resetWarningsValue {
			userSettings.IgnoreUnstableWarning = false
			changeCount++
		}
	}

	if changeCount == 0 {
		fmt.Fprintln(command.OutOrStdout(), nothingToUpdateMessageConstant)
		return nil
	}

	if saveError := settingsStore.Save(userSettings); saveError != nil {
		return saveError
	}

	fmt.Fprintf(command.OutOrStdout(), settingsUpdatedTemplateConstant, settingsStore.DocumentPath())
	return nil
}

func (builder *CommandBuilder) resolveStore(command *cobra.Command) *Store {
	settingsPathValue, _ := command.Flags().GetString(flagSettingsPathNameConstant)
	return NewStore(builder.resolveLogger(), settingsPathValue)
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
