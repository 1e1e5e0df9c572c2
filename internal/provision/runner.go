package provision

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/jmunixusers/vmcfg/internal/execshell"
	"github.com/jmunixusers/vmcfg/internal/gitremote"
	"github.com/jmunixusers/vmcfg/internal/settings"
)

const (
	pullURLFlagConstant       = "--url"
	pullCheckoutFlagConstant  = "--checkout"
	pullPurgeFlagConstant     = "--purge"
	pullInventoryFlagConstant = "--inventory"
	pullInventoryNameConstant = "hosts"
	pullTagsFlagConstant      = "--tags"
	pullTagsSeparatorConstant = ","

	offlineMessageConstant = "unable to access the Internet"

	branchUnavailableTemplateConstant = "branch %s does not exist at %s"

	successMessageTemplateConstant = "Your machine has been configured for: %s"
	authDismissedMessageConstant   = "Unable to authenticate due to the dialog being closed. Please try again."
	authFailedMessageConstant      = "Unable to authenticate due to an incorrect password or insufficient permissions. Please try again."
	pullFailedMessageTemplate      = "There was an error while running the configuration tasks. Please try again.\nIf this issue continues to occur, copy /opt/vmtools/logs/last_run.log and create an issue at %s"

	provisioningStartedMessageConstant   = "running ansible-pull"
	provisioningFinishedMessageConstant  = "ansible-pull finished"
	settingsPersistFailedMessageConstant = "unable to persist settings before provisioning"
	logFieldTagsConstant                 = "tags"
	logFieldBranchConstant               = "branch"
	logFieldRemoteURLConstant            = "remote_url"
	logFieldOutcomeConstant              = "outcome"
	logFieldExitCodeConstant             = "exit_code"
)

// pkexec is documented to exit with 126 when its dialog is dismissed and 127
// when authentication fails; the raw wait statuses 32256 and 32512 have been
// observed for the same two scenarios and are accepted until they can be
// retired.
const (
	exitCodeSuccessConstant              = 0
	exitCodeAuthDismissedConstant        = 126
	exitCodeAuthDismissedRawWaitConstant = 32256
	exitCodeAuthFailedConstant           = 127
	exitCodeAuthFailedRawWaitConstant    = 32512
)

// ErrOffline indicates the connectivity pre-check failed.
var ErrOffline = errors.New(offlineMessageConstant)

// BranchUnavailableError indicates the configured branch is not advertised by
// the configured remote.
type BranchUnavailableError struct {
	Branch    string
	RemoteURL string
}

// Error describes the missing branch.
func (failure BranchUnavailableError) Error() string {
	return fmt.Sprintf(branchUnavailableTemplateConstant, failure.Branch, failure.RemoteURL)
}

// Outcome classifies how a provisioning run ended.
type Outcome int

// Provisioning outcomes in order of decreasing success.
const (
	OutcomeSucceeded Outcome = iota
	OutcomeAuthDialogDismissed
	OutcomeAuthFailed
	OutcomeProvisioningFailed
)

// Report summarizes a completed provisioning run for presentation.
type Report struct {
	Outcome  Outcome
	ExitCode int
	Tags     []string
	Message  string
}

// Succeeded reports whether the provisioning run completed without error.
func (report Report) Succeeded() bool {
	return report.Outcome == OutcomeSucceeded
}

// PullExecutor runs ansible-pull with elevation.
type PullExecutor interface {
	ExecuteAnsiblePull(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// ConnectivityProber verifies the network is reachable before provisioning.
type ConnectivityProber interface {
	ProbeConnectivity(executionContext context.Context, connectivityTarget string) error
}

// BranchChecker verifies the chosen branch exists on the chosen remote.
type BranchChecker interface {
	BranchExists(executionContext context.Context, remoteURL string, branchName string) bool
}

// SettingsWriter persists the settings used for a run so they survive it.
type SettingsWriter interface {
	Save(userSettings settings.Settings) error
}

// Runner orchestrates a provisioning run: connectivity pre-check, branch
// existence check, settings persistence, then the elevated ansible-pull.
type Runner struct {
	logger             *zap.Logger
	pullExecutor       PullExecutor
	connectivityProber ConnectivityProber
	branchChecker      BranchChecker
	settingsWriter     SettingsWriter
	connectivityTarget string
	workingDirectory   string
}

// RunnerOptions adjusts runner defaults.
type RunnerOptions struct {
	ConnectivityTarget string
	WorkingDirectory   string
}

// NewRunner constructs a Runner from its collaborators.
func NewRunner(
	logger *zap.Logger,
	pullExecutor PullExecutor,
	connectivityProber ConnectivityProber,
	branchChecker BranchChecker,
	settingsWriter SettingsWriter,
	options RunnerOptions,
) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}

	connectivityTarget := strings.TrimSpace(options.ConnectivityTarget)
	if len(connectivityTarget) == 0 {
		connectivityTarget = gitremote.DefaultConnectivityTarget
	}

	workingDirectory := options.WorkingDirectory
	if len(workingDirectory) == 0 {
		homeDirectory, homeLookupError := os.UserHomeDir()
		if homeLookupError == nil {
			workingDirectory = homeDirectory
		}
	}

	return &Runner{
		logger:             logger,
		pullExecutor:       pullExecutor,
		connectivityProber: connectivityProber,
		branchChecker:      branchChecker,
		settingsWriter:     settingsWriter,
		connectivityTarget: connectivityTarget,
		workingDirectory:   workingDirectory,
	}
}

// PullArguments builds the ansible-pull argument list for the provided settings.
func PullArguments(userSettings settings.Settings) []string {
	return []string{
		pullURLFlagConstant, userSettings.GitURL,
		pullCheckoutFlagConstant, userSettings.GitBranch,
		pullPurgeFlagConstant,
		pullInventoryFlagConstant, pullInventoryNameConstant,
		pullTagsFlagConstant, strings.Join(userSettings.RolesThisRun, pullTagsSeparatorConstant),
	}
}

// Run executes a provisioning run with the provided settings. Pre-check
// failures return an error without a report; once ansible-pull has been
// spawned, the run always produces a classified report.
func (runner *Runner) Run(executionContext context.Context, userSettings settings.Settings) (Report, error) {
	userSettings.Normalize()

	if connectivityError := runner.connectivityProber.ProbeConnectivity(executionContext, runner.connectivityTarget); connectivityError != nil {
		return Report{}, fmt.Errorf("%w: %v", ErrOffline, connectivityError)
	}

	if !runner.branchChecker.BranchExists(executionContext, userSettings.GitURL, userSettings.GitBranch) {
		return Report{}, BranchUnavailableError{Branch: userSettings.GitBranch, RemoteURL: userSettings.GitURL}
	}

	if persistError := runner.settingsWriter.Save(userSettings); persistError != nil {
		runner.logger.Warn(settingsPersistFailedMessageConstant, zap.Error(persistError))
	}

	runner.logger.Info(
		provisioningStartedMessageConstant,
		zap.Strings(logFieldTagsConstant, userSettings.RolesThisRun),
		zap.String(logFieldBranchConstant, userSettings.GitBranch),
		zap.String(logFieldRemoteURLConstant, userSettings.GitURL),
	)

	pullDetails := execshell.CommandDetails{
		Arguments:        PullArguments(userSettings),
		WorkingDirectory: runner.workingDirectory,
	}

	executionResult, executionError := runner.pullExecutor.ExecuteAnsiblePull(executionContext, pullDetails)
	if executionError != nil {
		var commandFailure execshell.CommandFailedError
		if !errors.As(executionError, &commandFailure) {
			return Report{}, executionError
		}
		executionResult = commandFailure.Result
	}

	runReport := classifyExit(executionResult.ExitCode, userSettings)

	runner.logger.Info(
		provisioningFinishedMessageConstant,
		zap.Int(logFieldExitCodeConstant, runReport.ExitCode),
		zap.Int(logFieldOutcomeConstant, int(runReport.Outcome)),
	)

	return runReport, nil
}

func classifyExit(exitCode int, userSettings settings.Settings) Report {
	runReport := Report{ExitCode: exitCode, Tags: userSettings.RolesThisRun}

	switch exitCode {
	case exitCodeSuccessConstant:
		runReport.Outcome = OutcomeSucceeded
		runReport.Message = fmt.Sprintf(successMessageTemplateConstant, strings.Join(userSettings.RolesThisRun, pullTagsSeparatorConstant))
	case exitCodeAuthDismissedConstant, exitCodeAuthDismissedRawWaitConstant:
		runReport.Outcome = OutcomeAuthDialogDismissed
		runReport.Message = authDismissedMessageConstant
	case exitCodeAuthFailedConstant, exitCodeAuthFailedRawWaitConstant:
		runReport.Outcome = OutcomeAuthFailed
		runReport.Message = authFailedMessageConstant
	default:
		runReport.Outcome = OutcomeProvisioningFailed
		runReport.Message = fmt.Sprintf(pullFailedMessageTemplate, userSettings.GitURL)
	}

	return runReport
}
