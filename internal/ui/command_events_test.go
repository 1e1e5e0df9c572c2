package ui_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/jmunixusers/vmcfg/internal/execshell"
	"github.com/jmunixusers/vmcfg/internal/ui"
)

const (
	testWorkingDirectoryConstant = "/home/student"
)

func pullCommand() execshell.ShellCommand {
	return execshell.ShellCommand{
		Name: execshell.CommandPkexec,
		Details: execshell.CommandDetails{
			Arguments:        []string{"ansible-pull", "--purge"},
			WorkingDirectory: testWorkingDirectoryConstant,
		},
	}
}

func TestCommandEventFormatterMessages(testInstance *testing.T) {
	formatter := ui.CommandEventFormatter{}
	command := pullCommand()

	require.Equal(
		testInstance,
		"Running pkexec ansible-pull --purge (in /home/student)",
		formatter.BuildStartedMessage(command),
	)
	require.Equal(
		testInstance,
		"Completed pkexec ansible-pull --purge (in /home/student)",
		formatter.BuildSuccessMessage(command),
	)
	require.Equal(
		testInstance,
		"pkexec ansible-pull --purge (in /home/student) failed with exit code 2: boom",
		formatter.BuildFailureMessage(command, execshell.ExecutionResult{ExitCode: 2, StandardError: "boom"}),
	)
	require.Equal(
		testInstance,
		"pkexec ansible-pull --purge (in /home/student) failed: spawn error",
		formatter.BuildExecutionFailureMessage(command, errors.New("spawn error")),
	)
}

func TestConsoleCommandEventLoggerLevels(testInstance *testing.T) {
	observedCore, observedLogs := observer.New(zapcore.DebugLevel)
	eventLogger := ui.NewConsoleCommandEventLogger(zap.New(observedCore))
	command := pullCommand()

	eventLogger.CommandStarted(command)
	eventLogger.CommandCompleted(command, execshell.ExecutionResult{ExitCode: 0})
	eventLogger.CommandCompleted(command, execshell.ExecutionResult{ExitCode: 2})
	eventLogger.CommandExecutionFailed(command, errors.New("spawn error"))

	loggedEntries := observedLogs.All()
	require.Len(testInstance, loggedEntries, 4)
	require.Equal(testInstance, zapcore.InfoLevel, loggedEntries[0].Level)
	require.Equal(testInstance, zapcore.InfoLevel, loggedEntries[1].Level)
	require.Equal(testInstance, zapcore.WarnLevel, loggedEntries[2].Level)
	require.Equal(testInstance, zapcore.ErrorLevel, loggedEntries[3].Level)
}
