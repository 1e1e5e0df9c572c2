package gitremote

import (
	"context"
	"net"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jmunixusers/vmcfg/internal/execshell"
)

const (
	// DefaultConnectivityTarget is probed before remote branch validation runs.
	DefaultConnectivityTarget = "github.com:443"

	lsRemoteSubcommandConstant          = "ls-remote"
	headsFlagConstant                   = "--heads"
	refPathSeparatorConstant            = "/"
	connectivityDialNetworkConstant     = "tcp"
	connectivityDialTimeoutConstant     = 2 * time.Second
	remoteListingFailedMessageConstant  = "unable to list remote branches"
	remoteBranchesListedMessageConstant = "remote branches listed"
	logFieldRemoteURLConstant           = "remote_url"
	logFieldBranchesConstant            = "branches"
	logFieldBranchNameConstant          = "branch"
)

// GitExecutor runs git commands on behalf of the client.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// Client answers branch existence questions for remote repositories.
type Client struct {
	logger      *zap.Logger
	gitExecutor GitExecutor
}

// NewClient constructs a Client around the provided git executor.
func NewClient(logger *zap.Logger, gitExecutor GitExecutor) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{logger: logger, gitExecutor: gitExecutor}
}

// ListRemoteBranches returns the branch names advertised by the remote.
func (client *Client) ListRemoteBranches(executionContext context.Context, remoteURL string) ([]string, error) {
	listingDetails := execshell.CommandDetails{
		Arguments: []string{lsRemoteSubcommandConstant, headsFlagConstant, remoteURL},
	}

	executionResult, executionError := client.gitExecutor.ExecuteGit(executionContext, listingDetails)
	if executionError != nil {
		return nil, executionError
	}

	branchNames := parseBranchNames(executionResult.StandardOutput)

	client.logger.Debug(
		remoteBranchesListedMessageConstant,
		zap.String(logFieldRemoteURLConstant, remoteURL),
		zap.Strings(logFieldBranchesConstant, branchNames),
	)

	return branchNames, nil
}

// BranchExists reports whether the named branch is advertised by the remote.
// Any listing failure is treated as the branch not existing.
func (client *Client) BranchExists(executionContext context.Context, remoteURL string, branchName string) bool {
	branchNames, listingError := client.ListRemoteBranches(executionContext, remoteURL)
	if listingError != nil {
		client.logger.Debug(
			remoteListingFailedMessageConstant,
			zap.String(logFieldRemoteURLConstant, remoteURL),
			zap.String(logFieldBranchNameConstant, branchName),
			zap.Error(listingError),
		)
		return false
	}

	for _, advertisedBranch := range branchNames {
		if advertisedBranch == branchName {
			return true
		}
	}

	return false
}

// ProbeConnectivity dials the provided host:port target and reports whether a
// connection could be established.
func (client *Client) ProbeConnectivity(executionContext context.Context, connectivityTarget string) error {
	dialer := net.Dialer{Timeout: connectivityDialTimeoutConstant}
	connection, dialError := dialer.DialContext(executionContext, connectivityDialNetworkConstant, connectivityTarget)
	if dialError != nil {
		return dialError
	}
	return connection.Close()
}

// parseBranchNames extracts the trailing ref component from ls-remote output lines.
func parseBranchNames(listingOutput string) []string {
	branchNames := []string{}
	for _, outputLine := range strings.Split(listingOutput, "\n") {
		trimmedLine := strings.TrimSpace(outputLine)
		if len(trimmedLine) == 0 {
			continue
		}
		refComponents := strings.Split(trimmedLine, refPathSeparatorConstant)
		branchNames = append(branchNames, refComponents[len(refComponents)-1])
	}
	return branchNames
}
