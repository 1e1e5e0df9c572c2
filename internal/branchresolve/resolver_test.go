package branchresolve_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jmunixusers/vmcfg/internal/branchresolve"
	"github.com/jmunixusers/vmcfg/internal/settings"
)

const (
	testCustomRemoteURLConstant              = "https://git.example.org/forks/cs-vm-build"
	testSystemReleaseConstant                = "vera"
	testChosenReleaseConstant                = "vanessa"
	testUnsupportedReleaseConstant           = "zara"
	testUnstableBranchConstant               = "main"
	testCaseNonDefaultRemoteConstant         = "non_default_remote_skips_validation"
	testCaseUnstableWarningConstant          = "unstable_branch_with_release_available"
	testCaseUnstableSuppressedConstant       = "unstable_warning_suppressed_by_flag"
	testCaseIncompatibleReleaseConstant      = "mismatched_codename_with_release_available"
	testCaseChosenUnavailableConstant        = "chosen_branch_missing_release_available"
	testCaseUnsupportedCodenameConstant      = "matching_unsupported_codename_warns"
	testCaseMismatchUnsupportedConstant      = "mismatched_codename_unsupported_system"
	testCaseNeitherBranchExistsConstant      = "mismatch_with_neither_branch_available"
	testCaseMatchingSupportedReleaseConstant = "matching_supported_release_passes"
	testCaseEmptySystemReleaseConstant       = "empty_system_release_skips_existence"
	testExpectedUnstableTitleConstant        = "Unstable release selected"
	testExpectedIncompatibleTitleConstant    = "Incompatible release"
	testExpectedUnavailableTitleConstant     = "Chosen release unavailable"
	testExpectedNotAvailableTitleConstant    = "Chosen release not available"
)

type stubRefChecker struct {
	advertisedBranches map[string]bool
	recordedQueries    []string
}

func (checker *stubRefChecker) BranchExists(executionContext context.Context, remoteURL string, branchName string) bool {
	checker.recordedQueries = append(checker.recordedQueries, branchName)
	return checker.advertisedBranches[branchName]
}

func buildSettings(chosenBranch string, chosenRemoteURL string, ignoreUnstable bool) settings.Settings {
	userSettings := settings.Default()
	userSettings.GitBranch = chosenBranch
	userSettings.GitURL = chosenRemoteURL
	userSettings.IgnoreUnstableWarning = ignoreUnstable
	return userSettings
}

func TestResolverResolve(testInstance *testing.T) {
	testCases := []struct {
		name                string
		systemRelease       string
		chosenBranch        string
		chosenRemoteURL     string
		ignoreUnstable      bool
		advertisedBranches  map[string]bool
		expectProceed       bool
		expectedWarning     string
		expectedRecommended branchresolve.Recommendation
	}{
		{
			name:               testCaseNonDefaultRemoteConstant,
			systemRelease:      testSystemReleaseConstant,
			chosenBranch:       testChosenReleaseConstant,
			chosenRemoteURL:    testCustomRemoteURLConstant,
			advertisedBranches: map[string]bool{},
			expectProceed:      true,
		},
		{
			name:               testCaseUnstableWarningConstant,
			systemRelease:      testSystemReleaseConstant,
			chosenBranch:       testUnstableBranchConstant,
			chosenRemoteURL:    settings.DefaultGitRemote,
			advertisedBranches: map[string]bool{testSystemReleaseConstant: true, testUnstableBranchConstant: true},
			expectProceed:      false,
			expectedWarning:    testExpectedUnstableTitleConstant,
			expectedRecommended: branchresolve.Recommendation{
				Release: testSystemReleaseConstant,
				URL:     settings.DefaultGitRemote,
			},
		},
		{
			name:               testCaseUnstableSuppressedConstant,
			systemRelease:      testSystemReleaseConstant,
			chosenBranch:       testUnstableBranchConstant,
			chosenRemoteURL:    settings.DefaultGitRemote,
			ignoreUnstable:     true,
			advertisedBranches: map[string]bool{testSystemReleaseConstant: true, testUnstableBranchConstant: true},
			expectProceed:      true,
		},
		{
			name:               testCaseIncompatibleReleaseConstant,
			systemRelease:      testSystemReleaseConstant,
			chosenBranch:       testChosenReleaseConstant,
			chosenRemoteURL:    settings.DefaultGitRemote,
			advertisedBranches: map[string]bool{testSystemReleaseConstant: true, testChosenReleaseConstant: true},
			expectProceed:      true,
			expectedWarning:    testExpectedIncompatibleTitleConstant,
			expectedRecommended: branchresolve.Recommendation{
				Release: testSystemReleaseConstant,
				URL:     settings.DefaultGitRemote,
			},
		},
		{
			name:               testCaseChosenUnavailableConstant,
			systemRelease:      testSystemReleaseConstant,
			chosenBranch:       "experimental",
			chosenRemoteURL:    settings.DefaultGitRemote,
			advertisedBranches: map[string]bool{testSystemReleaseConstant: true},
			expectProceed:      true,
			expectedWarning:    testExpectedUnavailableTitleConstant,
			expectedRecommended: branchresolve.Recommendation{
				Release: testSystemReleaseConstant,
				URL:     settings.DefaultGitRemote,
			},
		},
		{
			// A codename branch equal to an unsupported system release is
			// the only selection that reaches the "not available" rule.
			name:               testCaseUnsupportedCodenameConstant,
			systemRelease:      testUnsupportedReleaseConstant,
			chosenBranch:       testUnsupportedReleaseConstant,
			chosenRemoteURL:    settings.DefaultGitRemote,
			advertisedBranches: map[string]bool{},
			expectProceed:      true,
			expectedWarning:    testExpectedNotAvailableTitleConstant,
			expectedRecommended: branchresolve.Recommendation{
				Release: testUnstableBranchConstant,
				URL:     settings.DefaultGitRemote,
			},
		},
		{
			name:               testCaseMismatchUnsupportedConstant,
			systemRelease:      testUnsupportedReleaseConstant,
			chosenBranch:       testChosenReleaseConstant,
			chosenRemoteURL:    settings.DefaultGitRemote,
			advertisedBranches: map[string]bool{testChosenReleaseConstant: true},
			expectProceed:      true,
			expectedWarning:    testExpectedIncompatibleTitleConstant,
			expectedRecommended: branchresolve.Recommendation{
				Release: testUnstableBranchConstant,
				URL:     settings.DefaultGitRemote,
			},
		},
		{
			name:               testCaseNeitherBranchExistsConstant,
			systemRelease:      testUnsupportedReleaseConstant,
			chosenBranch:       "feature-tooling",
			chosenRemoteURL:    settings.DefaultGitRemote,
			advertisedBranches: map[string]bool{},
			expectProceed:      true,
			expectedWarning:    testExpectedUnavailableTitleConstant,
			expectedRecommended: branchresolve.Recommendation{
				Release: testUnstableBranchConstant,
				URL:     settings.DefaultGitRemote,
			},
		},
		{
			name:               testCaseMatchingSupportedReleaseConstant,
			systemRelease:      testSystemReleaseConstant,
			chosenBranch:       testSystemReleaseConstant,
			chosenRemoteURL:    settings.DefaultGitRemote,
			advertisedBranches: map[string]bool{testSystemReleaseConstant: true},
			expectProceed:      true,
		},
		{
			name:               testCaseEmptySystemReleaseConstant,
			systemRelease:      "",
			chosenBranch:       testUnstableBranchConstant,
			chosenRemoteURL:    settings.DefaultGitRemote,
			advertisedBranches: map[string]bool{testUnstableBranchConstant: true},
			expectProceed:      true,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			refChecker := &stubRefChecker{advertisedBranches: testCase.advertisedBranches}
			resolver := branchresolve.NewResolver(zap.NewNop(), refChecker, branchresolve.ResolverOptions{})

			userSettings := buildSettings(testCase.chosenBranch, testCase.chosenRemoteURL, testCase.ignoreUnstable)
			resolution := resolver.Resolve(context.Background(), userSettings, testCase.systemRelease)

			require.Equal(testInstance, testCase.chosenBranch, resolution.EffectiveBranch)
			require.Equal(testInstance, testCase.expectProceed, resolution.Proceed)

			if len(testCase.expectedWarning) == 0 {
				require.Nil(testInstance, resolution.Warning)
				return
			}

			require.NotNil(testInstance, resolution.Warning)
			require.Equal(testInstance, testCase.expectedWarning, resolution.Warning.Title)
			require.Equal(testInstance, testCase.expectedRecommended, resolution.Warning.Recommended)
		})
	}
}

func TestResolverSkipsRemoteChecksForNonDefaultRemote(testInstance *testing.T) {
	refChecker := &stubRefChecker{advertisedBranches: map[string]bool{}}
	resolver := branchresolve.NewResolver(zap.NewNop(), refChecker, branchresolve.ResolverOptions{})

	userSettings := buildSettings(testChosenReleaseConstant, testCustomRemoteURLConstant, false)
	resolution := resolver.Resolve(context.Background(), userSettings, testSystemReleaseConstant)

	require.True(testInstance, resolution.Proceed)
	require.Nil(testInstance, resolution.Warning)
	require.Empty(testInstance, refChecker.recordedQueries)
}

func TestResolverUnstableWarningIsSuppressible(testInstance *testing.T) {
	refChecker := &stubRefChecker{advertisedBranches: map[string]bool{
		testSystemReleaseConstant:  true,
		testUnstableBranchConstant: true,
	}}
	resolver := branchresolve.NewResolver(zap.NewNop(), refChecker, branchresolve.ResolverOptions{})

	userSettings := buildSettings(testUnstableBranchConstant, settings.DefaultGitRemote, false)
	resolution := resolver.Resolve(context.Background(), userSettings, testSystemReleaseConstant)

	require.NotNil(testInstance, resolution.Warning)
	require.True(testInstance, resolution.Warning.Suppressible())
	require.Equal(testInstance, settings.IgnoreUnstableWarningKey, resolution.Warning.SuppressibleKey)
}

func TestResolverPerformsAtMostTwoRemoteChecks(testInstance *testing.T) {
	refChecker := &stubRefChecker{advertisedBranches: map[string]bool{}}
	resolver := branchresolve.NewResolver(zap.NewNop(), refChecker, branchresolve.ResolverOptions{})

	userSettings := buildSettings(testChosenReleaseConstant, settings.DefaultGitRemote, false)
	resolver.Resolve(context.Background(), userSettings, testSystemReleaseConstant)

	require.LessOrEqual(testInstance, len(refChecker.recordedQueries), 2)
}
