package branchresolve

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/jmunixusers/vmcfg/internal/settings"
)

const (
	// DefaultUnstableBranch is the development branch that tracks unreleased changes.
	DefaultUnstableBranch = "main"

	unstableWarningTitleConstant         = "Unstable release selected"
	incompatibleWarningTitleConstant     = "Incompatible release"
	unavailableWarningTitleConstant      = "Chosen release unavailable"
	notAvailableWarningTitleConstant     = "Chosen release not available"
	recommendationSuffixTemplateConstant = " Consider changing your settings to match the following:\nRelease: %s\nURL: %s"
	unstableWarningBodyTemplateConstant  = "You have selected the unstable development branch (%s) of the configuration tool. It is recommended to use the release branch that corresponds to your system release."
	incompatibleWarningBodyConstant      = "You have selected a version of the configuration tool meant for a different release. It is recommended to switch to the release branch that corresponds to your system release."
	unavailableWarningBodyConstant       = "You have selected a release of the configuration tool that does not exist at the git URL you have specified. It is recommended to switch to the release branch that corresponds to your system release."
	notAvailableWarningBodyConstant      = "You have selected a release of the configuration tool that does not exist at the git URL you have specified; however, your current system release is not yet supported. It is recommended to switch to the development branch."
	unsupportedSystemWarningBodyConstant = "You have selected a version of the configuration tool meant for a different release; however, your system release is not fully supported at this time. It is recommended to switch to the development branch."
	neitherAvailableWarningBodyConstant  = "You have selected a version of the configuration tool that does not support your system release, and no release supporting your system is available yet. It is recommended to switch to the development branch."
	nonDefaultRemoteMessageConstant      = "skipping branch validation for non-default remote"
	resolutionDecidedMessageConstant     = "branch settings resolved"
	logFieldChosenRemoteConstant         = "chosen_remote"
	logFieldChosenBranchConstant         = "chosen_branch"
	logFieldSystemReleaseConstant        = "system_release"
	logFieldWarningTitleConstant         = "warning_title"
	logFieldProceedConstant              = "proceed"
)

// codenamePattern is the release codename heuristic: a lowercase word ending
// in "a", matching the historical naming of supported distribution releases.
// Its looseness is intentional and carried over from the original tool.
var codenamePattern = regexp.MustCompile(`^[a-z]+a$`)

// RefChecker reports whether a branch exists on a remote. Implementations
// must return false rather than fail on network or process errors.
type RefChecker interface {
	BranchExists(executionContext context.Context, remoteURL string, branchName string) bool
}

// Recommendation carries the branch and remote a warning suggests switching to.
type Recommendation struct {
	Release string
	URL     string
}

// Warning describes a problem with the selected branch settings.
type Warning struct {
	Title           string
	Message         string
	SuppressibleKey string
	Recommended     Recommendation
}

// Suppressible reports whether acknowledging the warning may persist a flag
// that prevents it from appearing again.
func (warning Warning) Suppressible() bool {
	return len(warning.SuppressibleKey) > 0
}

// Resolution is the outcome of validating the selected branch settings.
type Resolution struct {
	EffectiveBranch string
	Warning         *Warning
	Proceed         bool
}

// Resolver evaluates branch selections against the default remote.
type Resolver struct {
	logger           *zap.Logger
	refChecker       RefChecker
	defaultRemoteURL string
	unstableBranch   string
}

// ResolverOptions adjusts resolver defaults.
type ResolverOptions struct {
	DefaultRemoteURL string
	UnstableBranch   string
}

// NewResolver constructs a Resolver using the provided ref checker.
func NewResolver(logger *zap.Logger, refChecker RefChecker, options ResolverOptions) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}

	defaultRemoteURL := strings.TrimSpace(options.DefaultRemoteURL)
	if len(defaultRemoteURL) == 0 {
		defaultRemoteURL = settings.DefaultGitRemote
	}

	unstableBranch := strings.TrimSpace(options.UnstableBranch)
	if len(unstableBranch) == 0 {
		unstableBranch = DefaultUnstableBranch
	}

	return &Resolver{
		logger:           logger,
		refChecker:       refChecker,
		defaultRemoteURL: defaultRemoteURL,
		unstableBranch:   unstableBranch,
	}
}

// InitialBranch picks a starting branch for settings that have none
// persisted: the system release when it exists on the default remote,
// otherwise the unstable development branch.
func (resolver *Resolver) InitialBranch(executionContext context.Context, systemReleaseName string) string {
	trimmedReleaseName := strings.TrimSpace(systemReleaseName)
	if len(trimmedReleaseName) > 0 && resolver.refChecker.BranchExists(executionContext, resolver.defaultRemoteURL, trimmedReleaseName) {
		return trimmedReleaseName
	}
	return resolver.unstableBranch
}

// Resolve validates the persisted settings against the detected system
// release and reports the effective branch plus any warning to display.
func (resolver *Resolver) Resolve(executionContext context.Context, userSettings settings.Settings, systemReleaseName string) Resolution {
	chosenBranch := userSettings.GitBranch
	chosenRemoteURL := userSettings.GitURL

	if chosenRemoteURL != resolver.defaultRemoteURL {
		resolver.logger.Debug(
			nonDefaultRemoteMessageConstant,
			zap.String(logFieldChosenRemoteConstant, chosenRemoteURL),
		)
		return Resolution{EffectiveBranch: chosenBranch, Proceed: true}
	}

	systemExists := false
	if len(strings.TrimSpace(systemReleaseName)) > 0 {
		systemExists = resolver.refChecker.BranchExists(executionContext, chosenRemoteURL, systemReleaseName)
	}

	if chosenBranch == resolver.unstableBranch && systemExists && !userSettings.IgnoreUnstableWarning {
		resolution := Resolution{
			EffectiveBranch: chosenBranch,
			Proceed:         false,
			Warning: &Warning{
				Title:           unstableWarningTitleConstant,
				Message:         composeWarningMessage(fmt.Sprintf(unstableWarningBodyTemplateConstant, resolver.unstableBranch), systemReleaseName, chosenRemoteURL),
				SuppressibleKey: settings.IgnoreUnstableWarningKey,
				Recommended:     Recommendation{Release: systemReleaseName, URL: chosenRemoteURL},
			},
		}
		resolver.logResolution(userSettings, systemReleaseName, resolution)
		return resolution
	}

	branchMismatch := systemReleaseName != chosenBranch
	looksVersioned := codenamePattern.MatchString(chosenBranch)
	chosenExists := resolver.refChecker.BranchExists(executionContext, chosenRemoteURL, chosenBranch)

	var advisoryWarning *Warning
	switch {
	case branchMismatch && looksVersioned && systemExists:
		advisoryWarning = &Warning{
			Title:       incompatibleWarningTitleConstant,
			Message:     composeWarningMessage(incompatibleWarningBodyConstant, systemReleaseName, chosenRemoteURL),
			Recommended: Recommendation{Release: systemReleaseName, URL: chosenRemoteURL},
		}
	case systemExists && !chosenExists:
		advisoryWarning = &Warning{
			Title:       unavailableWarningTitleConstant,
			Message:     composeWarningMessage(unavailableWarningBodyConstant, systemReleaseName, resolver.defaultRemoteURL),
			Recommended: Recommendation{Release: systemReleaseName, URL: resolver.defaultRemoteURL},
		}
	case looksVersioned && !branchMismatch && !chosenExists:
		advisoryWarning = &Warning{
			Title:       notAvailableWarningTitleConstant,
			Message:     composeWarningMessage(notAvailableWarningBodyConstant, resolver.unstableBranch, chosenRemoteURL),
			Recommended: Recommendation{Release: resolver.unstableBranch, URL: chosenRemoteURL},
		}
	case branchMismatch && looksVersioned && !systemExists:
		advisoryWarning = &Warning{
			Title:       incompatibleWarningTitleConstant,
			Message:     composeWarningMessage(unsupportedSystemWarningBodyConstant, resolver.unstableBranch, chosenRemoteURL),
			Recommended: Recommendation{Release: resolver.unstableBranch, URL: chosenRemoteURL},
		}
	case branchMismatch && !systemExists && !chosenExists:
		advisoryWarning = &Warning{
			Title:       unavailableWarningTitleConstant,
			Message:     composeWarningMessage(neitherAvailableWarningBodyConstant, resolver.unstableBranch, chosenRemoteURL),
			Recommended: Recommendation{Release: resolver.unstableBranch, URL: chosenRemoteURL},
		}
	}

	resolution := Resolution{
		EffectiveBranch: chosenBranch,
		Warning:         advisoryWarning,
		Proceed:         true,
	}
	resolver.logResolution(userSettings, systemReleaseName, resolution)
	return resolution
}

func (resolver *Resolver) logResolution(userSettings settings.Settings, systemReleaseName string, resolution Resolution) {
	warningTitle := ""
	if resolution.Warning != nil {
		warningTitle = resolution.Warning.Title
	}
	resolver.logger.Debug(
		resolutionDecidedMessageConstant,
		zap.String(logFieldChosenBranchConstant, userSettings.GitBranch),
		zap.String(logFieldSystemReleaseConstant, systemReleaseName),
		zap.String(logFieldWarningTitleConstant, warningTitle),
		zap.Bool(logFieldProceedConstant, resolution.Proceed),
	)
}

func composeWarningMessage(warningBody string, recommendedRelease string, recommendedURL string) string {
	return warningBody + fmt.Sprintf(recommendationSuffixTemplateConstant, recommendedRelease, recommendedURL)
}
