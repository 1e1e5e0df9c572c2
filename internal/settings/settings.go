package settings

import (
	"slices"
	"strings"
)

const (
	// DefaultGitRemote is the canonical repository serving configuration playbooks.
	DefaultGitRemote = "https://github.com/jmunixusers/cs-vm-build"

	// BaseRole is always applied regardless of user selections.
	BaseRole = "common"

	// IgnoreUnstableWarningKey names the persisted flag suppressing the unstable branch warning.
	IgnoreUnstableWarningKey = "ignore_unstable_warning"
)

// Settings captures the persisted user preferences for provisioning runs.
type Settings struct {
	GitBranch             string   `json:"git_branch"`
	GitURL                string   `json:"git_url"`
	RolesAllTime          []string `json:"roles_all_time"`
	RolesThisRun          []string `json:"roles_this_run"`
	AllowExperimental     bool     `json:"allow_experimental"`
	IgnoreUnstableWarning bool     `json:"ignore_unstable_warning"`
}

// Default returns the baseline settings used when no document is persisted.
func Default() Settings {
	return Settings{
		GitBranch:    "",
		GitURL:       DefaultGitRemote,
		RolesAllTime: []string{BaseRole},
		RolesThisRun: []string{BaseRole},
	}
}

// Normalize deduplicates role selections, merges historic roles into the
// current run, and restores the base role invariant.
func (persistedSettings *Settings) Normalize() {
	persistedSettings.RolesAllTime = deduplicateRoles(persistedSettings.RolesAllTime)
	persistedSettings.RolesThisRun = deduplicateRoles(append(persistedSettings.RolesThisRun, persistedSettings.RolesAllTime...))
	persistedSettings.ensureBaseRole()
}

// AddRole includes the provided role tag in the current run selection.
func (persistedSettings *Settings) AddRole(roleTag string) {
	trimmedRole := strings.TrimSpace(roleTag)
	if len(trimmedRole) == 0 {
		return
	}
	if slices.Contains(persistedSettings.RolesThisRun, trimmedRole) {
		return
	}
	persistedSettings.RolesThisRun = append(persistedSettings.RolesThisRun, trimmedRole)
}

// RemoveRole drops the provided role tag from the current run selection. The
// base role cannot be removed.
func (persistedSettings *Settings) RemoveRole(roleTag string) {
	trimmedRole := strings.TrimSpace(roleTag)
	if trimmedRole == BaseRole {
		return
	}
	persistedSettings.RolesThisRun = slices.DeleteFunc(persistedSettings.RolesThisRun, func(candidateRole string) bool {
		return candidateRole == trimmedRole
	})
}

// ApplySuppression sets the persisted flag named by suppressibleKey and
// reports whether the key was recognized.
func (persistedSettings *Settings) ApplySuppression(suppressibleKey string) bool {
	switch suppressibleKey {
	case IgnoreUnstableWarningKey:
		persistedSettings.IgnoreUnstableWarning = true
		return true
	default:
		return false
	}
}

// foldRolesForPersistence merges the current run selection into the historic
// role set so both survive across invocations.
func (persistedSettings *Settings) foldRolesForPersistence() {
	persistedSettings.RolesThisRun = deduplicateRoles(persistedSettings.RolesThisRun)
	persistedSettings.RolesAllTime = deduplicateRoles(append(persistedSettings.RolesAllTime, persistedSettings.RolesThisRun...))
	persistedSettings.ensureBaseRole()
}

func (persistedSettings *Settings) ensureBaseRole() {
	if !slices.Contains(persistedSettings.RolesThisRun, BaseRole) {
		persistedSettings.RolesThisRun = append(persistedSettings.RolesThisRun, BaseRole)
	}
	slices.Sort(persistedSettings.RolesThisRun)
	slices.Sort(persistedSettings.RolesAllTime)
}

func deduplicateRoles(roleTags []string) []string {
	deduplicated := make([]string, 0, len(roleTags))
	seenRoles := make(map[string]struct{}, len(roleTags))
	for _, roleTag := range roleTags {
		trimmedRole := strings.TrimSpace(roleTag)
		if len(trimmedRole) == 0 {
			continue
		}
		if _, alreadySeen := seenRoles[trimmedRole]; alreadySeen {
			continue
		}
		seenRoles[trimmedRole] = struct{}{}
		deduplicated = append(deduplicated, trimmedRole)
	}
	return deduplicated
}
