// Package ansiblelint enforces project-specific conventions on Ansible task
// files, currently that mode-like arguments are always strings.
package ansiblelint
