// Package branchresolve validates the remote/branch pair selected for a
// provisioning run.
//
// Given the detected system release codename, the persisted user settings, and
// a collaborator that can check whether branches exist on a remote, the
// resolver decides which branch to use, whether a warning should be shown, and
// whether the caller may continue without further prompting. Validation only
// applies to the default remote; nothing can be assumed about branches on
// other remotes.
package branchresolve
