// Package gitremote inspects branches published on remote git repositories.
//
// It lists remote branch refs through git ls-remote and exposes an existence
// check that treats every process or network failure as "branch does not
// exist". A TCP connectivity probe is provided for callers that want to fail
// fast before consulting the remote.
package gitremote
