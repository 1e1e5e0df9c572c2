// Package osrelease detects the release codename of the running distribution.
//
// It parses /etc/os-release style key=value descriptor files and surfaces the
// VERSION_CODENAME field, returning an empty string when no codename can be
// detected.
package osrelease
