// Package settings persists per-user configuration for the VM provisioning
// tool.
//
// Settings are stored as a JSON document in the user's configuration
// directory. Loading is non-fatal: missing or corrupt documents fall back to
// defaults. The base role "common" is always part of the roles selected for a
// run, and role lists are treated as sets.
package settings
