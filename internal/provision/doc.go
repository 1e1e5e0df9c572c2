// Package provision runs ansible-pull with the tags selected in the user's
// settings, after verifying connectivity and the existence of the chosen
// branch on the chosen remote.
package provision
