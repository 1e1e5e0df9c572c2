// Package labeler generates the GitHub labeler configuration from the roles
// and tags declared in the provisioning playbook.
package labeler
