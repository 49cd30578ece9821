// Package common holds helpers shared by the CLI commands.
//
// It provides a gRPC client for the agent control API with call timeouts,
// and detection of the current system actor (hostname/username) for the
// agent's audit log.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
