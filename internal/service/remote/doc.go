// Package remote drives a running agent through its local control API.
//
// It backs the stop, find and status subcommands.
package remote
