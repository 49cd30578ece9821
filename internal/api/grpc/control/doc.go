// Package control implements the local gRPC control API of the agent.
//
// The service is small enough to be described by hand: every method takes
// and returns protobuf well-known types, so no generated code is needed.
// The caller's host and user travel as request metadata for the audit log.
package control
