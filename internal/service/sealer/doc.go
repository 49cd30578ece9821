// Package sealer prepares encrypted alarm sounds for the agent.
//
// It creates the age identity on first use, checks that the sound decodes
// and writes the encrypted asset where the agent looks for it.
package sealer
