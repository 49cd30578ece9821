// Package dispatcher routes decoded command envelopes to their handlers.
package dispatcher
