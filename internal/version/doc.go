// Package version exposes build metadata set through -ldflags.
package version
