// Package agent runs the device agent.
//
// ConnectionManager keeps the broker session alive: it registers the will,
// connects, announces presence, subscribes and reconnects with exponential
// backoff. Inbound messages are decoded and handed to the dispatcher from a
// single goroutine, so commands are handled one at a time in arrival order.
//
// Run wires the manager with configuration, device info, the alarm and the
// local control API.
package agent
