// Package command defines the JSON messages exchanged over the broker:
// inbound command envelopes, the status reply and presence announcements.
package command
