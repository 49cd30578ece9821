// Package mqtt opens broker sessions with paho.mqtt.golang.
//
// A Session is one connection: it never reconnects by itself. Reconnection,
// backoff and presence announcements belong to the caller, which keeps the
// policy testable with in-memory sessions.
//
// Every publish and subscription uses QoS 1.
package mqtt
