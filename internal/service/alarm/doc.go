// Package alarm runs the locating alarm.
//
// Controller plays a sound through a Player at a growing volume until it is
// stopped. Each controller owns its cancellation, so several controllers can
// coexist (tests create one per case).
package alarm
