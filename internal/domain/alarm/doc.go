// Package alarm contains the domain model of the locating alarm.
//
// Ramp describes how the alarm grows louder over time and validates its
// parameters. Session is the observable state of one controller: idle or
// ringing, the current volume and how many times the sound has played.
package alarm
