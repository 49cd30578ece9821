// Package audio loads the alarm sound and plays it.
//
// Sounds are shipped encrypted with age: an asset "alarm.wav" lives on disk
// as "alarm.wav.age" and is opened with the X25519 identity from the
// configured key file. Decrypted WAV data is decoded once into memory and
// played through the system speaker with beep.
package audio
