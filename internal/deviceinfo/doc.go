// Package deviceinfo reads battery and wireless network state from the host.
//
// Battery data comes from the battery library on every platform. The network
// name is taken from the platform's own tooling: nmcli on Linux, airport on
// macOS and netsh on Windows. Other platforms report no network.
package deviceinfo
