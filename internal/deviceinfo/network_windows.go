//go:build windows

package deviceinfo

import "context"

// queryNetworkName reads the SSID of the first connected WLAN interface.
func queryNetworkName(ctx context.Context) (string, error) {
	out, err := run(ctx, "netsh", "wlan", "show", "interfaces")
	if err != nil {
		return "", err
	}

	return parseSSIDField(out)
}
