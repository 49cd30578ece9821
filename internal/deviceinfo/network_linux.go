//go:build linux

package deviceinfo

import "context"

// queryNetworkName asks NetworkManager for the active wireless network.
func queryNetworkName(ctx context.Context) (string, error) {
	out, err := run(ctx, "nmcli", "-t", "-f", "active,ssid", "dev", "wifi")
	if err != nil {
		return "", err
	}

	return parseNmcli(out)
}
