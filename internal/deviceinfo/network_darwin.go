//go:build darwin

package deviceinfo

import "context"

const airportPath = "/System/Library/PrivateFrameworks/Apple80211.framework/Versions/Current/Resources/airport"

// queryNetworkName reads the SSID from the airport utility.
func queryNetworkName(ctx context.Context) (string, error) {
	out, err := run(ctx, airportPath, "-I")
	if err != nil {
		return "", err
	}

	return parseSSIDField(out)
}
