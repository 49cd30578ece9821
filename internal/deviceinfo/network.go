package deviceinfo

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// run executes a platform tool and returns its standard output.
func run(ctx context.Context, name string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}

	return string(out), nil
}

// parseNmcli extracts the active SSID from `nmcli -t -f active,ssid dev wifi`.
// Terse mode escapes ':' and '\' inside values with a backslash.
func parseNmcli(out string) (string, error) {
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		active, ssid, ok := strings.Cut(strings.TrimSpace(scanner.Text()), ":")
		if !ok || active != "yes" {
			continue
		}

		ssid = strings.NewReplacer(`\:`, ":", `\\`, `\`).Replace(ssid)
		if ssid != "" {
			return ssid, nil
		}
	}

	return "", ErrNotConnected
}

// parseSSIDField extracts the value of the "SSID" line from `key : value` output,
// as printed by `airport -I` and `netsh wlan show interfaces`. BSSID lines are skipped.
func parseSSIDField(out string) (string, error) {
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), ":")
		if !ok || strings.TrimSpace(key) != "SSID" {
			continue
		}

		if value = strings.TrimSpace(value); value != "" {
			return value, nil
		}
	}

	return "", ErrNotConnected
}
