//go:build !linux && !darwin && !windows

package deviceinfo

import (
	"context"
	"fmt"
	"runtime"
)

// queryNetworkName is not supported on this platform.
func queryNetworkName(context.Context) (string, error) {
	return "", fmt.Errorf("network name lookup is not supported on %s", runtime.GOOS)
}
