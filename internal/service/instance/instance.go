// Package instance keeps a single agent running per machine.
//
// The agent owns its control API address, so binding it is the lock.
// The process table only helps to name the likely holder.
package instance

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"

	ps "github.com/mitchellh/go-ps"

	"github.com/oshokin/mqtt-stat/internal/logger"
)

// ErrAlreadyRunning is returned when the control address is taken by another agent.
var ErrAlreadyRunning = errors.New("another agent instance is already running")

// Guard claims the control API address for the current process.
type Guard struct {
	// listen binds the address.
	listen func(ctx context.Context, network, address string) (net.Listener, error)
	// processes lists the running processes.
	processes func() ([]ps.Process, error)
	// pid is the current process id.
	pid int
}

// NewGuard returns a guard for the current process.
func NewGuard() *Guard {
	lc := net.ListenConfig{}

	return &Guard{
		listen:    lc.Listen,
		processes: ps.Processes,
		pid:       os.Getpid(),
	}
}

// Acquire binds address and returns the listener for the control API.
// When the bind fails and another process runs the same executable, the error
// wraps ErrAlreadyRunning and names those processes. Other processes of the
// same executable never block startup on their own: the CLI subcommands share it.
func (g *Guard) Acquire(ctx context.Context, address string) (net.Listener, error) {
	lis, err := g.listen(ctx, "tcp", address)
	if err == nil {
		return lis, nil
	}

	bindErr := fmt.Errorf("listen on %s: %w", address, err)

	pids, lookupErr := g.siblings()
	if lookupErr != nil {
		logger.DebugKV(ctx, "Could not inspect running processes", "error", lookupErr)

		return nil, bindErr
	}

	if len(pids) == 0 {
		return nil, bindErr
	}

	logger.WarnKV(ctx, "Control address is taken, another agent is probably running", "address", address, "pids", pids)

	return nil, fmt.Errorf("%w (pids %v): %w", ErrAlreadyRunning, pids, bindErr)
}

// siblings returns the pids of other processes running the current executable.
func (g *Guard) siblings() ([]int, error) {
	processes, err := g.processes()
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}

	var executable string

	for _, p := range processes {
		if p.Pid() == g.pid {
			executable = p.Executable()

			break
		}
	}

	if executable == "" {
		return nil, nil
	}

	var pids []int

	for _, p := range processes {
		if p.Pid() != g.pid && p.Executable() == executable {
			pids = append(pids, p.Pid())
		}
	}

	return pids, nil
}
