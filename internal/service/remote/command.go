package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap/zapcore"
	"google.golang.org/protobuf/encoding/protojson"

	"github.com/oshokin/mqtt-stat/internal/config"
	"github.com/oshokin/mqtt-stat/internal/logger"
	"github.com/oshokin/mqtt-stat/internal/service/common"
)

// Action selects what to ask the agent.
type Action int

const (
	// ActionStop stops a ringing alarm.
	ActionStop Action = iota
	// ActionFind starts the alarm.
	ActionFind
	// ActionStatus prints the agent status.
	ActionStatus
)

// Options configures a single control API call.
type Options struct {
	// ConfigPath to YAML settings file, defaults to standard filename if empty.
	ConfigPath string
	// Address overrides the control address from config when specified.
	Address string
	// Action is the call to make.
	Action Action
	// Wait keeps retrying every second until the agent answers.
	Wait bool
	// Quiet drops log output below warnings.
	Quiet bool
	// Output receives the status document, defaults to stdout.
	Output io.Writer
}

// retryInterval is the delay between attempts when Wait is set.
const retryInterval = 1 * time.Second

var errUnknownAction = errors.New("unknown action")

// Run connects to the agent and performs the requested action.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "mqtt-stat-remote")

	if opts.Quiet {
		quiet := logger.FromContext(ctx).WithOptions(logger.WithLevel(zapcore.WarnLevel))
		ctx = logger.ToContext(ctx, quiet)
	}

	address := opts.Address
	timeout := config.DefaultTimeout

	if address == "" {
		cfg, err := config.Load(opts.ConfigPath)
		if err != nil {
			return err
		}

		address = cfg.Control.Address
		timeout = cfg.Control.Timeout
	}

	actor, err := common.DetectActor()
	if err != nil {
		return err
	}

	client, err := common.Dial(ctx, address, common.WithCallTimeout(timeout), common.WithActor(actor))
	if err != nil {
		return err
	}

	defer func() {
		_ = client.Close()
	}()

	logger.DebugKV(ctx, "Calling agent", "address", address, "actor", actor.String())

	attempt := func() error {
		return perform(ctx, client, opts)
	}

	err = attempt()
	if err == nil || !opts.Wait || errors.Is(err, errUnknownAction) {
		return err
	}

	ticker := time.NewTicker(retryInterval)
	defer ticker.Stop()

	for {
		logger.WarnKV(ctx, "Agent is not answering, retrying", "address", address, "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err = attempt(); err == nil {
				return nil
			}
		}
	}
}

// perform makes one call for opts.Action.
func perform(ctx context.Context, client *common.Client, opts *Options) error {
	switch opts.Action {
	case ActionStop:
		if err := client.StopAlarm(ctx); err != nil {
			return err
		}

		logger.Info(ctx, "Alarm stopped")

		return nil
	case ActionFind:
		started, err := client.StartAlarm(ctx)
		if err != nil {
			return err
		}

		if started {
			logger.Info(ctx, "Alarm started")
		} else {
			logger.Info(ctx, "Alarm is already ringing")
		}

		return nil
	case ActionStatus:
		status, err := client.GetStatus(ctx)
		if err != nil {
			return err
		}

		data, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(status)
		if err != nil {
			return fmt.Errorf("marshal status: %w", err)
		}

		out := opts.Output
		if out == nil {
			out = os.Stdout
		}

		_, err = fmt.Fprintln(out, string(data))

		return err
	default:
		return fmt.Errorf("%w: %d", errUnknownAction, opts.Action)
	}
}
