package dispatcher

import (
	"context"
	"encoding/json"

	domain "github.com/oshokin/mqtt-stat/internal/domain/alarm"
	"github.com/oshokin/mqtt-stat/internal/domain/command"
	"github.com/oshokin/mqtt-stat/internal/domain/device"
	"github.com/oshokin/mqtt-stat/internal/logger"
)

// DeviceInfoProvider reports the current state of the device.
type DeviceInfoProvider interface {
	Snapshot(ctx context.Context) device.Snapshot
}

// Publisher sends a message to the broker.
// The returned channel yields the delivery result once; callers may ignore it.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) <-chan error
}

// Alarm starts the locating alarm without blocking.
type Alarm interface {
	Start(ctx context.Context, ramp domain.Ramp) (bool, error)
}

// Config holds the dispatcher settings.
type Config struct {
	// ReplyTopic receives get_status replies.
	ReplyTopic string
	// Ramp is played on find.
	Ramp domain.Ramp
}

type handlerFunc func(ctx context.Context, env *command.Envelope)

// Dispatcher maps command names to handlers.
type Dispatcher struct {
	cfg       Config
	devices   DeviceInfoProvider
	publisher Publisher
	alarm     Alarm

	handlers map[string]handlerFunc
}

// New builds a dispatcher with the get_status and find handlers.
func New(cfg Config, devices DeviceInfoProvider, publisher Publisher, alarm Alarm) *Dispatcher {
	d := &Dispatcher{
		cfg:       cfg,
		devices:   devices,
		publisher: publisher,
		alarm:     alarm,
	}

	d.handlers = map[string]handlerFunc{
		command.GetStatus: d.getStatus,
		command.Find:      d.find,
	}

	return d
}

// Dispatch runs the handler for env. Unknown commands are logged and dropped.
func (d *Dispatcher) Dispatch(ctx context.Context, env *command.Envelope) {
	if env == nil {
		return
	}

	if env.Command == "" {
		logger.WarnKV(ctx, "Status messages are not supported, ignoring", "status", env.Status)

		return
	}

	handler, ok := d.handlers[env.Command]
	if !ok {
		logger.WarnKV(ctx, "Unknown command, ignoring", "command", env.Command)

		return
	}

	ctx = logger.WithKV(ctx, "command", env.Command)
	logger.DebugKV(ctx, "Dispatching command", "payload_fields", len(env.Payload))

	handler(ctx, env)
}

// getStatus publishes a fresh status reply.
func (d *Dispatcher) getStatus(ctx context.Context, _ *command.Envelope) {
	snapshot := d.devices.Snapshot(ctx)
	if !snapshot.Complete() {
		logger.WarnKV(ctx, "Device info is partially unavailable",
			"battery_known", snapshot.BatteryPercent != nil,
			"charging_known", snapshot.Charging != nil,
			"network_known", snapshot.NetworkName != nil,
		)
	}

	payload, err := json.Marshal(command.NewStatusReply(snapshot))
	if err != nil {
		logger.ErrorKV(ctx, "Failed to encode status reply", "error", err)

		return
	}

	// Delivery failures are logged by the publisher.
	_ = d.publisher.Publish(ctx, d.cfg.ReplyTopic, payload)

	logger.InfoKV(ctx, "Status reply sent", "topic", d.cfg.ReplyTopic)
}

// find starts the alarm with the configured ramp.
func (d *Dispatcher) find(ctx context.Context, _ *command.Envelope) {
	started, err := d.alarm.Start(ctx, d.cfg.Ramp)
	if err != nil {
		logger.ErrorKV(ctx, "Failed to start alarm", "error", err)

		return
	}

	if !started {
		logger.InfoKV(ctx, "Alarm is already ringing")
	}
}
