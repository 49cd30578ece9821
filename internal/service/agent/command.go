package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"

	"github.com/oshokin/mqtt-stat/internal/api/grpc/control"
	"github.com/oshokin/mqtt-stat/internal/audio"
	"github.com/oshokin/mqtt-stat/internal/config"
	"github.com/oshokin/mqtt-stat/internal/deviceinfo"
	"github.com/oshokin/mqtt-stat/internal/logger"
	"github.com/oshokin/mqtt-stat/internal/mqtt"
	"github.com/oshokin/mqtt-stat/internal/service/alarm"
	"github.com/oshokin/mqtt-stat/internal/service/dispatcher"
	"github.com/oshokin/mqtt-stat/internal/service/instance"
	"github.com/oshokin/mqtt-stat/internal/version"
)

// alarmStopTimeout bounds the wait for the alarm to go quiet on shutdown.
const alarmStopTimeout = 5 * time.Second

// Options controls the agent process.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// LogLevel overrides the log level from the settings when set.
	LogLevel string
}

// ErrInvalidLogLevel is returned for unknown log level names.
var ErrInvalidLogLevel = errors.New("invalid log level")

// Run starts the agent and blocks until ctx is canceled.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "mqtt-stat")

	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	if err = applyLogLevel(settings.LogLevel, opts.LogLevel); err != nil {
		return err
	}

	mqtt.RouteLibraryLogs(logger.Logger())

	logger.InfoKV(ctx, "Starting agent", "version", version.Short(), "broker", settings.MQTT.BrokerURL())

	// Claiming the control address keeps a second agent from starting.
	lis, err := instance.NewGuard().Acquire(ctx, settings.Control.Address)
	if err != nil {
		return err
	}

	defer func() {
		_ = lis.Close()
	}()

	player, err := loadPlayer(settings)
	if err != nil {
		return err
	}

	controller := alarm.NewController(player)
	devices := deviceinfo.New()

	manager := NewConnectionManager(
		&dialerTransport{dialer: mqtt.NewDialer(settings.MQTT)},
		settings.Topics,
		settings.MQTT.Reconnect,
	)

	manager.SetDispatcher(dispatcher.New(
		dispatcher.Config{
			ReplyTopic: settings.Topics.Reply,
			Ramp:       settings.Ramp(),
		},
		devices,
		manager,
		controller,
	))

	grpcServer := grpc.NewServer()
	control.RegisterControlServer(grpcServer, control.NewServer(&controlService{
		controller: controller,
		manager:    manager,
		devices:    devices,
		ramp:       settings.Ramp(),
	}))

	logger.InfoKV(ctx, "Control API listening", "listen_address", lis.Addr().String())

	serveErr := make(chan error, 1)

	go func() {
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			serveErr <- fmt.Errorf("serve gRPC: %w", err)
		}

		close(serveErr)
	}()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// A dead control API takes the agent down with it.
	go func() {
		if err, ok := <-serveErr; ok && err != nil {
			logger.ErrorKV(ctx, "Control API failed", "error", err)
			cancel()
		}
	}()

	if err = manager.Run(runCtx); err != nil {
		return fmt.Errorf("connection manager: %w", err)
	}

	logger.Info(ctx, "Shutting down")

	controller.Stop()

	waitCtx, waitCancel := context.WithTimeout(context.WithoutCancel(ctx), alarmStopTimeout)
	defer waitCancel()

	if err = controller.Wait(waitCtx); err != nil {
		logger.WarnKV(ctx, "Alarm did not stop in time", "error", err)
	}

	grpcServer.GracefulStop()
	logger.Info(ctx, "Agent stopped")

	return nil
}

// applyLogLevel sets the global level from the flag, or the settings when the flag is empty.
func applyLogLevel(fromSettings, override string) error {
	name := fromSettings
	if override != "" {
		name = override
	}

	level, ok := logger.ParseLogLevel(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, name)
	}

	logger.SetLevel(level)

	return nil
}

// loadPlayer decrypts and decodes the configured alarm sound.
func loadPlayer(settings *config.Config) (*audio.Player, error) {
	assets, err := audio.OpenAssets(settings.Audio.AssetsDir, settings.Audio.IdentityFile)
	if err != nil {
		return nil, fmt.Errorf("open assets: %w", err)
	}

	data, err := assets.Asset(settings.Alarm.Asset)
	if err != nil {
		return nil, fmt.Errorf("load alarm sound: %w", err)
	}

	player, err := audio.NewPlayer(data)
	if err != nil {
		return nil, fmt.Errorf("prepare alarm sound: %w", err)
	}

	return player, nil
}

// dialerTransport adapts mqtt.Dialer to Transport.
type dialerTransport struct {
	dialer *mqtt.Dialer
}

// Connect implements Transport.
func (t *dialerTransport) Connect(ctx context.Context, will mqtt.Will) (Session, error) {
	session, err := t.dialer.Connect(ctx, will)
	if err != nil {
		return nil, err
	}

	return session, nil
}
