package mqtt

import (
	"crypto/tls"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/oshokin/mqtt-stat/internal/config"
)

// Connection constants.
const (
	// qos is used for every publish, subscription and the will.
	qos byte = 1

	// subackFailure is the SUBACK code for a refused filter.
	subackFailure byte = 0x80

	// defaultConnectTimeout bounds a single connection attempt.
	defaultConnectTimeout = 10 * time.Second

	// defaultDisconnectQuiesce is the time in milliseconds left for pending work on disconnect.
	defaultDisconnectQuiesce = 1000

	// tlsMinVersion is the minimum TLS version for secure connections.
	tlsMinVersion = tls.VersionTLS12
)

// Will is the message the broker publishes when the session dies uncleanly.
type Will struct {
	Topic    string
	Payload  []byte
	Retained bool
}

// buildClientOptions creates paho options from the broker settings.
// Reconnection is disabled: every Session is a single connection.
func buildClientOptions(cfg config.MQTTConfig) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()

	opts.AddBroker(cfg.BrokerURL())
	opts.SetClientID(cfg.ClientID)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	opts.SetCleanSession(true)
	opts.SetAutoReconnect(false)
	opts.SetConnectRetry(false)
	opts.SetConnectTimeout(defaultConnectTimeout)
	opts.SetKeepAlive(cfg.KeepAlive)

	// Handlers run one at a time in arrival order.
	opts.SetOrderMatters(true)

	if cfg.TLS {
		opts.SetTLSConfig(&tls.Config{
			MinVersion: tlsMinVersion,
		})
	}

	return opts
}

// configureWill registers will on opts. It must run before the client connects.
func configureWill(opts *pahomqtt.ClientOptions, will Will) {
	if will.Topic == "" {
		return
	}

	opts.SetBinaryWill(will.Topic, will.Payload, qos, will.Retained)
}
