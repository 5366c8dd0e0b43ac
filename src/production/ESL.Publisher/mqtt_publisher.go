package publisher

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	config "gitlab.com/maplesense1/esl.label_server/src/production/ESL.Config"
	logger "gitlab.com/maplesense1/esl.label_server/src/production/ESL.Logger"
)

const mqttConnectWait = 10 * time.Second

// MQTTPublisher publishes label bitmaps through a single long-lived paho client
type MQTTPublisher struct {
	client  mqtt.Client
	prefix  string
	qos     byte
	retain  bool
	timeout time.Duration
	logger  *logger.Logger
}

// NewMQTTPublisher connects to the broker described by cfg. If the broker is
// not reachable within a short wait the client keeps retrying in the
// background and IsConnected reports false until it succeeds.
func NewMQTTPublisher(cfg *config.Config, log *logger.Logger) (*MQTTPublisher, error) {
	log = log.WithComponent("mqtt-publisher")
	mc := cfg.MQTT

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.GetMQTTBrokerURL()).
		SetClientID(mc.ClientID).
		SetKeepAlive(mc.KeepAlive).
		SetPingTimeout(mc.PingTimeout).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetCleanSession(true)

	if mc.BrokerUser != "" {
		opts.SetUsername(mc.BrokerUser)
		opts.SetPassword(mc.BrokerPass)
	}

	if mc.UseTLS {
		tlsCfg, err := tlsConfig(mc.CACertPath)
		if err != nil {
			return nil, fmt.Errorf("mqtt tls config: %w", err)
		}
		opts.SetTLSConfig(tlsCfg)
	}

	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Logger.Error().Err(err).Msg("MQTT connection lost")
	}
	opts.OnConnect = func(_ mqtt.Client) {
		log.Logger.Info().Str("broker", cfg.GetMQTTBrokerURL()).Msg("MQTT connected")
	}

	client := mqtt.NewClient(opts)
	tk := client.Connect()
	if !tk.WaitTimeout(mqttConnectWait) {
		log.Logger.Warn().Str("broker", cfg.GetMQTTBrokerURL()).Msg("MQTT broker not reachable yet, retrying in background")
	} else if tk.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", tk.Error())
	}

	return newMQTTPublisher(client, cfg.Publisher.TopicPrefix, mc, log), nil
}

func newMQTTPublisher(client mqtt.Client, prefix string, mc config.MQTTConfig, log *logger.Logger) *MQTTPublisher {
	return &MQTTPublisher{
		client:  client,
		prefix:  prefix,
		qos:     byte(mc.QoS),
		retain:  mc.Retain,
		timeout: mc.PublishTimeout,
		logger:  log,
	}
}

// Topic returns the device topic for address
func (p *MQTTPublisher) Topic(address string) string {
	return TopicFor(p.prefix, address)
}

// Publish sends payload to the device topic and waits for the client to
// hand it to the broker, bounded by the publish timeout and ctx.
func (p *MQTTPublisher) Publish(ctx context.Context, address string, payload []byte) error {
	topic := p.Topic(address)
	if !p.client.IsConnected() {
		return fmt.Errorf("publish %s: %w", topic, ErrNotConnected)
	}

	token := p.client.Publish(topic, p.qos, p.retain, payload)

	timer := time.NewTimer(p.timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("publish %s: %w", topic, err)
		}
	case <-timer.C:
		return fmt.Errorf("publish %s: %w", topic, ErrPublishTimeout)
	case <-ctx.Done():
		return fmt.Errorf("publish %s: %w", topic, ctx.Err())
	}

	p.logger.Logger.Debug().Str("topic", topic).Int("bytes", len(payload)).Msg("Published label image")
	return nil
}

// IsConnected reports whether the broker connection is up
func (p *MQTTPublisher) IsConnected() bool {
	return p.client != nil && p.client.IsConnected()
}

// Close disconnects from the broker
func (p *MQTTPublisher) Close() {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(500)
	}
}

func tlsConfig(caFile string) (*tls.Config, error) {
	cfg := &tls.Config{MinVersion: tls.VersionTLS12}
	if caFile == "" {
		return cfg, nil
	}
	ca, err := os.ReadFile(caFile)
	if err != nil {
		return nil, err
	}
	cp := x509.NewCertPool()
	if !cp.AppendCertsFromPEM(ca) {
		return nil, fmt.Errorf("bad CA file")
	}
	cfg.RootCAs = cp
	return cfg, nil
}
