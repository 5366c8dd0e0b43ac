package publisher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	config "gitlab.com/maplesense1/esl.label_server/src/production/ESL.Config"
	logger "gitlab.com/maplesense1/esl.label_server/src/production/ESL.Logger"
)

func TestTopicFor(t *testing.T) {
	tests := []struct {
		prefix  string
		address string
		want    string
	}{
		{"velarc/store_01", "A0:B1:C2:D3:44:55", "velarc/store_01/A0:B1:C2:D3:44:55"},
		{"velarc/store_01/", " a0:b1:c2:d3:44:55 ", "velarc/store_01/A0:B1:C2:D3:44:55"},
		{"acme//", "ff", "acme/FF"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, TopicFor(tt.prefix, tt.address))
	}
}

func TestSubjectFor(t *testing.T) {
	assert.Equal(t, "velarc.store_01.A0:B1:C2:D3:44:55", SubjectFor("velarc/store_01/A0:B1:C2:D3:44:55"))
}

type fakeToken struct {
	done chan struct{}
	err  error
}

func completedToken(err error) *fakeToken {
	tk := &fakeToken{done: make(chan struct{}), err: err}
	close(tk.done)
	return tk
}

func (t *fakeToken) Wait() bool { <-t.done; return true }
func (t *fakeToken) WaitTimeout(d time.Duration) bool {
	select {
	case <-t.done:
		return true
	case <-time.After(d):
		return false
	}
}
func (t *fakeToken) Done() <-chan struct{} { return t.done }
func (t *fakeToken) Error() error          { return t.err }

type fakeMQTTClient struct {
	mqtt.Client

	mu        sync.Mutex
	connected bool
	token     mqtt.Token
	topics    []string
	payloads  [][]byte
	qos       byte
	retained  bool
}

func (c *fakeMQTTClient) IsConnected() bool { return c.connected }
func (c *fakeMQTTClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.topics = append(c.topics, topic)
	c.payloads = append(c.payloads, payload.([]byte))
	c.qos = qos
	c.retained = retained
	return c.token
}

func mqttConfig() config.MQTTConfig {
	return config.MQTTConfig{QoS: 1, Retain: true, PublishTimeout: time.Second}
}

func TestMQTTPublisher_Publish(t *testing.T) {
	client := &fakeMQTTClient{connected: true, token: completedToken(nil)}
	p := newMQTTPublisher(client, "velarc/store_01", mqttConfig(), logger.Nop())

	err := p.Publish(context.Background(), "a0:b1:c2:d3:44:55", []byte{0x89, 'P', 'N', 'G'})
	require.NoError(t, err)

	assert.Equal(t, []string{"velarc/store_01/A0:B1:C2:D3:44:55"}, client.topics)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, client.payloads[0])
	assert.Equal(t, byte(1), client.qos)
	assert.True(t, client.retained)
}

func TestMQTTPublisher_NotConnected(t *testing.T) {
	client := &fakeMQTTClient{connected: false, token: completedToken(nil)}
	p := newMQTTPublisher(client, "velarc/store_01", mqttConfig(), logger.Nop())

	err := p.Publish(context.Background(), "AA", []byte("x"))
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.Empty(t, client.topics)
	assert.False(t, p.IsConnected())
}

func TestMQTTPublisher_TokenError(t *testing.T) {
	brokerErr := errors.New("broker refused")
	client := &fakeMQTTClient{connected: true, token: completedToken(brokerErr)}
	p := newMQTTPublisher(client, "velarc/store_01", mqttConfig(), logger.Nop())

	err := p.Publish(context.Background(), "AA", []byte("x"))
	assert.ErrorIs(t, err, brokerErr)
}

func TestMQTTPublisher_Timeout(t *testing.T) {
	client := &fakeMQTTClient{connected: true, token: &fakeToken{done: make(chan struct{})}}
	cfg := mqttConfig()
	cfg.PublishTimeout = 20 * time.Millisecond
	p := newMQTTPublisher(client, "velarc/store_01", cfg, logger.Nop())

	err := p.Publish(context.Background(), "AA", []byte("x"))
	assert.ErrorIs(t, err, ErrPublishTimeout)
}

func TestMQTTPublisher_ContextCancelled(t *testing.T) {
	client := &fakeMQTTClient{connected: true, token: &fakeToken{done: make(chan struct{})}}
	p := newMQTTPublisher(client, "velarc/store_01", mqttConfig(), logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Publish(ctx, "AA", []byte("x"))
	assert.ErrorIs(t, err, context.Canceled)
}

type fakeNATSConn struct {
	connected bool
	pubErr    error
	flushErr  error
	subjects  []string
	drained   bool
}

func (c *fakeNATSConn) Publish(subject string, _ []byte) error {
	if c.pubErr != nil {
		return c.pubErr
	}
	c.subjects = append(c.subjects, subject)
	return nil
}
func (c *fakeNATSConn) FlushWithContext(context.Context) error { return c.flushErr }
func (c *fakeNATSConn) IsConnected() bool                      { return c.connected }
func (c *fakeNATSConn) Drain() error                           { c.drained = true; return nil }

func TestNATSPublisher_Publish(t *testing.T) {
	conn := &fakeNATSConn{connected: true}
	p := newNATSPublisher(conn, "velarc/store_01/", time.Second, logger.Nop())

	require.NoError(t, p.Publish(context.Background(), "a0:b1:c2:d3:44:55", []byte("png")))

	assert.Equal(t, []string{"velarc.store_01.A0:B1:C2:D3:44:55"}, conn.subjects)
	assert.Equal(t, "velarc/store_01/A0:B1:C2:D3:44:55", p.Topic("a0:b1:c2:d3:44:55"))

	p.Close()
	assert.True(t, conn.drained)
}

func TestNATSPublisher_Failures(t *testing.T) {
	flushErr := errors.New("flush failed")

	tests := []struct {
		name string
		conn *fakeNATSConn
		want error
	}{
		{name: "disconnected", conn: &fakeNATSConn{}, want: ErrNotConnected},
		{name: "flush", conn: &fakeNATSConn{connected: true, flushErr: flushErr}, want: flushErr},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newNATSPublisher(tt.conn, "velarc/store_01", time.Second, logger.Nop())
			assert.ErrorIs(t, p.Publish(context.Background(), "AA", []byte("x")), tt.want)
		})
	}
}
