// Package publisher pushes rendered label bitmaps to devices over a
// publish/subscribe channel, one topic per device.
package publisher

import (
	"context"
	"errors"
	"strings"

	eslmodels "gitlab.com/maplesense1/esl.label_server/src/production/ESL.Models"
)

var (
	// ErrNotConnected is returned when the transport has no live connection
	ErrNotConnected = errors.New("publisher not connected")
	// ErrPublishTimeout is returned when the broker did not acknowledge in time
	ErrPublishTimeout = errors.New("publish timed out")
)

// Publisher delivers a payload to the channel of one device. Delivery is
// fire-and-forget: a nil error means the transport accepted the message, not
// that the device received it.
type Publisher interface {
	Publish(ctx context.Context, address string, payload []byte) error
	Topic(address string) string
	IsConnected() bool
	Close()
}

// TopicFor builds "<prefix>/<ADDRESS>" from a store prefix and a raw address
func TopicFor(prefix, address string) string {
	return strings.TrimRight(prefix, "/") + "/" + eslmodels.NormalizeAddress(address)
}

// SubjectFor maps a topic onto a NATS subject
func SubjectFor(topic string) string {
	return strings.ReplaceAll(topic, "/", ".")
}
