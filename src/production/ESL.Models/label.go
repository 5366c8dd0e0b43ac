package eslmodels

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Defaults assigned to a label on auto-discovery
const (
	DefaultProductName = "New Item"
	DefaultPrice       = "0.00"
	DefaultCurrency    = "₹"
)

// Label is the registry record of one shelf-label device
type Label struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	MacAddress   string             `bson:"macAddress" json:"macAddress"`
	ProductName  string             `bson:"productName" json:"productName"`
	Price        string             `bson:"price" json:"price"`
	Currency     string             `bson:"currency" json:"currency"`
	BatteryLevel int                `bson:"batteryLevel" json:"batteryLevel"`
	WifiSignal   int                `bson:"wifiSignal" json:"wifiSignal"`
	LastCheckIn  time.Time          `bson:"lastCheckIn" json:"lastCheckIn"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// NewLabel returns a label with discovery defaults for the given address
func NewLabel(address string, now time.Time) *Label {
	return &Label{
		MacAddress:  NormalizeAddress(address),
		ProductName: DefaultProductName,
		Price:       DefaultPrice,
		Currency:    DefaultCurrency,
		LastCheckIn: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// NormalizeAddress canonicalizes a hardware address: surrounding whitespace
// trimmed, letters uppercased. "a0:b1:c2:D3:44:55 " and "A0:B1:C2:D3:44:55"
// resolve to the same record.
func NormalizeAddress(address string) string {
	return strings.ToUpper(strings.TrimSpace(address))
}

// TelemetryUpdate carries the optional values a device reported on check-in.
// Nil fields were not reported (or were malformed) and leave the cached value
// on the label untouched.
type TelemetryUpdate struct {
	BatteryLevel *int
	WifiSignal   *int
	CheckedInAt  time.Time
}
