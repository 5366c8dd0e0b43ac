package eslmodels

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// HeartbeatMessage is recorded for every regular check-in
const HeartbeatMessage = "Heartbeat / Config Fetch"

// TelemetryLog is one append-only check-in event
type TelemetryLog struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	MacAddress   string             `bson:"macAddress" json:"macAddress"`
	BatteryLevel *int               `bson:"batteryLevel,omitempty" json:"batteryLevel,omitempty"`
	WifiSignal   *int               `bson:"wifiSignal,omitempty" json:"wifiSignal,omitempty"`
	Message      string             `bson:"message" json:"message"`
	IPAddress    string             `bson:"ipAddress,omitempty" json:"ipAddress,omitempty"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
}
