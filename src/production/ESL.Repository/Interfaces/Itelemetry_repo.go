package interfaces

import (
	"context"

	eslmodels "gitlab.com/maplesense1/esl.label_server/src/production/ESL.Models"
)

// TelemetryRepository is the append-only check-in log
type TelemetryRepository interface {
	Append(ctx context.Context, entry eslmodels.TelemetryLog) error

	// Newest first
	ListByAddress(ctx context.Context, address string, limit int) ([]eslmodels.TelemetryLog, error)
}
