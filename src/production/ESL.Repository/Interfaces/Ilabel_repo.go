package interfaces

import (
	"context"

	eslmodels "gitlab.com/maplesense1/esl.label_server/src/production/ESL.Models"
)

// PaginationResult represents one page of a listing
type PaginationResult struct {
	Items    interface{} `json:"items"`
	NextPage *int        `json:"next_page,omitempty"`
	Total    int         `json:"total,omitempty"`
}

// LabelRepository is the device registry. Every method normalizes the
// address it is given before reading or writing.
type LabelRepository interface {
	// Read
	FindByAddress(ctx context.Context, address string) (*eslmodels.Label, error)
	List(ctx context.Context, page, pageSize int) (*PaginationResult, error)

	// Create with defaults; ErrDuplicateKey when the address exists
	CreateDefault(ctx context.Context, address string) (*eslmodels.Label, error)

	// Operator update of name and price; ErrNotRegistered when absent
	ApplyUpdate(ctx context.Context, address, name, price string) (*eslmodels.Label, error)

	// Check-in side effect on the cached telemetry fields
	RecordTelemetry(ctx context.Context, address string, update eslmodels.TelemetryUpdate) (*eslmodels.Label, error)
}
