package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	logger "gitlab.com/maplesense1/esl.label_server/src/production/ESL.Logger"
	eslmodels "gitlab.com/maplesense1/esl.label_server/src/production/ESL.Models"
	api_models "gitlab.com/maplesense1/esl.label_server/src/production/ESL.Models/api"
	publisher "gitlab.com/maplesense1/esl.label_server/src/production/ESL.Publisher"
	interfaces "gitlab.com/maplesense1/esl.label_server/src/production/ESL.Repository/Interfaces"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrInvalidRequest is returned when a required field is missing
	ErrInvalidRequest = errors.New("missing tagId, name, or price")
	// ErrRenderFailed is returned when the label bitmap could not be produced
	ErrRenderFailed = errors.New("label render failed")
	// ErrPublishFailed is returned when the transport rejected the bitmap.
	// The registry has already been updated at that point.
	ErrPublishFailed = errors.New("label publish failed")
)

const discoveryTimeout = 10 * time.Second

// LabelRenderer turns label content into an encoded bitmap
type LabelRenderer interface {
	Render(name, price string) ([]byte, error)
}

// CheckInRequest carries what a device reports when it polls for its config.
// Nil telemetry values were not reported or could not be parsed.
type CheckInRequest struct {
	Address      string
	BatteryLevel *int
	WifiSignal   *int
	IPAddress    string
}

// LabelService implements device check-in, operator updates and registry reads
type LabelService struct {
	labels    interfaces.LabelRepository
	logs      interfaces.TelemetryRepository
	renderer  LabelRenderer
	publisher publisher.Publisher
	logger    *logger.Logger

	discovery singleflight.Group
	now       func() time.Time
}

// NewLabelService creates a new label service
func NewLabelService(
	labels interfaces.LabelRepository,
	logs interfaces.TelemetryRepository,
	renderer LabelRenderer,
	pub publisher.Publisher,
	log *logger.Logger,
) *LabelService {
	return &LabelService{
		labels:    labels,
		logs:      logs,
		renderer:  renderer,
		publisher: pub,
		logger:    log.WithComponent("label-service"),
		now:       func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

// CheckIn returns the configuration for the device at req.Address,
// registering it with defaults the first time it is seen. Every call appends
// one telemetry event and refreshes the cached telemetry on the record.
func (s *LabelService) CheckIn(ctx context.Context, req CheckInRequest) (*api_models.LabelConfig, error) {
	address := eslmodels.NormalizeAddress(req.Address)
	if address == "" {
		return nil, ErrInvalidRequest
	}
	log := s.logger.WithAddress(address)

	if _, err := s.findOrDiscover(ctx, address); err != nil {
		log.ErrorWithError(err, "Check-in lookup failed")
		return nil, err
	}

	now := s.now()
	entry := eslmodels.TelemetryLog{
		MacAddress:   address,
		BatteryLevel: req.BatteryLevel,
		WifiSignal:   req.WifiSignal,
		Message:      eslmodels.HeartbeatMessage,
		IPAddress:    req.IPAddress,
		CreatedAt:    now,
	}
	if err := s.logs.Append(ctx, entry); err != nil {
		log.ErrorWithError(err, "Failed to append telemetry")
		return nil, fmt.Errorf("append telemetry for %s: %w", address, err)
	}

	label, err := s.labels.RecordTelemetry(ctx, address, eslmodels.TelemetryUpdate{
		BatteryLevel: req.BatteryLevel,
		WifiSignal:   req.WifiSignal,
		CheckedInAt:  now,
	})
	if err != nil {
		log.ErrorWithError(err, "Failed to record telemetry")
		return nil, fmt.Errorf("record telemetry for %s: %w", address, err)
	}

	fields := map[string]interface{}{"ip": req.IPAddress}
	if req.BatteryLevel != nil {
		fields["battery"] = *req.BatteryLevel
	}
	if req.WifiSignal != nil {
		fields["wifi"] = *req.WifiSignal
	}
	log.WithFields(fields).Debug("Label checked in")

	cfg := api_models.ConfigFromLabel(label)
	return &cfg, nil
}

// findOrDiscover returns the record for address, creating it when absent.
// Concurrent discoveries of one address in this process share a single
// create; a create that loses to another writer re-reads the winner.
func (s *LabelService) findOrDiscover(ctx context.Context, address string) (*eslmodels.Label, error) {
	label, err := s.labels.FindByAddress(ctx, address)
	if err == nil {
		return label, nil
	}
	if !errors.Is(err, interfaces.ErrNotRegistered) {
		return nil, fmt.Errorf("find label %s: %w", address, err)
	}

	// The shared create must outlive any single caller: detach it from the
	// request that started it and bound it on its own.
	ch := s.discovery.DoChan(address, func() (interface{}, error) {
		dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), discoveryTimeout)
		defer cancel()
		return s.discover(dctx, address)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		copied := *res.Val.(*eslmodels.Label)
		return &copied, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("discover label %s: %w", address, ctx.Err())
	}
}

func (s *LabelService) discover(ctx context.Context, address string) (*eslmodels.Label, error) {
	label, err := s.labels.CreateDefault(ctx, address)
	switch {
	case err == nil:
		s.logger.WithAddress(address).Info("New label discovered")
		return label, nil
	case errors.Is(err, interfaces.ErrDuplicateKey):
		s.logger.WithAddress(address).Debug("Label registered concurrently, re-reading")
		label, err = s.labels.FindByAddress(ctx, address)
		if err != nil {
			return nil, fmt.Errorf("re-read label %s: %w", address, err)
		}
		return label, nil
	default:
		return nil, fmt.Errorf("create label %s: %w", address, err)
	}
}

// UpdateTag stores new content for a registered label, renders it and
// publishes the bitmap to the label's channel. The order is fixed: a render
// or publish failure leaves the registry already updated.
func (s *LabelService) UpdateTag(ctx context.Context, req api_models.UpdateTagRequest) (*api_models.UpdateTagResponse, error) {
	address := eslmodels.NormalizeAddress(req.TagID)
	if address == "" || req.Name == "" || req.Price == "" {
		return nil, ErrInvalidRequest
	}
	log := s.logger.WithAddress(address)

	if _, err := s.labels.FindByAddress(ctx, address); err != nil {
		return nil, s.lookupError(log, address, err)
	}

	label, err := s.labels.ApplyUpdate(ctx, address, req.Name, req.Price)
	if err != nil {
		return nil, s.lookupError(log, address, err)
	}

	image, err := s.renderer.Render(label.ProductName, label.Price)
	if err != nil {
		log.ErrorWithError(err, "Label render failed")
		return nil, fmt.Errorf("%w: %w", ErrRenderFailed, err)
	}

	topic := s.publisher.Topic(address)
	if err := s.publisher.Publish(ctx, address, image); err != nil {
		log.WithField("topic", topic).WithError(err).Error("Label publish failed after registry update")
		return nil, fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	log.Logger.Info().
		Str("topic", topic).
		Int("bytes", len(image)).
		Str("name", label.ProductName).
		Str("price", label.Price).
		Msg("Label updated")

	return &api_models.UpdateTagResponse{
		Message: "Tag updated successfully",
		Topic:   topic,
		Bytes:   len(image),
	}, nil
}

func (s *LabelService) lookupError(log *logger.Logger, address string, err error) error {
	if errors.Is(err, interfaces.ErrNotRegistered) {
		log.Logger.Warn().Bool("security", true).Msg("Rejected update for unregistered tag")
		return err
	}
	log.ErrorWithError(err, "Label update failed")
	return fmt.Errorf("update label %s: %w", address, err)
}

// GetLabel returns the registry record for address
func (s *LabelService) GetLabel(ctx context.Context, address string) (*eslmodels.Label, error) {
	address = eslmodels.NormalizeAddress(address)
	if address == "" {
		return nil, ErrInvalidRequest
	}
	return s.labels.FindByAddress(ctx, address)
}

// ListLabels returns one page of the registry, newest first
func (s *LabelService) ListLabels(ctx context.Context, page, pageSize int) (*interfaces.PaginationResult, error) {
	return s.labels.List(ctx, page, pageSize)
}

// ListTelemetry returns the most recent check-ins of a registered label
func (s *LabelService) ListTelemetry(ctx context.Context, address string, limit int) ([]eslmodels.TelemetryLog, error) {
	label, err := s.GetLabel(ctx, address)
	if err != nil {
		return nil, err
	}
	return s.logs.ListByAddress(ctx, label.MacAddress, limit)
}
