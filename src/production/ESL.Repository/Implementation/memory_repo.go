package implementation

import (
	"context"
	"sort"
	"sync"
	"time"

	eslmodels "gitlab.com/maplesense1/esl.label_server/src/production/ESL.Models"
	interfaces "gitlab.com/maplesense1/esl.label_server/src/production/ESL.Repository/Interfaces"
)

// MemoryLabelRepository keeps the registry in process memory. It is used by
// the memory database driver and in tests.
type MemoryLabelRepository struct {
	mu     sync.RWMutex
	labels map[string]*eslmodels.Label
	now    func() time.Time
}

func NewMemoryLabelRepository() *MemoryLabelRepository {
	return &MemoryLabelRepository{
		labels: make(map[string]*eslmodels.Label),
		now:    utcNow,
	}
}

func (r *MemoryLabelRepository) FindByAddress(_ context.Context, address string) (*eslmodels.Label, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	label, ok := r.labels[eslmodels.NormalizeAddress(address)]
	if !ok {
		return nil, interfaces.ErrNotRegistered
	}
	copied := *label
	return &copied, nil
}

func (r *MemoryLabelRepository) List(_ context.Context, page, pageSize int) (*interfaces.PaginationResult, error) {
	page, pageSize = clampPage(page, pageSize)

	r.mu.RLock()
	all := make([]eslmodels.Label, 0, len(r.labels))
	for _, label := range r.labels {
		all = append(all, *label)
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].MacAddress < all[j].MacAddress
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	start := (page - 1) * pageSize
	if start > len(all) {
		start = len(all)
	}
	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}

	return paginate(all[start:end], page, pageSize, len(all)), nil
}

func (r *MemoryLabelRepository) CreateDefault(_ context.Context, address string) (*eslmodels.Label, error) {
	label := eslmodels.NewLabel(address, r.now())

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.labels[label.MacAddress]; exists {
		return nil, interfaces.ErrDuplicateKey
	}
	r.labels[label.MacAddress] = label

	copied := *label
	return &copied, nil
}

func (r *MemoryLabelRepository) ApplyUpdate(_ context.Context, address, name, price string) (*eslmodels.Label, error) {
	return r.mutate(address, func(label *eslmodels.Label) {
		label.ProductName = name
		label.Price = price
		label.UpdatedAt = r.now()
	})
}

func (r *MemoryLabelRepository) RecordTelemetry(_ context.Context, address string, update eslmodels.TelemetryUpdate) (*eslmodels.Label, error) {
	return r.mutate(address, func(label *eslmodels.Label) {
		label.LastCheckIn = update.CheckedInAt
		if label.LastCheckIn.IsZero() {
			label.LastCheckIn = r.now()
		}
		if update.BatteryLevel != nil {
			label.BatteryLevel = *update.BatteryLevel
		}
		if update.WifiSignal != nil {
			label.WifiSignal = *update.WifiSignal
		}
	})
}

func (r *MemoryLabelRepository) mutate(address string, apply func(*eslmodels.Label)) (*eslmodels.Label, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	label, ok := r.labels[eslmodels.NormalizeAddress(address)]
	if !ok {
		return nil, interfaces.ErrNotRegistered
	}
	apply(label)

	copied := *label
	return &copied, nil
}

// MemoryTelemetryRepository is an append-only in-memory check-in log
type MemoryTelemetryRepository struct {
	mu      sync.RWMutex
	entries []eslmodels.TelemetryLog
}

func NewMemoryTelemetryRepository() *MemoryTelemetryRepository {
	return &MemoryTelemetryRepository{}
}

func (r *MemoryTelemetryRepository) Append(_ context.Context, entry eslmodels.TelemetryLog) error {
	entry = prepareLog(entry)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

func (r *MemoryTelemetryRepository) ListByAddress(_ context.Context, address string, limit int) ([]eslmodels.TelemetryLog, error) {
	address = eslmodels.NormalizeAddress(address)
	limit = clampLimit(limit)

	r.mu.RLock()
	defer r.mu.RUnlock()

	logs := make([]eslmodels.TelemetryLog, 0)
	for i := len(r.entries) - 1; i >= 0 && len(logs) < limit; i-- {
		if r.entries[i].MacAddress == address {
			logs = append(logs, r.entries[i])
		}
	}
	return logs, nil
}

// Count returns the number of entries recorded for every address
func (r *MemoryTelemetryRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
