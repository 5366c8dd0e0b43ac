package implementation

import (
	"math"
	"time"

	eslmodels "gitlab.com/maplesense1/esl.label_server/src/production/ESL.Models"
	interfaces "gitlab.com/maplesense1/esl.label_server/src/production/ESL.Repository/Interfaces"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
	defaultLogLimit = 50
	maxLogLimit     = 500
)

func utcNow() time.Time {
	// Mongo stores milliseconds; truncate so in-memory and stored values agree
	return time.Now().UTC().Truncate(time.Millisecond)
}

func clampPage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	// keep page*pageSize representable so offsets never overflow
	if page > math.MaxInt/pageSize {
		page = math.MaxInt / pageSize
	}
	return page, pageSize
}

func clampLimit(limit int) int {
	if limit < 1 {
		return defaultLogLimit
	}
	if limit > maxLogLimit {
		return maxLogLimit
	}
	return limit
}

func paginate(labels []eslmodels.Label, page, pageSize, total int) *interfaces.PaginationResult {
	result := &interfaces.PaginationResult{
		Items: labels,
		Total: total,
	}
	if page*pageSize < total {
		nextPage := page + 1
		result.NextPage = &nextPage
	}
	return result
}

// prepareLog canonicalizes the address and fills the defaults of a log entry
func prepareLog(entry eslmodels.TelemetryLog) eslmodels.TelemetryLog {
	entry.MacAddress = eslmodels.NormalizeAddress(entry.MacAddress)
	if entry.Message == "" {
		entry.Message = eslmodels.HeartbeatMessage
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = utcNow()
	}
	return entry
}
