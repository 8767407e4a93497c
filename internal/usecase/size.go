package usecase

import (
	"encoding/json"
	"fmt"

	"FinCollect/internal/domain/models"
)

// EstimateSize is the single size estimate shared by ledger health and export
// planning: the sum of each record's JSON encoding. It is recomputed on every
// call because payload sizes vary between fetches.
func EstimateSize(records []models.CollectedRecord) (int64, error) {
	var total int64
	for i := range records {
		b, err := json.Marshal(&records[i])
		if err != nil {
			return 0, fmt.Errorf("record %d (%s): %w", i, records[i].Symbol, err)
		}
		total += int64(len(b))
	}
	return total, nil
}
