package usecase

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinCollect/internal/domain/models"
)

func records(n int) []models.CollectedRecord {
	out := make([]models.CollectedRecord, n)
	for i := range out {
		out[i] = rec("700.HK", i+1)
	}
	return out
}

func TestExportPlannerSingleWithinBudget(t *testing.T) {
	in := records(10)
	plan, err := NewExportPlanner(0, 0).Plan(in)
	require.NoError(t, err)

	assert.Equal(t, models.ExportSingle, plan.Kind)
	assert.Equal(t, 10, plan.RecordCount)
	require.Len(t, plan.Chunks, 1)
	assert.Equal(t, 1, plan.Chunks[0].Index)
	assert.Equal(t, 1, plan.Chunks[0].Total)
	assert.Equal(t, in, plan.Chunks[0].Records)

	size, err := EstimateSize(in)
	require.NoError(t, err)
	assert.Equal(t, size, plan.EstimatedBytes)
}

func TestExportPlannerChunksOverBudget(t *testing.T) {
	tests := []struct {
		name      string
		n         int
		chunkSize int
		wantSizes []int
	}{
		{"even split", 2500, 1000, []int{1000, 1000, 500}},
		{"exact multiple", 2000, 1000, []int{1000, 1000}},
		{"small chunks", 7, 3, []int{3, 3, 1}},
		{"one chunk", 3, 5, []int{3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := records(tt.n)
			plan, err := NewExportPlanner(1, tt.chunkSize).Plan(in)
			require.NoError(t, err)
			assert.Equal(t, models.ExportChunked, plan.Kind)
			require.Len(t, plan.Chunks, len(tt.wantSizes))

			var joined []models.CollectedRecord
			for i, c := range plan.Chunks {
				assert.Equal(t, i+1, c.Index)
				assert.Equal(t, len(tt.wantSizes), c.Total)
				assert.Len(t, c.Records, tt.wantSizes[i])
				joined = append(joined, c.Records...)
			}
			assert.Equal(t, in, joined)
		})
	}
}

func TestExportPlannerBudgetBoundaryIsInclusive(t *testing.T) {
	in := records(4)
	size, err := EstimateSize(in)
	require.NoError(t, err)

	plan, err := NewExportPlanner(size, 2).Plan(in)
	require.NoError(t, err)
	assert.Equal(t, models.ExportSingle, plan.Kind)

	plan, err = NewExportPlanner(size-1, 2).Plan(in)
	require.NoError(t, err)
	assert.Equal(t, models.ExportChunked, plan.Kind)
	assert.Len(t, plan.Chunks, 2)
}

func TestExportPlannerSerializationFailure(t *testing.T) {
	bad := rec("X", 1)
	bad.Payload = json.RawMessage(`{not json`)

	_, err := NewExportPlanner(0, 0).Plan([]models.CollectedRecord{bad})
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrSerialization))
}

func TestExportPlannerZeroValueUsesDefaults(t *testing.T) {
	plan, err := ExportPlanner{}.Plan(records(3))
	require.NoError(t, err)
	assert.Equal(t, models.ExportSingle, plan.Kind)
}
