package usecase

import (
	"fmt"

	"FinCollect/internal/domain/models"
)

const (
	DefaultExportBudgetBytes = 50 * 1024 * 1024
	DefaultExportChunkSize   = 1000
)

// ExportPlanner decides how a ledger snapshot is split into artifacts. It does no I/O.
type ExportPlanner struct {
	SizeBudgetBytes int64
	ChunkSize       int
}

func NewExportPlanner(budgetBytes int64, chunkSize int) ExportPlanner {
	p := ExportPlanner{SizeBudgetBytes: budgetBytes, ChunkSize: chunkSize}
	if p.SizeBudgetBytes <= 0 {
		p.SizeBudgetBytes = DefaultExportBudgetBytes
	}
	if p.ChunkSize <= 0 {
		p.ChunkSize = DefaultExportChunkSize
	}
	return p
}

// Plan emits a single artifact when the estimated size fits the budget and
// fixed-size chunks otherwise. Concatenating the chunks yields records in order.
func (p ExportPlanner) Plan(records []models.CollectedRecord) (models.ExportPlan, error) {
	size, err := EstimateSize(records)
	if err != nil {
		return models.ExportPlan{}, fmt.Errorf("%w: %v", models.ErrSerialization, err)
	}
	plan := models.ExportPlan{EstimatedBytes: size, RecordCount: len(records)}

	budget, chunkSize := p.SizeBudgetBytes, p.ChunkSize
	if budget <= 0 {
		budget = DefaultExportBudgetBytes
	}
	if chunkSize <= 0 {
		chunkSize = DefaultExportChunkSize
	}

	if size <= budget {
		plan.Kind = models.ExportSingle
		plan.Chunks = []models.ExportChunk{{Index: 1, Total: 1, Records: records}}
		return plan, nil
	}

	total := (len(records) + chunkSize - 1) / chunkSize
	plan.Kind = models.ExportChunked
	plan.Chunks = make([]models.ExportChunk, 0, total)
	for i := 0; i < total; i++ {
		lo := i * chunkSize
		hi := lo + chunkSize
		if hi > len(records) {
			hi = len(records)
		}
		plan.Chunks = append(plan.Chunks, models.ExportChunk{
			Index:   i + 1,
			Total:   total,
			Records: records[lo:hi],
		})
	}
	return plan, nil
}
