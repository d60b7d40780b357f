// Package repository defines the analysis record store interface and errors.
package repository

import (
	"context"

	"github.com/strokelab/rallylens/internal/domain/model"
)

// Store provides read/write access to analysis submissions and results.
type Store interface {
	// Create registers a pending submission.
	// Returns ErrAlreadyExists if the analysis id is taken.
	Create(ctx context.Context, req model.AnalysisRequest) error

	// MarkRunning transitions a submission to running.
	MarkRunning(ctx context.Context, analysisID string) error

	// SaveResult stores the completed result and transitions the record
	// to completed.
	SaveResult(ctx context.Context, analysisID string, result *model.AnalysisResult) error

	// MarkFailed transitions the record to failed with a reason label.
	MarkFailed(ctx context.Context, analysisID string, reason string) error

	// Delete removes a record. Used to roll back a submission the
	// queue rejected so the client can retry the same id.
	Delete(ctx context.Context, analysisID string) error

	// Get returns the record for an analysis id.
	// Returns ErrNotFound if the id is unknown.
	Get(ctx context.Context, analysisID string) (model.AnalysisRecord, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) int
}
