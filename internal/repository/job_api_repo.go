package repository

import (
	"context"

	"github.com/notttired/aire-frontend/internal/entity"
)

// JobAPIRepository defines the contract of the remote scrape job API.
type JobAPIRepository interface {
	// Submit posts a scrape request. The result carries either a task handle
	// to poll or the upstream body as a direct result.
	Submit(ctx context.Context, req *entity.ScrapeRequest) (*entity.SubmitResult, error)
	// FetchStatus queries the current status of a submitted job once.
	FetchStatus(ctx context.Context, id entity.JobHandle) (*entity.JobStatus, error)
}
