package job

import (
	"context"

	"order-tracking-service/internal/service"
)

type trailingSyncer interface {
	SyncTrailing(ctx context.Context) (*service.Summary, error)
}

// SyncJob corre la sincronización de la ventana móvil.
type SyncJob struct {
	sync trailingSyncer
}

func NewSyncJob(s trailingSyncer) *SyncJob {
	return &SyncJob{sync: s}
}

func (j *SyncJob) Name() string { return "shopify-sync" }

func (j *SyncJob) Run(ctx context.Context) error {
	_, err := j.sync.SyncTrailing(ctx)
	return err
}
