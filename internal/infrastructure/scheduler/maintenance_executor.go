package scheduler

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PackageWeightRepairer rewrites stale cached package weights and returns
// the repaired SKU ids
type PackageWeightRepairer interface {
	RepairPackageWeights(ctx context.Context) ([]uuid.UUID, error)
}

// MaintenanceExecutor routes jobs to the planning maintenance operations
type MaintenanceExecutor struct {
	repairer PackageWeightRepairer
	logger   *zap.Logger
}

// NewMaintenanceExecutor creates a new MaintenanceExecutor
func NewMaintenanceExecutor(repairer PackageWeightRepairer, logger *zap.Logger) *MaintenanceExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MaintenanceExecutor{repairer: repairer, logger: logger}
}

// Execute implements JobExecutor
func (e *MaintenanceExecutor) Execute(ctx context.Context, job *Job) error {
	switch job.Kind {
	case JobKindPackageWeightRepair:
		repaired, err := e.repairer.RepairPackageWeights(ctx)
		if err != nil {
			return fmt.Errorf("repair package weights: %w", err)
		}
		e.logger.Info("Package weight repair finished",
			zap.String("job_id", job.ID.String()),
			zap.Int("repaired", len(repaired)),
		)
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnknownJobKind, job.Kind)
	}
}
