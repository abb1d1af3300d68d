// Package migrations holds the numbered deployment steps and the runner that applies them.
package migrations

import (
	"context"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/log"

	"github.com/doggyprojects/contracts/doggy-deployer/pkg/deployer/env"
	"github.com/doggyprojects/contracts/doggy-deployer/pkg/deployer/manifest"
)

type Migration struct {
	ID   int
	Name string
	Run  func(ctx context.Context, e *env.Env) error
}

// All returns every migration in ID order.
func All() []Migration {
	return []Migration{
		{ID: 1, Name: "deploy-doggy-projects-v1", Run: DeployDoggyProjectsV1},
	}
}

type ProgressStore interface {
	Load(chainID uint64) (*manifest.Manifest, error)
	Save(chainID uint64, m *manifest.Manifest) error
}

type Runner struct {
	lgr        log.Logger
	chainID    uint64
	progress   ProgressStore
	migrations []Migration
}

func NewRunner(lgr log.Logger, chainID uint64, progress ProgressStore, migrations []Migration) *Runner {
	sorted := make([]Migration, len(migrations))
	copy(sorted, migrations)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ID < sorted[j].ID
	})
	return &Runner{lgr: lgr, chainID: chainID, progress: progress, migrations: sorted}
}

// Run applies the migrations after the last completed one, recording progress after each,
// and stops at the first failure. It returns the IDs it ran.
func (r *Runner) Run(ctx context.Context, e *env.Env) ([]int, error) {
	m, err := r.progress.Load(r.chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to load migration progress: %w", err)
	}
	last := m.LastCompletedMigration()

	var ran []int
	for _, mig := range r.migrations {
		lgr := r.lgr.New("migration", mig.Name, "id", mig.ID)
		if mig.ID <= last {
			lgr.Info("migration already applied")
			continue
		}
		if err := ctx.Err(); err != nil {
			return ran, err
		}

		lgr.Info("running migration")
		if err := mig.Run(ctx, e); err != nil {
			return ran, fmt.Errorf("migration %d (%s) failed: %w", mig.ID, mig.Name, err)
		}

		// The migration may have written to the manifest itself, so reload before recording.
		m, err = r.progress.Load(r.chainID)
		if err != nil {
			return ran, fmt.Errorf("failed to load migration progress: %w", err)
		}
		m.SetLastCompletedMigration(mig.ID)
		if err := r.progress.Save(r.chainID, m); err != nil {
			return ran, fmt.Errorf("failed to record migration %d: %w", mig.ID, err)
		}
		ran = append(ran, mig.ID)
		lgr.Info("migration complete")
	}
	return ran, nil
}
