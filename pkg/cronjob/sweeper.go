package cronjob

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/raids-lab/folio/pkg/assetstore"
	"github.com/raids-lab/folio/pkg/logutils"
	"github.com/raids-lab/folio/pkg/metrics"
)

const maxSweepWorkers = 10

// ProjectLookup answers which project ids still have a record.
type ProjectLookup interface {
	ExistingIDs(ctx context.Context, ids []string) ([]string, error)
	Exists(ctx context.Context, id string) (bool, error)
}

// OrphanSweeper removes stored artifacts whose project record is gone, for
// example after a crash between record deletion and directory cleanup.
type OrphanSweeper struct {
	store    *assetstore.Store
	projects ProjectLookup
}

func NewOrphanSweeper(store *assetstore.Store, projects ProjectLookup) *OrphanSweeper {
	return &OrphanSweeper{store: store, projects: projects}
}

// SweepRecord summarizes one sweep.
type SweepRecord struct {
	ExecuteTime time.Time `json:"executeTime"`
	Scanned     int       `json:"scanned"`
	Removed     []string  `json:"removed"`
	Failed      []string  `json:"failed"`
}

// Sweep deletes the artifacts of every id on disk without a record. Each id
// is re-checked under its writer lock, so a project whose record is being
// created right now is left alone.
func (s *OrphanSweeper) Sweep(ctx context.Context) (*SweepRecord, error) {
	record := &SweepRecord{ExecuteTime: time.Now()}

	ids, err := s.store.StoredProjectIDs()
	if err != nil {
		return record, fmt.Errorf("OrphanSweeper.Sweep: %w", err)
	}
	record.Scanned = len(ids)
	known, err := s.projects.ExistingIDs(ctx, ids)
	if err != nil {
		return record, fmt.Errorf("OrphanSweeper.Sweep: %w", err)
	}
	orphans := lo.Without(ids, known...)

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(maxSweepWorkers)
	for _, id := range orphans {
		g.Go(func() error {
			removed, err := s.sweepOne(ctx, id)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				logutils.ForProject(id).WithError(err).Warn("sweep orphaned artifacts")
				record.Failed = append(record.Failed, id)
			case removed:
				metrics.SweeperRemovalsTotal.WithLabelValues("project").Inc()
				record.Removed = append(record.Removed, id)
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.Strings(record.Removed)
	sort.Strings(record.Failed)
	logutils.Log.Infof("orphan sweep: scanned %d, removed %d, failed %d",
		record.Scanned, len(record.Removed), len(record.Failed))
	return record, nil
}

func (s *OrphanSweeper) sweepOne(ctx context.Context, id string) (bool, error) {
	var removed atomic.Bool
	err := s.store.Run(ctx, id, func() error {
		exists, err := s.projects.Exists(ctx, id)
		if err != nil || exists {
			return err
		}
		removed.Store(true)
		return s.store.DeleteProject(id, "")
	})
	return removed.Load(), err
}
