package cronjob

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/datatypes"
	"k8s.io/klog/v2"

	"github.com/raids-lab/folio/dao/model"
)

type CronJobType string

const (
	CronJobTypeOrphanSweep CronJobType = "orphan_sweep"
)

const OrphanSweepJobName = "orphan-sweeper"

// RecordStore persists the outcome of each run.
type RecordStore interface {
	Create(ctx context.Context, record *model.CronJobRecord) error
}

type CronJobManager struct {
	sweeper   *OrphanSweeper
	records   RecordStore
	cron      *cron.Cron
	cronMutex sync.RWMutex
	entries   map[string]cron.EntryID
}

// NewCronJobManager creates a stopped scheduler. records may be nil.
func NewCronJobManager(sweeper *OrphanSweeper, records RecordStore) *CronJobManager {
	return &CronJobManager{
		sweeper: sweeper,
		records: records,
		cron:    cron.New(cron.WithLocation(time.Local), cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
		entries: make(map[string]cron.EntryID),
	}
}

// AddCronJob schedules a job; adding a name twice replaces the old schedule.
func (cm *CronJobManager) AddCronJob(jobName, jobSpec string, jobType CronJobType) (cron.EntryID, error) {
	f, err := cm.newCronJobFunc(jobName, jobType)
	if err != nil {
		klog.Error(err)
		return -1, err
	}

	cm.cronMutex.Lock()
	defer cm.cronMutex.Unlock()
	entryID, err := cm.cron.AddFunc(jobSpec, f)
	if err != nil {
		err = fmt.Errorf("CronJobManager.AddCronJob: job %s with spec %q: %w", jobName, jobSpec, err)
		klog.Error(err)
		return -1, err
	}
	if old, ok := cm.entries[jobName]; ok {
		cm.cron.Remove(old)
	}
	cm.entries[jobName] = entryID
	return entryID, nil
}

// newCronJobFunc creates the appropriate cron job function based on job type
func (cm *CronJobManager) newCronJobFunc(jobName string, jobType CronJobType) (cron.FuncJob, error) {
	switch jobType {
	case CronJobTypeOrphanSweep:
		if cm.sweeper == nil {
			return nil, fmt.Errorf("cron job %s: no sweeper configured", jobName)
		}
		return func() {
			ctx := context.Background()
			record, err := cm.sweeper.Sweep(ctx)
			if err != nil {
				klog.Errorf("cron job %s failed: %v", jobName, err)
			}
			cm.saveRecord(ctx, jobName, record, err)
		}, nil
	default:
		return nil, fmt.Errorf("unsupported cron job type: %s", jobType)
	}
}

func (cm *CronJobManager) saveRecord(ctx context.Context, jobName string, sweep *SweepRecord, sweepErr error) {
	if cm.records == nil || sweep == nil {
		return
	}
	record := &model.CronJobRecord{
		Name:        jobName,
		ExecuteTime: sweep.ExecuteTime,
		Status:      model.CronJobRecordStatusSuccess,
		Message:     fmt.Sprintf("scanned %d, removed %d, failed %d", sweep.Scanned, len(sweep.Removed), len(sweep.Failed)),
	}
	if sweepErr != nil {
		record.Status = model.CronJobRecordStatusFailed
		record.Message = sweepErr.Error()
	}
	if data, err := json.Marshal(sweep); err == nil {
		record.JobData = datatypes.JSON(data)
	}
	if err := cm.records.Create(ctx, record); err != nil {
		klog.Errorf("cron job %s: save record: %v", jobName, err)
	}
}

// RemoveCronJob unschedules a job by name; unknown names are ignored.
func (cm *CronJobManager) RemoveCronJob(jobName string) {
	cm.cronMutex.Lock()
	defer cm.cronMutex.Unlock()
	if id, ok := cm.entries[jobName]; ok {
		cm.cron.Remove(id)
		delete(cm.entries, jobName)
	}
}

func (cm *CronJobManager) JobNames() []string {
	cm.cronMutex.RLock()
	defer cm.cronMutex.RUnlock()
	names := make([]string, 0, len(cm.entries))
	for name := range cm.entries {
		names = append(names, name)
	}
	return names
}

// StartCron starts the scheduler in its own goroutine.
func (cm *CronJobManager) StartCron() {
	cm.cron.Start()
	klog.Info("CronJobManager: cron scheduler started")
}

// StopCron stops the scheduler and waits for running jobs until ctx is done.
func (cm *CronJobManager) StopCron(ctx context.Context) {
	select {
	case <-cm.cron.Stop().Done():
	case <-ctx.Done():
		klog.Warning("CronJobManager: stop timed out with jobs still running")
	}
}
