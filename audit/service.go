package audit

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/kasuganosora/autoinvite/game/invite"
	"github.com/kasuganosora/autoinvite/model"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	queueSize     = 1024
	batchSize     = 100
	flushInterval = 2 * time.Second
)

// Service writes invite attempts to the invite_logs table asynchronously
// in batches. It implements invite.Recorder.
type Service struct {
	db     *gorm.DB
	ch     chan *model.InviteLog
	stopCh chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
	logger *zap.Logger
}

// New creates a new audit Service and starts its background worker.
func New(db *gorm.DB, logger *zap.Logger) *Service {
	svc := &Service{
		db:     db,
		ch:     make(chan *model.InviteLog, queueSize),
		stopCh: make(chan struct{}),
		logger: logger,
	}
	svc.wg.Add(1)
	go svc.worker()
	return svc
}

// RecordAttempt enqueues one attempt. It never blocks the dispatch loop;
// entries are dropped with a warning when the queue is full.
func (svc *Service) RecordAttempt(a invite.Attempt) {
	detail, _ := json.Marshal(map[string]interface{}{
		"distance": a.Distance,
		"attempt":  a.Index,
		"of":       a.Total,
	})
	record := &model.InviteLog{
		RunID:      a.RunID,
		TargetID:   uint32(a.Target.ID),
		TargetName: a.Target.Name,
		Success:    a.Result.OK,
		Detail:     datatypes.JSON(detail),
	}
	if a.Result.Err != nil {
		record.Error = a.Result.Err.Error()
	}
	select {
	case svc.ch <- record:
	default:
		svc.logger.Warn("audit queue full, dropping entry",
			zap.String("run_id", a.RunID),
			zap.String("target", a.Target.Name))
	}
}

// ForRun returns the stored attempts of one run, oldest first.
func (svc *Service) ForRun(ctx context.Context, runID string) ([]model.InviteLog, error) {
	var logs []model.InviteLog
	err := svc.db.WithContext(ctx).Where("run_id = ?", runID).Order("id").Find(&logs).Error
	return logs, err
}

// Stop flushes remaining entries and shuts down the worker.
// It blocks until the worker goroutine has finished.
func (svc *Service) Stop() {
	svc.once.Do(func() { close(svc.stopCh) })
	svc.wg.Wait()
}

func (svc *Service) worker() {
	defer svc.wg.Done()
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	batch := make([]*model.InviteLog, 0, batchSize)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := svc.db.Create(&batch).Error; err != nil {
			svc.logger.Error("audit batch write failed", zap.Int("entries", len(batch)), zap.Error(err))
		}
		batch = batch[:0]
	}

	for {
		select {
		case entry := <-svc.ch:
			batch = append(batch, entry)
			if len(batch) >= batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-svc.stopCh:
			for {
				select {
				case entry := <-svc.ch:
					batch = append(batch, entry)
				default:
					flush()
					return
				}
			}
		}
	}
}
