package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"linknexy/models"
	"linknexy/utils"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Stagger windows. Campaign runs are spread minutes apart so outreach across
// tenants never bursts at once; sync-only runs are cheaper and pack tighter.
const (
	campaignStaggerMin = 5 * time.Minute
	campaignStaggerMax = 10 * time.Minute
	syncStaggerMin     = 10 * time.Second
	syncStaggerMax     = 30 * time.Second
)

// Scheduler is the daily entry point of the pipeline. It registers two cron
// entries (full campaign dispatch and sync-only dispatch) and fans each out
// into independently-executed orchestrator runs with increasing delay
// offsets. Both dispatches are also invocable on demand.
type Scheduler struct {
	DB           *gorm.DB
	Orchestrator *Orchestrator
	Logger       *logrus.Entry

	engine *cron.Cron
	ctx    context.Context
	wg     sync.WaitGroup
}

func NewScheduler(db *gorm.DB, orchestrator *Orchestrator, logger *logrus.Entry) *Scheduler {
	return &Scheduler{
		DB:           db,
		Orchestrator: orchestrator,
		Logger:       logger,
	}
}

// Start registers both cron entries and starts the engine. The cadences are
// cron expressions from configuration so tests and deployments can trigger
// the pipeline without waiting for real time.
func (s *Scheduler) Start(ctx context.Context, campaignSpec, syncSpec string) error {
	s.ctx = ctx
	s.engine = cron.New()

	if _, err := s.engine.AddFunc(campaignSpec, func() { s.DispatchCampaigns(s.ctx) }); err != nil {
		return fmt.Errorf("register campaign dispatch: %w", err)
	}
	if _, err := s.engine.AddFunc(syncSpec, func() { s.DispatchSyncs(s.ctx) }); err != nil {
		return fmt.Errorf("register sync dispatch: %w", err)
	}

	s.engine.Start()
	s.Logger.WithFields(logrus.Fields{
		"campaign_cron": campaignSpec,
		"sync_cron":     syncSpec,
	}).Info("scheduler started")
	return nil
}

// Stop halts the cron engine and waits for in-flight dispatched runs.
func (s *Scheduler) Stop() {
	if s.engine != nil {
		s.engine.Stop()
	}
	s.wg.Wait()
	s.Logger.Info("scheduler stopped")
}

// DispatchCampaigns expires stale pending actions, then enqueues one
// orchestrator run per active campaign with an increasing randomized offset.
func (s *Scheduler) DispatchCampaigns(ctx context.Context) {
	log := s.Logger.WithField("cycle_id", uuid.NewString())

	expired, err := s.ExpirePendingActions()
	if err != nil {
		log.WithError(err).Error("pending action sweep failed")
	} else if expired > 0 {
		log.WithField("expired", expired).Info("expired stale pending actions")
	}

	var campaigns []models.Campaign
	if err := s.DB.Where("status = ?", models.CampaignStatusActive).
		Order("id ASC").
		Find(&campaigns).Error; err != nil {
		log.WithError(err).Error("failed to load active campaigns")
		return
	}

	delay := time.Duration(0)
	for _, campaign := range campaigns {
		delay += utils.Jitter(campaignStaggerMin, campaignStaggerMax)
		s.enqueue(ctx, delay, campaign.ID, func(runCtx context.Context, id uint) error {
			return s.Orchestrator.Run(runCtx, id)
		})
	}

	log.WithField("campaigns", len(campaigns)).Info("campaign dispatch cycle queued")
}

// DispatchSyncs enqueues one sync-only run per distinct user that has both
// an active campaign and an active connected account. Deduplication by user
// means a user is never synced twice in one cycle; the per-user lock covers
// overlap across cycles.
func (s *Scheduler) DispatchSyncs(ctx context.Context) {
	log := s.Logger.WithField("cycle_id", uuid.NewString())

	userIDs, err := s.usersWithActiveOutreach()
	if err != nil {
		log.WithError(err).Error("failed to load users for sync dispatch")
		return
	}

	delay := time.Duration(0)
	for _, userID := range userIDs {
		delay += utils.Jitter(syncStaggerMin, syncStaggerMax)
		s.enqueue(ctx, delay, userID, func(runCtx context.Context, id uint) error {
			return s.Orchestrator.RunUserSync(runCtx, id)
		})
	}

	log.WithField("users", len(userIDs)).Info("sync dispatch cycle queued")
}

// usersWithActiveOutreach returns the distinct users holding both an active
// campaign and an active connected account.
func (s *Scheduler) usersWithActiveOutreach() ([]uint, error) {
	var userIDs []uint
	err := s.DB.Model(&models.Campaign{}).
		Joins("JOIN linkedin_accounts ON linkedin_accounts.user_id = campaigns.user_id AND linkedin_accounts.deleted_at IS NULL").
		Where("campaigns.status = ? AND linkedin_accounts.status = ?",
			models.CampaignStatusActive, models.AccountStatusActive).
		Distinct().
		Order("campaigns.user_id ASC").
		Pluck("campaigns.user_id", &userIDs).Error
	return userIDs, err
}

// ExpirePendingActions sweeps pending actions whose review window has
// passed and reports how many were expired.
func (s *Scheduler) ExpirePendingActions() (int64, error) {
	result := s.DB.Model(&models.PendingAction{}).
		Where("status = ? AND expires_at <= ?", models.PendingActionPending, time.Now().UTC()).
		Update("status", models.PendingActionExpired)
	return result.RowsAffected, result.Error
}

// enqueue schedules one unit of work after the given delay. Each unit runs
// to completion or failure without blocking the dispatcher.
func (s *Scheduler) enqueue(ctx context.Context, delay time.Duration, id uint, run func(context.Context, uint) error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		if err := run(ctx, id); err != nil {
			s.Logger.WithError(err).WithField("id", id).Error("dispatched run failed")
		}
	}()
}
