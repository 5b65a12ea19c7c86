package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"linknexy/linkedin"
	"linknexy/models"
	"linknexy/utils"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	// runTimeout is the wall-clock ceiling for one attempt; lockTTL must
	// stay strictly longer so a slow-but-legitimate run is never pre-empted
	// by its own token expiring.
	runTimeout   = 5 * time.Minute
	lockTTL      = 6 * time.Minute
	maxAttempts  = 3
	retryBackoff = 60 * time.Second
)

// Stage is one idempotent unit of pipeline work. Stages re-read nothing
// themselves; the orchestrator hands each one a freshly-loaded campaign.
type Stage interface {
	Name() string
	Run(ctx context.Context, campaign *models.Campaign, account *models.LinkedInAccount) error
}

// Orchestrator composes the four pipeline stages into one guarded unit of
// execution per campaign: it owns the per-campaign exclusivity token, the
// retry policy and per-stage failure isolation.
type Orchestrator struct {
	DB     *gorm.DB
	Client linkedin.Client
	Locker utils.Locker
	Logger *logrus.Entry

	stages []Stage
	sync   *SyncStage
}

func NewOrchestrator(db *gorm.DB, client linkedin.Client, locker utils.Locker, logger *logrus.Entry) *Orchestrator {
	syncStage := NewSyncStage(db, client, logger)
	return &Orchestrator{
		DB:     db,
		Client: client,
		Locker: locker,
		Logger: logger,
		sync:   syncStage,
		stages: []Stage{
			syncStage,
			NewDiscoverStage(db, client, logger),
			NewConnectStage(db, client, logger),
			NewFollowUpStage(db, client, logger),
		},
	}
}

// Run executes one full pipeline cycle for the campaign. If a previous run
// for the same campaign is still in flight, this run is dropped outright:
// skipping a cycle is always safer than risking a concurrent double-send.
func (o *Orchestrator) Run(ctx context.Context, campaignID uint) error {
	key := fmt.Sprintf("pipeline:campaign:%d", campaignID)
	token, ok, err := o.Locker.Acquire(ctx, key, lockTTL)
	if err != nil {
		return fmt.Errorf("acquire campaign lock: %w", err)
	}
	if !ok {
		o.Logger.WithField("campaign_id", campaignID).Info("previous run still in flight, dropping")
		return nil
	}
	defer func() {
		if err := o.Locker.Release(context.Background(), key, token); err != nil {
			o.Logger.WithError(err).WithField("campaign_id", campaignID).Warn("failed to release campaign lock")
		}
	}()

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		runCtx, cancel := context.WithTimeout(ctx, runTimeout)
		lastErr = o.runOnce(runCtx, campaignID)
		cancel()
		if lastErr == nil {
			return nil
		}

		o.Logger.WithError(lastErr).WithFields(logrus.Fields{
			"campaign_id": campaignID,
			"attempt":     attempt,
		}).Warn("pipeline run failed")

		if attempt < maxAttempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryBackoff):
			}
			// Re-arm the token so the retry still runs under exclusivity;
			// a lost token means the TTL lapsed and another run may have
			// started, so retrying is no longer safe.
			held, err := o.Locker.Extend(ctx, key, token, lockTTL)
			if err != nil {
				return fmt.Errorf("extend campaign lock: %w", err)
			}
			if !held {
				o.Logger.WithField("campaign_id", campaignID).Warn("campaign lock lost, abandoning retries")
				return lastErr
			}
		}
	}

	// Retries exhausted: abandon the run and surface it to operators.
	utils.CaptureError(lastErr, map[string]string{
		"campaign_id": fmt.Sprintf("%d", campaignID),
	})
	o.Logger.WithError(lastErr).WithField("campaign_id", campaignID).Error("pipeline run abandoned")
	return lastErr
}

// runOnce drives the fixed stage order Sync → Discover → Connect →
// FollowUp. A stage error is logged and isolated; the remaining stages
// still run because each stage's side effects are independently idempotent.
// Preconditions are re-checked between stages so a status change mid-run
// halts further work.
func (o *Orchestrator) runOnce(ctx context.Context, campaignID uint) error {
	campaign, account, ok, err := o.preconditions(ctx, campaignID)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	for _, stage := range o.stages {
		if err := stage.Run(ctx, campaign, account); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			o.Logger.WithError(err).WithFields(logrus.Fields{
				"campaign_id": campaignID,
				"stage":       stage.Name(),
			}).Error("stage failed, continuing with remaining stages")
		}

		campaign, account, ok, err = o.preconditions(ctx, campaignID)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}

	return nil
}

// preconditions fresh-reads the campaign and its account. A false result is
// an expected steady-state skip (user paused mid-cycle, account
// disconnected, credentials revoked), never a fault.
func (o *Orchestrator) preconditions(ctx context.Context, campaignID uint) (*models.Campaign, *models.LinkedInAccount, bool, error) {
	var campaign models.Campaign
	err := o.DB.WithContext(ctx).First(&campaign, campaignID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		o.Logger.WithField("campaign_id", campaignID).Info("campaign no longer exists, skipping")
		return nil, nil, false, nil
	}
	if err != nil {
		return nil, nil, false, err
	}

	if campaign.Status != models.CampaignStatusActive {
		o.Logger.WithFields(logrus.Fields{
			"campaign_id": campaignID,
			"status":      campaign.Status,
		}).Info("campaign not active, skipping")
		return nil, nil, false, nil
	}

	account, ok, err := o.activeAccount(ctx, campaign.UserID)
	if err != nil {
		return nil, nil, false, err
	}
	if !ok {
		return nil, nil, false, nil
	}

	if !o.Client.IsConfigured(ctx, account.ProviderAccountID) {
		o.Logger.WithFields(logrus.Fields{
			"campaign_id": campaignID,
			"account_id":  account.ProviderAccountID,
		}).Warn("provider not configured for account, skipping")
		return nil, nil, false, nil
	}

	return &campaign, account, true, nil
}

// activeAccount requires exactly one active connected account for the user.
func (o *Orchestrator) activeAccount(ctx context.Context, userID uint) (*models.LinkedInAccount, bool, error) {
	var accounts []models.LinkedInAccount
	err := o.DB.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, models.AccountStatusActive).
		Find(&accounts).Error
	if err != nil {
		return nil, false, err
	}
	if len(accounts) != 1 {
		o.Logger.WithFields(logrus.Fields{
			"user_id":  userID,
			"accounts": len(accounts),
		}).Info("user does not have exactly one active account, skipping")
		return nil, false, nil
	}
	return &accounts[0], true, nil
}

// RunUserSync performs a sync-only pass over all of a user's active
// campaigns, guarded by a per-user token so one user's sync never overlaps
// itself. Used by the sync-only dispatcher between full pipeline cycles.
func (o *Orchestrator) RunUserSync(ctx context.Context, userID uint) error {
	key := fmt.Sprintf("pipeline:sync:user:%d", userID)
	token, ok, err := o.Locker.Acquire(ctx, key, lockTTL)
	if err != nil {
		return fmt.Errorf("acquire sync lock: %w", err)
	}
	if !ok {
		o.Logger.WithField("user_id", userID).Info("sync already in flight for user, dropping")
		return nil
	}
	defer func() {
		if err := o.Locker.Release(context.Background(), key, token); err != nil {
			o.Logger.WithError(err).WithField("user_id", userID).Warn("failed to release sync lock")
		}
	}()

	account, ok, err := o.activeAccount(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if !o.Client.IsConfigured(ctx, account.ProviderAccountID) {
		o.Logger.WithField("user_id", userID).Warn("provider not configured for account, skipping sync")
		return nil
	}

	var campaigns []models.Campaign
	if err := o.DB.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, models.CampaignStatusActive).
		Find(&campaigns).Error; err != nil {
		return err
	}

	for i := range campaigns {
		if err := o.sync.Run(ctx, &campaigns[i], account); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			o.Logger.WithError(err).WithFields(logrus.Fields{
				"user_id":     userID,
				"campaign_id": campaigns[i].ID,
			}).Error("user sync failed for campaign")
		}
	}

	return nil
}
