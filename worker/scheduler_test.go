package worker

import (
	"testing"
	"time"

	"linknexy/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpirePendingActionsSweepsOnlyOverdue(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, false)
	campaign := seedCampaign(t, db, user.ID)
	p := seedProspect(t, db, user.ID, "p-1")

	require.NoError(t, db.Create(&models.PendingAction{
		UserID: user.ID, CampaignID: campaign.ID, ProspectID: p.ID,
		ActionType: models.ActionTypeSendConnection,
		Status:     models.PendingActionPending,
		ExpiresAt:  nowUTC().Add(-time.Hour),
	}).Error)
	require.NoError(t, db.Create(&models.PendingAction{
		UserID: user.ID, CampaignID: campaign.ID, ProspectID: p.ID,
		ActionType: models.ActionTypeSendFollowUp,
		Status:     models.PendingActionPending,
		ExpiresAt:  nowUTC().Add(time.Hour),
	}).Error)
	require.NoError(t, db.Create(&models.PendingAction{
		UserID: user.ID, CampaignID: campaign.ID, ProspectID: p.ID,
		ActionType: models.ActionTypeSendConnection,
		Status:     models.PendingActionApproved,
		ExpiresAt:  nowUTC().Add(-time.Hour),
	}).Error)

	s := NewScheduler(db, nil, testLogger())
	expired, err := s.ExpirePendingActions()
	require.NoError(t, err)
	assert.Equal(t, int64(1), expired)

	var statuses []string
	require.NoError(t, db.Model(&models.PendingAction{}).Order("id ASC").Pluck("status", &statuses).Error)
	assert.Equal(t, []string{
		models.PendingActionExpired,
		models.PendingActionPending,
		models.PendingActionApproved,
	}, statuses)
}

func TestUsersWithActiveOutreach(t *testing.T) {
	db := newTestDB(t)

	// Qualifies: active campaign and active account, two campaigns dedupe
	ready := seedUser(t, db, true)
	seedAccount(t, db, ready.ID)
	seedCampaign(t, db, ready.ID)
	seedCampaign(t, db, ready.ID, func(c *models.Campaign) { c.Name = "Second" })

	// Excluded: campaign paused
	pausedUser := seedUser(t, db, true)
	seedAccount(t, db, pausedUser.ID)
	seedCampaign(t, db, pausedUser.ID, func(c *models.Campaign) {
		c.Status = models.CampaignStatusPaused
	})

	// Excluded: account disconnected
	disconnectedUser := seedUser(t, db, true)
	account := seedAccount(t, db, disconnectedUser.ID)
	require.NoError(t, db.Model(account).Update("status", models.AccountStatusDisconnected).Error)
	seedCampaign(t, db, disconnectedUser.ID)

	// Excluded: no account at all
	accountless := seedUser(t, db, true)
	seedCampaign(t, db, accountless.ID)

	s := NewScheduler(db, nil, testLogger())
	userIDs, err := s.usersWithActiveOutreach()
	require.NoError(t, err)
	assert.Equal(t, []uint{ready.ID}, userIDs)
}
