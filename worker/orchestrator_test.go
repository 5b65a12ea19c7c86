package worker

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"linknexy/linkedin"
	"linknexy/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunExecutesFullCycle(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, true)
	seedAccount(t, db, user.ID)
	campaign := seedCampaign(t, db, user.ID)

	client := &fakeClient{searchResults: []linkedin.Profile{
		{ProviderID: "p-1", FirstName: "Grace", LastName: "Hopper"},
	}}
	o := NewOrchestrator(db, client, newMemLocker(), testLogger())

	require.NoError(t, o.Run(context.Background(), campaign.ID))

	// Discovery and connection happen within the same cycle
	require.Len(t, client.connectionRequests, 1)
	assert.Equal(t, "p-1", client.connectionRequests[0])

	var enrollment models.CampaignProspect
	require.NoError(t, db.Where("campaign_id = ?", campaign.ID).First(&enrollment).Error)
	assert.Equal(t, models.CampaignProspectConnectionSent, enrollment.Status)
}

func TestRunDropsWhenLockHeld(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, true)
	seedAccount(t, db, user.ID)
	campaign := seedCampaign(t, db, user.ID)

	client := &fakeClient{searchResults: []linkedin.Profile{{ProviderID: "p-1"}}}
	locker := newMemLocker()
	locker.lock(fmt.Sprintf("pipeline:campaign:%d", campaign.ID))
	o := NewOrchestrator(db, client, locker, testLogger())

	require.NoError(t, o.Run(context.Background(), campaign.ID))
	assert.Zero(t, client.searchCalls, "an overlapping run must do no work")
}

func TestRunSkipsInactiveCampaign(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, true)
	seedAccount(t, db, user.ID)
	campaign := seedCampaign(t, db, user.ID, func(c *models.Campaign) {
		c.Status = models.CampaignStatusPaused
	})

	client := &fakeClient{}
	o := NewOrchestrator(db, client, newMemLocker(), testLogger())

	require.NoError(t, o.Run(context.Background(), campaign.ID))
	assert.Zero(t, client.searchCalls)
}

func TestRunSkipsMissingCampaign(t *testing.T) {
	db := newTestDB(t)
	client := &fakeClient{}
	o := NewOrchestrator(db, client, newMemLocker(), testLogger())

	require.NoError(t, o.Run(context.Background(), 424242))
	assert.Zero(t, client.searchCalls)
}

func TestRunSkipsWithoutActiveAccount(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, true)
	campaign := seedCampaign(t, db, user.ID)

	client := &fakeClient{}
	o := NewOrchestrator(db, client, newMemLocker(), testLogger())

	require.NoError(t, o.Run(context.Background(), campaign.ID))
	assert.Zero(t, client.searchCalls)
}

func TestRunSkipsWithMultipleActiveAccounts(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, true)
	seedAccount(t, db, user.ID)
	require.NoError(t, db.Create(&models.LinkedInAccount{
		UserID:            user.ID,
		ProviderAccountID: "acct-second",
		Status:            models.AccountStatusActive,
	}).Error)
	campaign := seedCampaign(t, db, user.ID)

	client := &fakeClient{}
	o := NewOrchestrator(db, client, newMemLocker(), testLogger())

	require.NoError(t, o.Run(context.Background(), campaign.ID))
	assert.Zero(t, client.searchCalls, "ambiguous account ownership must halt outreach")
}

func TestRunSkipsUnconfiguredProvider(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, true)
	seedAccount(t, db, user.ID)
	campaign := seedCampaign(t, db, user.ID)

	client := &fakeClient{notConfigured: true}
	o := NewOrchestrator(db, client, newMemLocker(), testLogger())

	require.NoError(t, o.Run(context.Background(), campaign.ID))
	assert.Zero(t, client.searchCalls)
}

func TestRunIsolatesStageFailures(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, true)
	seedAccount(t, db, user.ID)
	campaign := seedCampaign(t, db, user.ID)
	p := seedProspect(t, db, user.ID, "p-queued")
	seedEnrollment(t, db, campaign.ID, p.ID)

	// Discovery blows up; the later stages still process the existing queue.
	client := &fakeClient{searchErr: errors.New("provider search outage")}
	o := NewOrchestrator(db, client, newMemLocker(), testLogger())

	require.NoError(t, o.Run(context.Background(), campaign.ID))
	require.Len(t, client.connectionRequests, 1)
	assert.Equal(t, "p-queued", client.connectionRequests[0])
}

func TestRunUserSyncDropsWhenLockHeld(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, true)
	seedAccount(t, db, user.ID)
	seedCampaign(t, db, user.ID)

	client := &fakeClient{conversations: []linkedin.Conversation{{ID: "conv-1"}}}
	locker := newMemLocker()
	locker.lock(fmt.Sprintf("pipeline:sync:user:%d", user.ID))
	o := NewOrchestrator(db, client, locker, testLogger())

	require.NoError(t, o.RunUserSync(context.Background(), user.ID))
}

func TestRunUserSyncCoversAllActiveCampaigns(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, true)
	account := seedAccount(t, db, user.ID)

	first := seedCampaign(t, db, user.ID)
	second := seedCampaign(t, db, user.ID, func(c *models.Campaign) { c.Name = "Outbound Q4" })
	paused := seedCampaign(t, db, user.ID, func(c *models.Campaign) {
		c.Name = "Dormant"
		c.Status = models.CampaignStatusPaused
	})

	for i, campaign := range []*models.Campaign{first, second, paused} {
		p := seedProspect(t, db, user.ID, fmt.Sprintf("p-%d", i), func(pr *models.Prospect) {
			pr.ConnectionStatus = models.ConnectionStatusPending
		})
		seedEnrollment(t, db, campaign.ID, p.ID, func(e *models.CampaignProspect) {
			e.Status = models.CampaignProspectConnectionSent
		})
	}

	client := &fakeClient{conversations: []linkedin.Conversation{
		{ID: "c-0", ParticipantIDs: []string{account.ProviderAccountID, "p-0"}},
		{ID: "c-1", ParticipantIDs: []string{account.ProviderAccountID, "p-1"}},
		{ID: "c-2", ParticipantIDs: []string{account.ProviderAccountID, "p-2"}},
	}}
	o := NewOrchestrator(db, client, newMemLocker(), testLogger())

	require.NoError(t, o.RunUserSync(context.Background(), user.ID))

	armed := func(campaignID uint) bool {
		var enrollment models.CampaignProspect
		require.NoError(t, db.Where("campaign_id = ?", campaignID).First(&enrollment).Error)
		return enrollment.NextFollowUpAt != nil
	}
	assert.True(t, armed(first.ID))
	assert.True(t, armed(second.ID))
	assert.False(t, armed(paused.ID), "paused campaigns are not synced")
}
