package worker

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"linknexy/config"
	"linknexy/linkedin"
	"linknexy/models"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, config.MigrateDB(db))
	return db
}

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l.WithField("component", "test")
}

// fakeClient is an in-memory linkedin.Client that records every call.
type fakeClient struct {
	mu sync.Mutex

	notConfigured bool

	searchResults []linkedin.Profile
	searchErr     error
	searchCalls   int

	connectionErr      error
	connectionRequests []string

	conversations    []linkedin.Conversation
	conversationsErr error

	startedWith  []string
	sentMessages []string
}

func (f *fakeClient) IsConfigured(ctx context.Context, accountID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.notConfigured
}

func (f *fakeClient) SearchProfiles(ctx context.Context, accountID, keywords string, limit int) ([]linkedin.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchCalls++
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if len(f.searchResults) > limit {
		return f.searchResults[:limit], nil
	}
	return f.searchResults, nil
}

func (f *fakeClient) SendConnectionRequest(ctx context.Context, accountID, profileID, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.connectionErr != nil {
		return f.connectionErr
	}
	f.connectionRequests = append(f.connectionRequests, profileID)
	return nil
}

func (f *fakeClient) ListConversations(ctx context.Context, accountID string, limit int) ([]linkedin.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conversationsErr != nil {
		return nil, f.conversationsErr
	}
	return f.conversations, nil
}

func (f *fakeClient) StartConversation(ctx context.Context, accountID, profileID, message string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startedWith = append(f.startedWith, profileID)
	return fmt.Sprintf("conv-%d", len(f.startedWith)), nil
}

func (f *fakeClient) SendMessage(ctx context.Context, conversationID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sentMessages = append(f.sentMessages, text)
	return nil
}

// memLocker is an in-process Locker for tests.
type memLocker struct {
	mu   sync.Mutex
	held map[string]string
	next int
}

func newMemLocker() *memLocker {
	return &memLocker{held: make(map[string]string)}
}

func (l *memLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[key]; ok {
		return "", false, nil
	}
	l.next++
	token := fmt.Sprintf("token-%d", l.next)
	l.held[key] = token
	return token, true, nil
}

func (l *memLocker) Extend(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held[key] == token, nil
}

func (l *memLocker) Release(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == token {
		delete(l.held, key)
	}
	return nil
}

// lock pre-holds a key, simulating a run still in flight elsewhere.
func (l *memLocker) lock(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held[key] = "foreign-token"
}

func seedUser(t *testing.T, db *gorm.DB, autopilot bool) *models.User {
	t.Helper()
	user := &models.User{Email: fmt.Sprintf("user-%d@example.com", time.Now().UnixNano()), Name: "Test User"}
	require.NoError(t, db.Create(user).Error)
	require.NoError(t, db.Create(&models.UserSettings{
		UserID:           user.ID,
		AutopilotEnabled: autopilot,
	}).Error)
	return user
}

func seedAccount(t *testing.T, db *gorm.DB, userID uint) *models.LinkedInAccount {
	t.Helper()
	account := &models.LinkedInAccount{
		UserID:            userID,
		ProviderAccountID: fmt.Sprintf("acct-%d", userID),
		DisplayName:       "Connected Account",
		Status:            models.AccountStatusActive,
	}
	require.NoError(t, db.Create(account).Error)
	return account
}

func seedCampaign(t *testing.T, db *gorm.DB, userID uint, mutate ...func(*models.Campaign)) *models.Campaign {
	t.Helper()
	campaign := &models.Campaign{
		UserID:               userID,
		Name:                 "Outbound Q3",
		JobTitles:            []string{"CTO"},
		Locations:            []string{"Berlin"},
		ConnectionMessage:    "Hi {{first_name}}, let's connect",
		FollowUps:            []models.FollowUpStep{{Message: "Hi {{first_name}}, following up", DelayDays: 2}},
		DailyConnectionLimit: 20,
		DailyMessageLimit:    30,
		Status:               models.CampaignStatusActive,
	}
	for _, m := range mutate {
		m(campaign)
	}
	require.NoError(t, db.Create(campaign).Error)
	return campaign
}

func seedProspect(t *testing.T, db *gorm.DB, userID uint, externalID string, mutate ...func(*models.Prospect)) *models.Prospect {
	t.Helper()
	prospect := &models.Prospect{
		UserID:            userID,
		ExternalProfileID: externalID,
		FirstName:         "Ada",
		LastName:          "Lovelace",
		Company:           "Analytical Engines",
		ConnectionStatus:  models.ConnectionStatusNone,
	}
	for _, m := range mutate {
		m(prospect)
	}
	require.NoError(t, db.Create(prospect).Error)
	return prospect
}

func seedEnrollment(t *testing.T, db *gorm.DB, campaignID, prospectID uint, mutate ...func(*models.CampaignProspect)) *models.CampaignProspect {
	t.Helper()
	enrollment := &models.CampaignProspect{
		CampaignID: campaignID,
		ProspectID: prospectID,
		Status:     models.CampaignProspectQueued,
	}
	for _, m := range mutate {
		m(enrollment)
	}
	require.NoError(t, db.Create(enrollment).Error)
	return enrollment
}

func countActivities(t *testing.T, db *gorm.DB, campaignID uint, eventType string) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&models.ActivityLog{}).
		Where("campaign_id = ? AND event_type = ?", campaignID, eventType).
		Count(&count).Error)
	return count
}
