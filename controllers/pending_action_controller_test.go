package controller

import (
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"linknexy/config"
	"linknexy/models"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newPendingActionApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, config.MigrateDB(db))

	l := logrus.New()
	l.SetOutput(io.Discard)
	pc := NewPendingActionController(db, l.WithField("component", "test"))

	app := fiber.New()
	app.Get("/api/v1/pending-actions", pc.GetPendingActions)
	return app, db
}

func seedPendingAction(t *testing.T, db *gorm.DB, userID uint, status string, expiresAt time.Time) *models.PendingAction {
	t.Helper()
	action := &models.PendingAction{
		UserID:     userID,
		ActionType: models.ActionTypeSendConnection,
		Status:     status,
		Message:    "Hi there",
		ExpiresAt:  expiresAt,
	}
	require.NoError(t, db.Create(action).Error)
	return action
}

func TestGetPendingActionsRequiresUserID(t *testing.T) {
	app, _ := newPendingActionApp(t)

	resp := doJSON(t, app, http.MethodGet, "/api/v1/pending-actions", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetPendingActionsListsOnlyReviewable(t *testing.T) {
	app, db := newPendingActionApp(t)
	now := time.Now().UTC()

	reviewable := seedPendingAction(t, db, 1, models.PendingActionPending, now.Add(24*time.Hour))
	// Overdue but not yet swept: still hidden from reviewers
	seedPendingAction(t, db, 1, models.PendingActionPending, now.Add(-time.Hour))
	seedPendingAction(t, db, 1, models.PendingActionExpired, now.Add(-time.Hour))
	seedPendingAction(t, db, 1, models.PendingActionApproved, now.Add(24*time.Hour))
	// Another user's queue
	seedPendingAction(t, db, 2, models.PendingActionPending, now.Add(24*time.Hour))

	resp := doJSON(t, app, http.MethodGet, "/api/v1/pending-actions?user_id=1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var actions []models.PendingAction
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&actions))
	require.Len(t, actions, 1)
	assert.Equal(t, reviewable.ID, actions[0].ID)
}

func TestGetPendingActionsOrdersOldestFirst(t *testing.T) {
	app, db := newPendingActionApp(t)
	now := time.Now().UTC()

	var ids []uint
	for i := 0; i < 3; i++ {
		action := seedPendingAction(t, db, 1, models.PendingActionPending, now.Add(24*time.Hour))
		require.NoError(t, db.Model(action).
			Update("created_at", now.Add(time.Duration(-i)*time.Hour)).Error)
		ids = append(ids, action.ID)
	}

	resp := doJSON(t, app, http.MethodGet, "/api/v1/pending-actions?user_id=1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var actions []models.PendingAction
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&actions))
	require.Len(t, actions, 3)
	// Seeded newest-to-oldest, listed oldest-to-newest
	assert.Equal(t, ids[2], actions[0].ID)
	assert.Equal(t, ids[0], actions[2].ID)
}
