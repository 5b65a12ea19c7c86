package worker

import (
	"context"
	"errors"
	"fmt"

	"linknexy/linkedin"
	"linknexy/models"
	"linknexy/utils"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// maxDiscoveryBatch caps how many candidates one cycle requests from the
// provider search, independently of the daily send quota. Discovering far
// more profiles than we can ever contact just stockpiles stale candidates.
const maxDiscoveryBatch = 25

// DiscoverStage finds new candidate prospects matching the campaign's
// targeting criteria and enrolls them into the campaign queue. Discovery is
// idempotent: re-running it against an unchanged result set creates no
// duplicate prospects or enrollments.
type DiscoverStage struct {
	DB     *gorm.DB
	Client linkedin.Client
	Logger *logrus.Entry
}

func NewDiscoverStage(db *gorm.DB, client linkedin.Client, logger *logrus.Entry) *DiscoverStage {
	return &DiscoverStage{DB: db, Client: client, Logger: logger}
}

func (s *DiscoverStage) Name() string { return "discover" }

func (s *DiscoverStage) Run(ctx context.Context, campaign *models.Campaign, account *models.LinkedInAccount) error {
	query := utils.BuildSearchQuery(campaign.JobTitles, campaign.Locations, campaign.Industries, campaign.Keywords)
	if query == "" {
		s.Logger.WithField("campaign_id", campaign.ID).Info("no usable targeting criteria, skipping discovery")
		return nil
	}

	limit := campaign.DailyConnectionLimit
	if limit > maxDiscoveryBatch {
		limit = maxDiscoveryBatch
	}
	if limit <= 0 {
		s.Logger.WithField("campaign_id", campaign.ID).Info("connection limit is zero, skipping discovery")
		return nil
	}

	profiles, err := s.Client.SearchProfiles(ctx, account.ProviderAccountID, query, limit)
	if err != nil {
		return fmt.Errorf("profile search: %w", err)
	}

	discovered := 0
	for _, profile := range profiles {
		enrolled, err := s.enroll(campaign, profile)
		if err != nil {
			s.Logger.WithError(err).WithFields(logrus.Fields{
				"campaign_id": campaign.ID,
				"profile_id":  profile.ProviderID,
			}).Error("failed to enroll discovered profile")
			continue
		}
		if enrolled {
			discovered++
		}
	}

	if discovered > 0 {
		if err := logActivity(s.DB, campaign.UserID, &campaign.ID, nil,
			models.EventProspectsDiscovered,
			fmt.Sprintf("discovered %d new prospects for %q", discovered, campaign.Name)); err != nil {
			s.Logger.WithError(err).Warn("failed to record discovery activity")
		}
	}

	s.Logger.WithFields(logrus.Fields{
		"campaign_id": campaign.ID,
		"found":       len(profiles),
		"enrolled":    discovered,
	}).Info("discovery finished")
	return nil
}

// enroll upserts the prospect for the campaign's user and queues it in this
// campaign. Returns true when a new enrollment was created.
func (s *DiscoverStage) enroll(campaign *models.Campaign, profile linkedin.Profile) (bool, error) {
	// Prefer the provider id as the stable handle, fall back to the URL.
	externalID := profile.ProviderID
	if externalID == "" {
		externalID = profile.PublicURL
	}
	if externalID == "" {
		return false, errors.New("profile has no usable identifier")
	}

	firstName, lastName := profile.FirstName, profile.LastName
	if firstName == "" && lastName == "" {
		firstName, lastName = utils.SplitName(profile.FullName)
	}

	var prospect models.Prospect
	err := s.DB.Where("user_id = ? AND external_profile_id = ?", campaign.UserID, externalID).
		First(&prospect).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		prospect = models.Prospect{
			UserID:            campaign.UserID,
			ExternalProfileID: externalID,
			FirstName:         firstName,
			LastName:          lastName,
			Headline:          profile.Headline,
			Company:           profile.Company,
			ProfileURL:        profile.PublicURL,
			AvatarURL:         profile.AvatarURL,
			ConnectionStatus:  models.ConnectionStatusNone,
		}
		if err := s.DB.Create(&prospect).Error; err != nil {
			return false, err
		}
	case err != nil:
		return false, err
	default:
		// Refresh the denormalized profile attributes on re-discovery
		if err := s.DB.Model(&prospect).Updates(map[string]interface{}{
			"first_name":  firstName,
			"last_name":   lastName,
			"headline":    profile.Headline,
			"company":     profile.Company,
			"profile_url": profile.PublicURL,
			"avatar_url":  profile.AvatarURL,
		}).Error; err != nil {
			return false, err
		}
	}

	var enrollment models.CampaignProspect
	err = s.DB.Where("campaign_id = ? AND prospect_id = ?", campaign.ID, prospect.ID).
		First(&enrollment).Error
	if err == nil {
		// Already enrolled in this campaign
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	if err := s.DB.Create(&models.CampaignProspect{
		CampaignID: campaign.ID,
		ProspectID: prospect.ID,
		Status:     models.CampaignProspectQueued,
	}).Error; err != nil {
		return false, err
	}
	return true, nil
}
