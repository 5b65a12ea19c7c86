package linkedin

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// Profile is a candidate returned by the provider's people search.
type Profile struct {
	ProviderID string `json:"provider_id"`
	PublicURL  string `json:"public_url"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	FullName   string `json:"full_name"`
	Headline   string `json:"headline"`
	Company    string `json:"company"`
	AvatarURL  string `json:"avatar_url"`
}

// Conversation is a chat thread on a connected account. LastSenderID is the
// provider id of the participant who sent the newest message, which is how
// the sync stage spots replies.
type Conversation struct {
	ID             string   `json:"id"`
	ParticipantIDs []string `json:"participant_ids"`
	LastSenderID   string   `json:"last_sender_id"`
}

// Client is the boundary to the LinkedIn automation provider. One
// implementation talks HTTP to the provider; tests substitute a fake.
type Client interface {
	// IsConfigured reports whether the provider holds valid credentials for
	// the account. False is an expected skip condition, not an error.
	IsConfigured(ctx context.Context, accountID string) bool
	SearchProfiles(ctx context.Context, accountID, keywords string, limit int) ([]Profile, error)
	SendConnectionRequest(ctx context.Context, accountID, profileID, message string) error
	ListConversations(ctx context.Context, accountID string, limit int) ([]Conversation, error)
	// StartConversation opens a new thread by messaging the profile
	// directly and returns the new conversation id.
	StartConversation(ctx context.Context, accountID, profileID, message string) (string, error)
	SendMessage(ctx context.Context, conversationID, text string) error
}

// ProviderClient implements Client against the automation provider's REST
// API.
type ProviderClient struct {
	http   *resty.Client
	logger *logrus.Entry
}

func NewProviderClient(baseURL, apiKey string, logger *logrus.Entry) *ProviderClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("X-Api-Key", apiKey).
		SetHeader("Accept", "application/json").
		SetTimeout(30 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(2 * time.Second)

	return &ProviderClient{
		http:   client,
		logger: logger,
	}
}

type accountStatusResponse struct {
	AccountID  string `json:"account_id"`
	Configured bool   `json:"configured"`
}

func (c *ProviderClient) IsConfigured(ctx context.Context, accountID string) bool {
	var out accountStatusResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get(fmt.Sprintf("/api/v1/accounts/%s/status", accountID))
	if err != nil {
		c.logger.WithError(err).WithField("account_id", accountID).Warn("account status check failed")
		return false
	}
	if resp.IsError() {
		return false
	}
	return out.Configured
}

type searchResponse struct {
	Profiles []Profile `json:"profiles"`
}

func (c *ProviderClient) SearchProfiles(ctx context.Context, accountID, keywords string, limit int) ([]Profile, error) {
	var out searchResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]interface{}{
			"keywords": keywords,
			"limit":    limit,
		}).
		SetResult(&out).
		Post(fmt.Sprintf("/api/v1/accounts/%s/search", accountID))
	if err != nil {
		return nil, fmt.Errorf("profile search failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("profile search failed: %s", resp.Status())
	}
	return out.Profiles, nil
}

type sendResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func (c *ProviderClient) SendConnectionRequest(ctx context.Context, accountID, profileID, message string) error {
	var out sendResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]interface{}{
			"profile_id": profileID,
			"message":    message,
		}).
		SetResult(&out).
		Post(fmt.Sprintf("/api/v1/accounts/%s/invitations", accountID))
	if err != nil {
		return fmt.Errorf("connection request failed: %w", err)
	}
	if resp.IsError() || !out.Success {
		return fmt.Errorf("connection request rejected: %s", firstNonEmpty(out.Error, resp.Status()))
	}
	return nil
}

type conversationsResponse struct {
	Conversations []Conversation `json:"conversations"`
}

func (c *ProviderClient) ListConversations(ctx context.Context, accountID string, limit int) ([]Conversation, error) {
	var out conversationsResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("limit", fmt.Sprintf("%d", limit)).
		SetResult(&out).
		Get(fmt.Sprintf("/api/v1/accounts/%s/conversations", accountID))
	if err != nil {
		return nil, fmt.Errorf("conversation list failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("conversation list failed: %s", resp.Status())
	}
	return out.Conversations, nil
}

type startConversationResponse struct {
	ConversationID string `json:"conversation_id"`
	Error          string `json:"error"`
}

func (c *ProviderClient) StartConversation(ctx context.Context, accountID, profileID, message string) (string, error) {
	var out startConversationResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]interface{}{
			"profile_id": profileID,
			"message":    message,
		}).
		SetResult(&out).
		Post(fmt.Sprintf("/api/v1/accounts/%s/conversations", accountID))
	if err != nil {
		return "", fmt.Errorf("start conversation failed: %w", err)
	}
	if resp.IsError() || out.ConversationID == "" {
		return "", fmt.Errorf("start conversation rejected: %s", firstNonEmpty(out.Error, resp.Status()))
	}
	return out.ConversationID, nil
}

func (c *ProviderClient) SendMessage(ctx context.Context, conversationID, text string) error {
	var out sendResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]interface{}{
			"text": text,
		}).
		SetResult(&out).
		Post(fmt.Sprintf("/api/v1/conversations/%s/messages", conversationID))
	if err != nil {
		return fmt.Errorf("send message failed: %w", err)
	}
	if resp.IsError() || !out.Success {
		return fmt.Errorf("send message rejected: %s", firstNonEmpty(out.Error, resp.Status()))
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return "unknown"
}
