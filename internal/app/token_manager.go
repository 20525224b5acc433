package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/LemuelVelez/thesis-grader-sub006/internal/models"
)

const (
	timeFormat     = "2006-01-02 15:04:05"
	sessionKeyTpl  = "session:%s"  // session:${token}
	panelistKeyTpl = "panelist:%s" // panelist:${panelistID}
	chatKeyTpl     = "chat:%d"     // chat:${chatID}
	tokenPrefix    = "tg-"
)

// TokenManager issues API session tokens and keeps the telegram chat to
// panelist mappings, all in redis.
type TokenManager struct {
	redis *redis.Client
}

func NewTokenManager(redis *redis.Client) *TokenManager {
	return &TokenManager{redis: redis}
}

func generateToken() (string, error) {
	randomBytes := make([]byte, 12)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	return tokenPrefix + hex.EncodeToString(randomBytes), nil
}

// FetchOrCreateSessionToken returns the panelist's API token, minting one on
// first request. The session hash doubles as the actor record the gate reads.
func (tm *TokenManager) FetchOrCreateSessionToken(ctx context.Context, actor models.Actor) (*models.TokenInfo, bool, error) {
	panelistKey := fmt.Sprintf(panelistKeyTpl, actor.ID)

	token, err := tm.redis.Get(ctx, panelistKey).Result()
	if err != nil && err != redis.Nil {
		return nil, false, fmt.Errorf("failed to check token: %w", err)
	}

	now := time.Now().UTC()
	isNewToken := false

	if err == redis.Nil {
		token, err = generateToken()
		if err != nil {
			return nil, false, fmt.Errorf("failed to generate token: %w", err)
		}

		sessionKey := fmt.Sprintf(sessionKeyTpl, token)
		pipe := tm.redis.Pipeline()
		pipe.Set(ctx, panelistKey, token, 0)
		pipe.HSet(ctx, sessionKey, map[string]interface{}{
			"id":                    actor.ID,
			"name":                  actor.Name,
			"email":                 actor.Email,
			"role":                  actor.Role,
			"request_count":         1,
			"last_request_dttm_utc": now.Format(timeFormat),
			"created_dttm_utc":      now.Format(timeFormat),
		})

		if _, err := pipe.Exec(ctx); err != nil {
			return nil, false, fmt.Errorf("failed to create token: %w", err)
		}

		isNewToken = true
	} else {
		sessionKey := fmt.Sprintf(sessionKeyTpl, token)
		pipe := tm.redis.Pipeline()
		pipe.HIncrBy(ctx, sessionKey, "request_count", 1)
		pipe.HSet(ctx, sessionKey, "last_request_dttm_utc", now.Format(timeFormat))

		if _, err := pipe.Exec(ctx); err != nil {
			return nil, false, fmt.Errorf("failed to update token stats: %w", err)
		}
	}

	values, err := tm.redis.HGetAll(ctx, fmt.Sprintf(sessionKeyTpl, token)).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to get token info: %w", err)
	}

	lastReqTime, _ := time.Parse(timeFormat, values["last_request_dttm_utc"])
	createdTime, _ := time.Parse(timeFormat, values["created_dttm_utc"])
	reqCount, _ := strconv.Atoi(values["request_count"])

	return &models.TokenInfo{
		Token:           token,
		RequestCount:    reqCount,
		LastRequestTime: lastReqTime,
		CreatedTime:     createdTime,
	}, isNewToken, nil
}

func (tm *TokenManager) AssociateChatWithPanelist(ctx context.Context, chatID int64, mapping *models.ChatPanelistMapping) error {
	key := fmt.Sprintf(chatKeyTpl, chatID)
	return tm.redis.HSet(ctx, key, map[string]interface{}{
		"panelist_id":         mapping.PanelistID,
		"name":                mapping.Name,
		"comment":             mapping.Comment,
		"associated_dttm_utc": mapping.AssociationTime.Format(timeFormat),
		"registered_by":       mapping.RegisteredBy,
	}).Err()
}

func (tm *TokenManager) FetchPanelistByChatID(ctx context.Context, chatID int64) (*models.ChatPanelistMapping, error) {
	key := fmt.Sprintf(chatKeyTpl, chatID)

	values, err := tm.redis.HGetAll(ctx, key).Result()
	if err == redis.Nil || len(values) == 0 {
		return nil, fmt.Errorf("no panelist mapping found for chat %d", chatID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch panelist mapping for chat %d", chatID)
	}

	associationTime, _ := time.Parse(timeFormat, values["associated_dttm_utc"])
	registeredBy, _ := strconv.ParseInt(values["registered_by"], 10, 64)

	return &models.ChatPanelistMapping{
		PanelistID:      values["panelist_id"],
		Name:            values["name"],
		Comment:         values["comment"],
		AssociationTime: associationTime,
		RegisteredBy:    registeredBy,
	}, nil
}

// FetchAllChatMappings scans every chat association, keyed by chat id.
func (tm *TokenManager) FetchAllChatMappings(ctx context.Context) (map[int64]*models.ChatPanelistMapping, error) {
	// FIXME: scans are expensive
	pattern := strings.ReplaceAll(chatKeyTpl, "%d", "*")

	iter := tm.redis.Scan(ctx, 0, pattern, 0).Iterator()

	mappings := make(map[int64]*models.ChatPanelistMapping)

	for iter.Next(ctx) {
		key := iter.Val()
		chatID, err := strconv.ParseInt(strings.TrimPrefix(key, "chat:"), 10, 64)
		if err != nil {
			continue
		}

		values, err := tm.redis.HGetAll(ctx, key).Result()
		if err != nil {
			continue
		}

		associationTime, _ := time.Parse(timeFormat, values["associated_dttm_utc"])
		registeredBy, _ := strconv.ParseInt(values["registered_by"], 10, 64)

		mappings[chatID] = &models.ChatPanelistMapping{
			PanelistID:      values["panelist_id"],
			Name:            values["name"],
			Comment:         values["comment"],
			AssociationTime: associationTime,
			RegisteredBy:    registeredBy,
		}
	}

	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to fetch chat mappings: %w", err)
	}

	return mappings, nil
}

func (tm *TokenManager) Close() error {
	if tm.redis != nil {
		return tm.redis.Close()
	}
	return nil
}
