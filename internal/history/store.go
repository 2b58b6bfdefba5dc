// Package history keeps recent conversation turns per signed-in user in Redis.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"shopping-agent-gateway/internal/common/config"
	"shopping-agent-gateway/internal/common/database"
	"shopping-agent-gateway/internal/common/logger"
	"shopping-agent-gateway/internal/models"
)

const Component = "history"

type RedisStore struct {
	client    *database.RedisClient
	maxTurns  int
	ttl       time.Duration
	keyPrefix string
	logger    logger.Logger
}

func NewRedisStore(client *database.RedisClient, cfg config.HistoryConfig, log logger.Logger) *RedisStore {
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "agent:history:"
	}
	return &RedisStore{
		client:    client,
		maxTurns:  cfg.MaxTurns,
		ttl:       time.Duration(cfg.TTL) * time.Second,
		keyPrefix: prefix,
		logger:    logger.ForComponent(log, Component),
	}
}

func (s *RedisStore) key(userID string) string {
	return s.keyPrefix + userID
}

// Load returns up to maxTurns recent turns, oldest first. Entries that no
// longer decode are skipped.
func (s *RedisStore) Load(ctx context.Context, userID string) ([]models.ConversationMessage, error) {
	if userID == "" {
		return nil, nil
	}
	raw, err := s.client.Tail(ctx, s.key(userID), s.maxTurns)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	turns := make([]models.ConversationMessage, 0, len(raw))
	for _, entry := range raw {
		var turn models.ConversationMessage
		if err := json.Unmarshal([]byte(entry), &turn); err != nil {
			s.logger.Warn("skipping undecodable history entry", map[string]interface{}{"userId": userID})
			continue
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

// Append records turns and trims the list to maxTurns.
func (s *RedisStore) Append(ctx context.Context, userID string, turns ...models.ConversationMessage) error {
	if userID == "" || len(turns) == 0 {
		return nil
	}
	values := make([]interface{}, 0, len(turns))
	for _, turn := range turns {
		data, err := json.Marshal(turn)
		if err != nil {
			return fmt.Errorf("encode history turn: %w", err)
		}
		values = append(values, string(data))
	}
	if err := s.client.AppendBounded(ctx, s.key(userID), s.maxTurns, s.ttl, values...); err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

// Clear drops the stored history of a user.
func (s *RedisStore) Clear(ctx context.Context, userID string) error {
	return s.client.Del(ctx, s.key(userID))
}
