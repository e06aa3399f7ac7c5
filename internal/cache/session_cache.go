package cache

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"travelchat/internal/model"
)

const DefaultSessionKey = "travel_chat_sessions"

// SessionCache persists the whole id -> session map under a single key.
// Neither Read nor Write report errors: a corrupt or unreachable store reads
// as "no sessions" and a failed write is only logged.
type SessionCache struct {
	kv     KV
	key    string
	logger *zap.Logger
}

func NewSessionCache(kv KV, key string, logger *zap.Logger) *SessionCache {
	if key == "" {
		key = DefaultSessionKey
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionCache{kv: kv, key: key, logger: logger}
}

func (c *SessionCache) Read(ctx context.Context) map[string]model.Session {
	sessions := make(map[string]model.Session)

	raw, ok, err := c.kv.Get(ctx, c.key)
	if err != nil {
		c.logger.Warn("read session cache failed", zap.String("key", c.key), zap.Error(err))
		return sessions
	}
	if !ok || raw == "" {
		return sessions
	}

	var stored map[string]model.Session
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		c.logger.Warn("session cache is corrupt, treating as empty", zap.String("key", c.key), zap.Error(err))
		return sessions
	}
	for id, s := range stored {
		if s.ID == "" {
			s.ID = id
		}
		sessions[id] = s
	}
	return sessions
}

func (c *SessionCache) Write(ctx context.Context, sessions map[string]model.Session) {
	if sessions == nil {
		sessions = map[string]model.Session{}
	}
	payload, err := json.Marshal(sessions)
	if err != nil {
		c.logger.Error("encode session cache failed", zap.Error(err))
		return
	}
	if err := c.kv.Set(ctx, c.key, string(payload)); err != nil {
		c.logger.Error("write session cache failed", zap.String("key", c.key), zap.Error(err))
	}
}

// ReadDeleted returns ids deleted on this device that the remote store may
// still hold, mapped to the deletion time in unix milliseconds.
func (c *SessionCache) ReadDeleted(ctx context.Context) map[string]int64 {
	deleted := make(map[string]int64)

	raw, ok, err := c.kv.Get(ctx, c.deletedKey())
	if err != nil {
		c.logger.Warn("read deleted sessions failed", zap.String("key", c.deletedKey()), zap.Error(err))
		return deleted
	}
	if !ok || raw == "" {
		return deleted
	}
	if err := json.Unmarshal([]byte(raw), &deleted); err != nil {
		c.logger.Warn("deleted sessions list is corrupt, treating as empty", zap.Error(err))
		return make(map[string]int64)
	}
	return deleted
}

func (c *SessionCache) WriteDeleted(ctx context.Context, deleted map[string]int64) {
	if deleted == nil {
		deleted = map[string]int64{}
	}
	payload, err := json.Marshal(deleted)
	if err != nil {
		c.logger.Error("encode deleted sessions failed", zap.Error(err))
		return
	}
	if err := c.kv.Set(ctx, c.deletedKey(), string(payload)); err != nil {
		c.logger.Error("write deleted sessions failed", zap.String("key", c.deletedKey()), zap.Error(err))
	}
}

func (c *SessionCache) deletedKey() string {
	return c.key + "_deleted"
}
