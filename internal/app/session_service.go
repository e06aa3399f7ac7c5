package app

import (
	"context"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"travelchat/internal/cache"
	"travelchat/internal/fallback"
	"travelchat/internal/model"
	"travelchat/internal/normalize"
	"travelchat/internal/remote"
)

const (
	DefaultPreview  = "New Trip"
	previewMaxRunes = 30
	previewEllipsis = "..."
)

// SyncDispatcher hands a remote upsert off to run after the caller returns.
// Its outcome is only observed through logs.
type SyncDispatcher interface {
	Dispatch(ctx context.Context, job model.SyncJob) error
}

// SessionService is the only component that coordinates the device-local
// session cache with the shared remote store. The local cache is always
// written first and is what callers see; remote work is best effort.
//
// Operations do not lock. Two overlapping calls for the same session each
// read, modify and write the whole map, so the last write wins.
type SessionService struct {
	cache      *cache.SessionCache
	remote     *remote.Client
	dispatcher SyncDispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// NewSessionService wires the service. remoteClient and dispatcher may be nil,
// which leaves the service in local-only mode.
func NewSessionService(
	sessionCache *cache.SessionCache,
	remoteClient *remote.Client,
	dispatcher SyncDispatcher,
	logger *zap.Logger,
) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{
		cache:      sessionCache,
		remote:     remoteClient,
		dispatcher: dispatcher,
		logger:     logger,
		now:        time.Now,
	}
}

// SetClock replaces the time source; tests use it to pin timestamps.
func (s *SessionService) SetClock(now func() time.Time) {
	s.now = now
}

// Save records the chat under sessionID. Chats with fewer than two messages
// are not started yet and are ignored. The returned bool reports whether
// anything was written.
func (s *SessionService) Save(ctx context.Context, messages []model.Message, sessionID, ownerID string) (model.Session, bool) {
	if len(messages) < model.MinPersistedMessages || sessionID == "" {
		return model.Session{}, false
	}

	sessions := s.cache.Read(ctx)
	existing, exists := sessions[sessionID]

	record := model.Session{
		ID:        sessionID,
		Preview:   DerivePreview(messages),
		Timestamp: s.now().UnixMilli(),
		Messages:  append([]model.Message(nil), messages...),
	}
	if exists {
		if existing.Timestamp > 0 {
			record.Timestamp = existing.Timestamp
		}
		if existing.CustomTitle {
			record.Preview = existing.Preview
			record.CustomTitle = true
		}
	}

	sessions[sessionID] = record
	s.cache.Write(ctx, sessions)
	s.forgetDeleted(ctx, sessionID)

	s.syncInBackground(ctx, ownerID, []model.Session{record})
	return record, true
}

// LoadAllFor returns the sessions visible on this device, most recent first.
// With an owner, local sessions are pushed to the remote store, then remote
// rows are merged over the local ones and the merged map is cached. A row
// without a custom title column keeps the local custom title.
func (s *SessionService) LoadAllFor(ctx context.Context, ownerID string) []model.Session {
	local := s.cache.Read(ctx)
	if ownerID == "" || s.remote == nil {
		return model.SessionList(local)
	}

	deleted := s.cache.ReadDeleted(ctx)
	for id := range deleted {
		s.remote.DeleteOne(ctx, id, ownerID)
	}

	s.remote.UpsertMany(ctx, model.SessionList(local), ownerID)

	rows, err := s.remote.LoadAll(ctx, ownerID)
	if err != nil {
		s.logger.Warn("remote sessions unavailable, serving local sessions",
			zap.String("owner_id", ownerID),
			zap.Int("local_count", len(local)),
		)
		return model.SessionList(local)
	}

	now := s.now()
	seen := make(map[string]bool, len(rows))
	for _, row := range rows {
		session, ok := normalize.RowToSession(row, now)
		if !ok {
			s.logger.Debug("skip remote row without session id", zap.String("owner_id", ownerID))
			continue
		}
		seen[session.ID] = true
		if _, gone := deleted[session.ID]; gone {
			continue
		}
		if prev, ok := local[session.ID]; ok && prev.CustomTitle && !normalize.HasCustomTitle(row) {
			session.CustomTitle = true
			session.Preview = prev.Preview
		}
		local[session.ID] = session
	}
	s.cache.Write(ctx, local)

	if len(deleted) > 0 {
		pending := make(map[string]int64)
		for id, at := range deleted {
			if seen[id] {
				pending[id] = at
			}
		}
		if len(pending) != len(deleted) {
			s.cache.WriteDeleted(ctx, pending)
		}
	}

	return model.SessionList(local)
}

// LoadMessages returns the stored history of one session.
func (s *SessionService) LoadMessages(ctx context.Context, sessionID string) ([]model.Message, bool) {
	if sessionID == "" {
		return nil, false
	}
	session, ok := s.cache.Read(ctx)[sessionID]
	if !ok {
		return nil, false
	}
	return session.Messages, true
}

// DeleteFor removes the session locally right away and, with an owner, from
// the remote store. The id is remembered until a remote load no longer
// returns it, so a failed remote delete cannot bring the session back.
func (s *SessionService) DeleteFor(ctx context.Context, sessionID, ownerID string) {
	if sessionID == "" {
		return
	}

	sessions := s.cache.Read(ctx)
	delete(sessions, sessionID)
	s.cache.Write(ctx, sessions)

	deleted := s.cache.ReadDeleted(ctx)
	deleted[sessionID] = s.now().UnixMilli()
	s.cache.WriteDeleted(ctx, deleted)

	if ownerID != "" && s.remote != nil {
		s.remote.DeleteOne(ctx, sessionID, ownerID)
	}
}

// RenameFor sets a user-chosen title. Automatic previews never overwrite it
// afterwards. The bool is false when the session is not on this device.
func (s *SessionService) RenameFor(ctx context.Context, sessionID, newName, ownerID string) (model.Session, bool) {
	sessions := s.cache.Read(ctx)
	record, ok := sessions[sessionID]
	if !ok {
		return model.Session{}, false
	}

	ts := s.now().UnixMilli()
	if ts < record.Timestamp {
		ts = record.Timestamp
	}
	record.Preview = newName
	record.CustomTitle = true
	record.Timestamp = ts
	sessions[sessionID] = record
	s.cache.Write(ctx, sessions)

	if ownerID == "" || s.remote == nil {
		return record, true
	}

	updatedAt := normalize.ISOTime(ts)
	_, err := fallback.Steps("rename session", s.logger.With(zap.String("session_id", sessionID)),
		fallback.Step("all fields", func(ctx context.Context) error {
			return s.remote.UpdateFields(ctx, sessionID, ownerID, normalize.Row{
				normalize.ColPreview:     newName,
				normalize.ColCustomTitle: true,
				normalize.ColTimestamp:   ts,
				normalize.ColUpdatedAt:   updatedAt,
			})
		}),
		fallback.Step("preview only", func(ctx context.Context) error {
			return s.remote.UpdateFields(ctx, sessionID, ownerID, normalize.Row{
				normalize.ColPreview:   newName,
				normalize.ColUpdatedAt: updatedAt,
			})
		}),
	).Climb(ctx)
	if err != nil {
		s.logger.Error("rename remote session failed",
			zap.String("owner_id", ownerID),
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
	}
	return record, true
}

func (s *SessionService) syncInBackground(ctx context.Context, ownerID string, sessions []model.Session) {
	if ownerID == "" || s.dispatcher == nil {
		return
	}
	job := model.SyncJob{OwnerID: ownerID, Sessions: sessions}
	if err := s.dispatcher.Dispatch(context.WithoutCancel(ctx), job); err != nil {
		s.logger.Warn("dispatch session sync failed",
			zap.String("owner_id", ownerID),
			zap.Error(err),
		)
	}
}

func (s *SessionService) forgetDeleted(ctx context.Context, sessionID string) {
	deleted := s.cache.ReadDeleted(ctx)
	if _, ok := deleted[sessionID]; !ok {
		return
	}
	delete(deleted, sessionID)
	s.cache.WriteDeleted(ctx, deleted)
}

// DerivePreview labels a chat by its first user message, cut to 30
// characters and always followed by "...". Chats without user text get
// DefaultPreview as is, with no "..." appended.
func DerivePreview(messages []model.Message) string {
	for _, m := range messages {
		if m.Role != model.RoleUser {
			continue
		}
		if m.Text == "" {
			break
		}
		text := m.Text
		if utf8.RuneCountInString(text) > previewMaxRunes {
			text = string([]rune(text)[:previewMaxRunes])
		}
		return text + previewEllipsis
	}
	return DefaultPreview
}
