package remote

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"travelchat/internal/fallback"
	"travelchat/internal/model"
	"travelchat/internal/normalize"
)

var (
	compositeKey = []string{normalize.ColUserID, normalize.ColSessionID}
	sessionKey   = []string{normalize.ColSessionID}

	listColumns = []string{
		normalize.ColSessionID,
		normalize.ColPreview,
		normalize.ColTimestamp,
		normalize.ColMessages,
		normalize.ColCustomTitle,
		normalize.ColUpdatedAt,
	}
	reducedColumns = []string{
		normalize.ColSessionID,
		normalize.ColPreview,
		normalize.ColMessages,
		normalize.ColUpdatedAt,
	}
)

// Client synchronizes sessions with the shared store. Every operation is best
// effort: request shapes the store rejects are retried in a more permissive
// shape before giving up.
type Client struct {
	store  Store
	logger *zap.Logger
}

func NewClient(store Store, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{store: store, logger: logger}
}

// UpsertMany writes sessions for ownerID. It never fails: when every bulk
// shape is rejected it falls back to insert-or-update per session and logs
// each session it could not write.
func (c *Client) UpsertMany(ctx context.Context, sessions []model.Session, ownerID string) {
	if ownerID == "" || len(sessions) == 0 {
		return
	}

	eligible := make([]model.Session, 0, len(sessions))
	for _, s := range sessions {
		if s.ID == "" || len(s.Messages) < model.MinPersistedMessages {
			continue
		}
		eligible = append(eligible, s)
	}
	if len(eligible) == 0 {
		return
	}

	fullRows := make([]normalize.Row, 0, len(eligible))
	minimalRows := make([]normalize.Row, 0, len(eligible))
	for _, s := range eligible {
		fullRows = append(fullRows, normalize.SessionToRow(s, ownerID))
		minimalRows = append(minimalRows, normalize.SessionToMinimalRow(s, ownerID))
	}

	ladder := fallback.Steps("upsert sessions", c.logger.With(zap.String("owner_id", ownerID)),
		fallback.Step("full row on owner+session", func(ctx context.Context) error {
			return c.store.Upsert(ctx, fullRows, compositeKey)
		}),
		fallback.Step("minimal row on owner+session", func(ctx context.Context) error {
			return c.store.Upsert(ctx, minimalRows, compositeKey)
		}),
		fallback.Step("minimal row on session", func(ctx context.Context) error {
			return c.store.Upsert(ctx, minimalRows, sessionKey)
		}),
	)
	ladder.Final = func(ctx context.Context) (struct{}, error) {
		c.upsertEach(ctx, eligible, ownerID)
		return struct{}{}, nil
	}
	_, _ = ladder.Climb(ctx)
}

func (c *Client) upsertEach(ctx context.Context, sessions []model.Session, ownerID string) {
	for _, s := range sessions {
		row := normalize.SessionToMinimalRow(s, ownerID)
		insertErr := c.store.Insert(ctx, row)
		if insertErr == nil {
			continue
		}

		fields := normalize.Row{
			normalize.ColPreview:   row[normalize.ColPreview],
			normalize.ColMessages:  row[normalize.ColMessages],
			normalize.ColUpdatedAt: row[normalize.ColUpdatedAt],
		}
		if err := c.store.Update(ctx, ownerFilter(s.ID, ownerID), fields); err != nil {
			c.logger.Error("sync session failed",
				zap.String("owner_id", ownerID),
				zap.String("session_id", s.ID),
				zap.NamedError("insert_error", insertErr),
				zap.Error(err),
			)
		}
	}
}

// LoadAll returns every row stored for ownerID, most recent first when the
// store supports ordering. The error wraps fallback.ErrExhausted when no
// select shape worked; callers then fall back to local data.
func (c *Client) LoadAll(ctx context.Context, ownerID string) ([]normalize.Row, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("load sessions failed: missing owner id")
	}

	filter := Filter{normalize.ColUserID: ownerID}
	selectRung := func(name string, q Query) fallback.Rung[[]normalize.Row] {
		q.Filter = filter
		return fallback.Rung[[]normalize.Row]{
			Name: name,
			Do: func(ctx context.Context) ([]normalize.Row, error) {
				return c.store.Select(ctx, q)
			},
		}
	}

	rows, err := fallback.Ladder[[]normalize.Row]{
		Op:     "load sessions",
		Logger: c.logger.With(zap.String("owner_id", ownerID)),
		Rungs: []fallback.Rung[[]normalize.Row]{
			selectRung("ordered", Query{Columns: listColumns, OrderBy: normalize.ColTimestamp, Desc: true}),
			selectRung("unordered", Query{Columns: listColumns}),
			selectRung("reduced columns", Query{Columns: reducedColumns}),
			selectRung("all columns", Query{}),
		},
	}.Climb(ctx)
	if err != nil {
		c.logger.Error("load sessions failed", zap.String("owner_id", ownerID), zap.Error(err))
		return nil, err
	}
	return rows, nil
}

// DeleteOne removes one session row. Failures are logged only.
func (c *Client) DeleteOne(ctx context.Context, sessionID, ownerID string) {
	if ownerID == "" || sessionID == "" {
		return
	}
	if err := c.store.Delete(ctx, ownerFilter(sessionID, ownerID)); err != nil {
		c.logger.Warn("delete remote session failed",
			zap.String("owner_id", ownerID),
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
	}
}

// UpdateFields patches one session row. The error is returned so callers can
// retry with fewer fields.
func (c *Client) UpdateFields(ctx context.Context, sessionID, ownerID string, fields normalize.Row) error {
	if ownerID == "" || sessionID == "" {
		return nil
	}
	if err := c.store.Update(ctx, ownerFilter(sessionID, ownerID), fields); err != nil {
		return fmt.Errorf("update remote session failed: %w", err)
	}
	return nil
}

func ownerFilter(sessionID, ownerID string) Filter {
	return Filter{
		normalize.ColUserID:    ownerID,
		normalize.ColSessionID: sessionID,
	}
}
