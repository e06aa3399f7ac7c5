package model

import "gorm.io/datatypes"

// ChatSessionRow is the schema of the shared chat_sessions table.
// Writes go through column maps, so older deployments missing optional
// columns (custom_title, timestamp) keep working through the minimal row.
type ChatSessionRow struct {
	ID          uint           `gorm:"primaryKey"`
	UserID      string         `gorm:"column:user_id;size:64;not null;uniqueIndex:idx_chat_sessions_owner_session"`
	SessionID   string         `gorm:"column:session_id;size:64;not null;uniqueIndex:idx_chat_sessions_owner_session"`
	Preview     string         `gorm:"column:preview;size:255"`
	Timestamp   int64          `gorm:"column:timestamp;index"`
	Messages    datatypes.JSON `gorm:"column:messages"`
	CustomTitle bool           `gorm:"column:custom_title;not null;default:false"`
	UpdatedAt   string         `gorm:"column:updated_at;size:40"`
}

func (ChatSessionRow) TableName() string {
	return "chat_sessions"
}
