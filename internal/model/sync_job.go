package model

// SyncJob asks a worker to push sessions to the remote store for one owner.
type SyncJob struct {
	OwnerID  string    `json:"owner_id"`
	Sessions []Session `json:"sessions"`
}
