package models

import "time"

// ChatPanelistMapping links a telegram chat to a panelist account so the
// notifier can deliver evaluation reminders.
type ChatPanelistMapping struct {
	PanelistID      string    `json:"panelist_id"`
	Name            string    `json:"name"`
	Comment         string    `json:"comment"`
	AssociationTime time.Time `json:"association_time"`
	RegisteredBy    int64     `json:"registered_by"`
}
