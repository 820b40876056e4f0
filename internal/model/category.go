package model

import "time"

// WorkCategory groups tasks by trade (electrical, plumbing, masonry, ...).
// Reference data: the client never creates or edits categories.
type WorkCategory struct {
	ID        string    `json:"id" gorm:"primaryKey;type:uuid"`
	Name      string    `json:"name" gorm:"not null;uniqueIndex"`
	CreatedAt time.Time `json:"created_at"`
	Tasks     []Task    `json:"-" gorm:"foreignKey:CategoryID;constraint:OnDelete:RESTRICT"`
}
