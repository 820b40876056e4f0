package model

import "time"

// Project is a construction project owned by a single user.
// Optional text fields are pointers so that "unset" survives a round trip
// through the store as SQL NULL rather than an empty string.
type Project struct {
	ID          string    `json:"id" gorm:"primaryKey;type:uuid"`
	Name        string    `json:"name" gorm:"size:100;not null"`
	Description *string   `json:"description" gorm:"size:500"`
	Address     *string   `json:"address"`
	StartDate   *string   `json:"start_date"`
	EndDate     *string   `json:"end_date"`
	Budget      *float64  `json:"budget"`
	UserID      string    `json:"user_id" gorm:"type:uuid;index;not null"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Tasks       []Task    `json:"-" gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE"`
}
