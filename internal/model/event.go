package model

import (
	"time"

	"gorm.io/gorm"
)

type Event struct {
	ID          uint           `gorm:"primarykey" json:"id"`
	Title       string         `json:"title" gorm:"not null"`
	Description string         `json:"description,omitempty" gorm:"type:text"`
	Venue       string         `json:"venue,omitempty"`
	StartsAt    *time.Time     `json:"starts_at,omitempty"`
	CreatedBy   uint           `json:"created_by" gorm:"index"`
	Rounds      []Round        `json:"rounds,omitempty" gorm:"foreignKey:EventID"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}
