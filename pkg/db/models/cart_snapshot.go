package models

import (
	"time"

	"gorm.io/datatypes"
)

// CartSnapshot mirrors the last known cart state for a user so a restarted
// process can serve it before the first fetch completes.
type CartSnapshot struct {
	UserID     string         `gorm:"column:user_id;primaryKey;size:255"`
	Items      datatypes.JSON `gorm:"column:items;type:text;not null;default:'[]'"`
	ItemCount  int            `gorm:"column:item_count;not null;default:0"`
	CartLoaded bool           `gorm:"column:cart_loaded;not null;default:false"`
	UpdatedAt  time.Time      `gorm:"column:updated_at;not null"`
}

func (CartSnapshot) TableName() string { return "cart_snapshots" }
