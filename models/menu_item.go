package models

import "time"

type MenuItem struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Price     float64   `gorm:"not null" json:"price"`
	Category  string    `gorm:"type:varchar(100);not null;index" json:"category"`
	Image     *string   `gorm:"type:varchar(255)" json:"image"`
	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null" json:"updatedAt"`
}

// TableName keeps the table name stable across drivers.
func (MenuItem) TableName() string {
	return "menu_items"
}
