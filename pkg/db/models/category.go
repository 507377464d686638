package models

import "time"

type Category struct {
	ID               int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Name             string    `gorm:"column:name;not null"`
	Description      *string   `gorm:"column:description"`
	ParentCategoryID *int64    `gorm:"column:parent_category_id"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`
}
