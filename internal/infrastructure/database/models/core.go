package models

import (
	"time"

	"gorm.io/gorm"
)

// Artwork is the content referenced by course items and home banners. Only the
// columns this service reads are mapped.
type Artwork struct {
	ID          int64          `json:"id" gorm:"primaryKey"`
	TitleKo     string         `json:"title_ko" gorm:"type:text;not null"`
	TitleEn     string         `json:"title_en" gorm:"type:text;not null"`
	PhotoDayURL string         `json:"photo_day_url" gorm:"column:photo_day_url;type:text"`
	CreatedAt   time.Time      `json:"created_at" gorm:"type:timestamp with time zone;not null;default:clock_timestamp()"`
	UpdatedAt   time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt   gorm.DeletedAt `json:"deleted_at" gorm:"index"`
}

// Course anchors the lock of its item collection.
type Course struct {
	ID        int64          `json:"id" gorm:"primaryKey"`
	TitleKo   string         `json:"title_ko" gorm:"type:text;not null"`
	TitleEn   string         `json:"title_en" gorm:"type:text;not null"`
	CreatedAt time.Time      `json:"created_at" gorm:"type:timestamp with time zone;not null;default:clock_timestamp()"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at" gorm:"index"`
}

// CourseItem positions are unique per course and checked per statement,
// which is why renumbering goes through a temporary offset.
type CourseItem struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	CourseID  int64     `json:"course_id" gorm:"not null;uniqueIndex:idx_course_items_course_seq,priority:1"`
	Course    Course    `json:"-" gorm:"foreignKey:CourseID;references:ID;constraint:OnDelete:CASCADE;"`
	Seq       int       `json:"seq" gorm:"not null;uniqueIndex:idx_course_items_course_seq,priority:2"`
	ArtworkID int64     `json:"artwork_id" gorm:"not null;index"`
	Artwork   Artwork   `json:"-" gorm:"foreignKey:ArtworkID;references:ID;constraint:OnDelete:RESTRICT;"`
	CreatedAt time.Time `json:"created_at" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
}

// CourseCheckin records a user visiting a course item. Its existence blocks
// removal of the item.
type CourseCheckin struct {
	ID           int64      `json:"id" gorm:"primaryKey"`
	UserID       int64      `json:"user_id" gorm:"not null;uniqueIndex:idx_course_checkins_user_item,priority:1"`
	CourseID     int64      `json:"course_id" gorm:"not null;index"`
	CourseItemID int64      `json:"course_item_id" gorm:"not null;uniqueIndex:idx_course_checkins_user_item,priority:2;index"`
	CourseItem   CourseItem `json:"-" gorm:"foreignKey:CourseItemID;references:ID;constraint:OnDelete:RESTRICT;"`
	CreatedAt    time.Time  `json:"created_at" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
}

// HomeBanner belongs to the single global banner ordering.
type HomeBanner struct {
	ID           int64     `json:"id" gorm:"primaryKey"`
	ArtworkID    int64     `json:"artwork_id" gorm:"not null;index"`
	Artwork      Artwork   `json:"-" gorm:"foreignKey:ArtworkID;references:ID;constraint:OnDelete:RESTRICT;"`
	DisplayOrder int       `json:"display_order" gorm:"not null;uniqueIndex"`
	IsActive     bool      `json:"is_active" gorm:"not null"`
	CreatedAt    time.Time `json:"created_at" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
