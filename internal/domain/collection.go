package domain

import "time"

// CourseItem is an artwork placed in a course, joined with artwork fields for display.
type CourseItem struct {
	ID          int64     `json:"id"`
	CourseID    int64     `json:"course_id"`
	Seq         int       `json:"seq"`
	ArtworkID   int64     `json:"artwork_id"`
	TitleKo     string    `json:"title_ko,omitempty"`
	TitleEn     string    `json:"title_en,omitempty"`
	PhotoDayURL string    `json:"photo_day_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// HomeBanner is an artwork featured on the home feed.
type HomeBanner struct {
	ID           int64     `json:"id"`
	ArtworkID    int64     `json:"artwork_id"`
	DisplayOrder int       `json:"display_order"`
	IsActive     bool      `json:"is_active"`
	TitleKo      string    `json:"title_ko,omitempty"`
	TitleEn      string    `json:"title_en,omitempty"`
	PhotoDayURL  string    `json:"photo_day_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
