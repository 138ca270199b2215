package domain

import "time"

// GlobalCollection is the parent id of collections without partitioning,
// such as the home banner feed.
const GlobalCollection int64 = 0

// Member is one element of an ordered, densely numbered collection.
// Position is 1-based and unique within ParentID.
type Member struct {
	ID         int64 `json:"id"`
	ParentID   int64 `json:"parentID"`
	Position   int   `json:"position"`
	PayloadRef int64 `json:"payloadRef"`
}

// Placement is a requested position for one member.
type Placement struct {
	MemberID int64 `json:"id"`
	Position int   `json:"position"`
}

// Collection names used for cache keys and change events.
const (
	CollectionCourseItems = "course-items"
	CollectionHomeBanners = "home-banners"
)

// Collection mutation kinds.
const (
	ActionInsert  = "insert"
	ActionRemove  = "remove"
	ActionReorder = "reorder"
	ActionUpdate  = "update"
)

// CollectionEvent announces a committed change to an ordered collection.
// Subscribers are expected to re-fetch the collection.
type CollectionEvent struct {
	Collection string    `json:"collection"`
	ParentID   int64     `json:"parentID"`
	Action     string    `json:"action"`
	MemberID   int64     `json:"memberID,omitempty"`
	At         time.Time `json:"at"`
}
