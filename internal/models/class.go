package models

import "time"

// LiveClass is a scheduled session. Only the absolute start and end instants
// are stored.
type LiveClass struct {
	ID          string    `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	Stack       Stack     `db:"stack" json:"stack"`
	Location    string    `db:"location" json:"location"`
	ClassLink   string    `db:"class_link" json:"class_link"`
	StartAt     time.Time `db:"start_at" json:"start_at"`
	EndAt       time.Time `db:"end_at" json:"end_at"`
	Timestamps
}

// RecordedClass is a recording published for a stack.
type RecordedClass struct {
	ID          string    `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	ClassDate   time.Time `db:"class_date" json:"date"`
	Stack       Stack     `db:"stack" json:"stack"`
	VideoLink   string    `db:"video_link" json:"video_link"`
	Timestamps
}

// ClassFilter narrows class listings.
type ClassFilter struct {
	ListParams
	Stack string
	From  time.Time
}
