package dto

import (
	"time"

	"github.com/noah-isme/learnpath-api/internal/models"
	"github.com/noah-isme/learnpath-api/internal/schedule"
)

// CreateLiveClassRequest schedules a new live class. All three schedule
// fields are required.
type CreateLiveClassRequest struct {
	Title       string `json:"title" validate:"required,max=50"`
	Description string `json:"description" validate:"required"`
	StartDate   string `json:"start_date" validate:"required,datestr"`
	StartTime   string `json:"start_time" validate:"required,clock"`
	EndTime     string `json:"end_time" validate:"required,clock"`
	Stack       string `json:"stack" validate:"required,stack"`
	Location    string `json:"location" validate:"required,max=50"`
	ClassLink   string `json:"class_link" validate:"required,url"`
}

// UpdateLiveClassRequest is a partial update; nil fields keep their stored
// value.
type UpdateLiveClassRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=50"`
	Description *string `json:"description" validate:"omitempty,min=1"`
	StartDate   *string `json:"start_date" validate:"omitempty,datestr"`
	StartTime   *string `json:"start_time" validate:"omitempty,clock"`
	EndTime     *string `json:"end_time" validate:"omitempty,clock"`
	Stack       *string `json:"stack" validate:"omitempty,stack"`
	Location    *string `json:"location" validate:"omitempty,min=1,max=50"`
	ClassLink   *string `json:"class_link" validate:"omitempty,url"`
}

// Empty reports whether no field was supplied.
func (r UpdateLiveClassRequest) Empty() bool {
	return r.Title == nil && r.Description == nil && r.StartDate == nil && r.StartTime == nil &&
		r.EndTime == nil && r.Stack == nil && r.Location == nil && r.ClassLink == nil
}

// SchedulePatch extracts the schedule part of the update.
func (r UpdateLiveClassRequest) SchedulePatch() schedule.Patch {
	return schedule.Patch{StartDate: r.StartDate, StartTime: r.StartTime, EndTime: r.EndTime}
}

// LiveClassResponse renders a live class with its schedule split back into
// the calendar fields clients edit.
type LiveClassResponse struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Stack       models.Stack `json:"stack"`
	Location    string       `json:"location"`
	ClassLink   string       `json:"class_link"`
	StartDate   string       `json:"start_date"`
	StartTime   string       `json:"start_time"`
	EndTime     string       `json:"end_time"`
	StartAt     time.Time    `json:"start_at"`
	EndAt       time.Time    `json:"end_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// NewLiveClassResponse converts a stored class using loc for the calendar
// fields.
func NewLiveClassResponse(c models.LiveClass, loc *time.Location) LiveClassResponse {
	w := schedule.FromInstants(c.StartAt, c.EndAt, loc)
	return LiveClassResponse{
		ID:          c.ID,
		Title:       c.Title,
		Description: c.Description,
		Stack:       c.Stack,
		Location:    c.Location,
		ClassLink:   c.ClassLink,
		StartDate:   w.StartDate,
		StartTime:   w.StartTime,
		EndTime:     w.EndTime,
		StartAt:     w.Start,
		EndAt:       w.End,
		UpdatedAt:   c.UpdatedAt,
	}
}

// CreateRecordedClassRequest publishes a recording.
type CreateRecordedClassRequest struct {
	Title       string `json:"title" validate:"required,max=50"`
	Description string `json:"description" validate:"required"`
	Date        string `json:"date" validate:"required,datestr"`
	Stack       string `json:"stack" validate:"required,stack"`
	VideoLink   string `json:"video_link" validate:"required,url"`
}

// UpdateRecordedClassRequest is a partial update of a recording.
type UpdateRecordedClassRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=50"`
	Description *string `json:"description" validate:"omitempty,min=1"`
	Date        *string `json:"date" validate:"omitempty,datestr"`
	Stack       *string `json:"stack" validate:"omitempty,stack"`
	VideoLink   *string `json:"video_link" validate:"omitempty,url"`
}

// Empty reports whether no field was supplied.
func (r UpdateRecordedClassRequest) Empty() bool {
	return r.Title == nil && r.Description == nil && r.Date == nil && r.Stack == nil && r.VideoLink == nil
}
