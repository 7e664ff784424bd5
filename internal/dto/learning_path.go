package dto

// CreateLearningPathRequest creates an empty learning path.
type CreateLearningPathRequest struct {
	Stack      string `json:"stack" validate:"required,stack"`
	Instructor string `json:"instructor" validate:"required,max=100"`
}

// UpdateLearningPathRequest is a partial update of a learning path.
type UpdateLearningPathRequest struct {
	Stack      *string `json:"stack" validate:"omitempty,stack"`
	Instructor *string `json:"instructor" validate:"omitempty,min=1,max=100"`
}

// LessonRequest adds one lesson to a path.
type LessonRequest struct {
	Week        int    `json:"week" validate:"required,gt=0"`
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"required"`
}

// UpdateLessonRequest is a partial update of a lesson.
type UpdateLessonRequest struct {
	Week        *int    `json:"week" validate:"omitempty,gt=0"`
	Title       *string `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description" validate:"omitempty,min=1"`
}

// Empty reports whether no field was supplied.
func (r UpdateLessonRequest) Empty() bool {
	return r.Week == nil && r.Title == nil && r.Description == nil
}
