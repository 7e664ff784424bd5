package models

// LearningPath groups weekly lessons for a stack.
type LearningPath struct {
	ID         string   `db:"id" json:"id"`
	Stack      Stack    `db:"stack" json:"stack"`
	Instructor string   `db:"instructor" json:"instructor"`
	Lessons    []Lesson `db:"-" json:"lessons,omitempty"`
	Timestamps
}

// Lesson is one week of a learning path. Weeks are unique within a path.
type Lesson struct {
	ID             string `db:"id" json:"id"`
	LearningPathID string `db:"learning_path_id" json:"learning_path_id"`
	Week           int    `db:"week" json:"week"`
	Title          string `db:"title" json:"title"`
	Description    string `db:"description" json:"description"`
	Completed      bool   `db:"completed" json:"completed"`
	Timestamps
}

// LearningPathFilter narrows learning path listings.
type LearningPathFilter struct {
	ListParams
	Stack string
}
