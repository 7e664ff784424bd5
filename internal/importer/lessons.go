package importer

import (
	"strconv"

	"github.com/noah-isme/learnpath-api/pkg/validation"
)

// MaxLessonRows caps a single lesson upload.
const MaxLessonRows = 50

// LessonRow is a lesson read from a sheet.
type LessonRow struct {
	Week        int    `json:"week" validate:"gt=0"`
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"required"`
}

// LessonLayout accepts the column names instructors commonly use for lesson plans.
var LessonLayout = Layout{
	Fields: []Field{
		{Name: "week", Aliases: []string{"week", "week number", "week_no", "wk"}, Required: true, Count: true},
		{Name: "title", Aliases: []string{"title", "lesson title", "name"}, Required: true},
		{Name: "description", Aliases: []string{"description", "details", "lesson description"}},
	},
	Identity: func(r Record) string {
		week := r["week"]
		if week == "" {
			week = "no-week"
		}
		title := r["title"]
		if title == "" {
			title = "no-title"
		}
		return week + "-" + title
	},
}

// NewLessonSchema builds the lesson batch schema.
func NewLessonSchema(v *validation.Validator) *StructSchema[LessonRow] {
	return NewStructSchema(v, MaxLessonRows, "lesson", func(r Record) LessonRow {
		week, _ := strconv.Atoi(r["week"])
		return LessonRow{Week: week, Title: r["title"], Description: r["description"]}
	})
}

// LessonKey dedups lessons by week within a learning path.
func LessonKey(row LessonRow) int {
	return row.Week
}
