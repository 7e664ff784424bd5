package importer

import (
	"strings"

	"github.com/noah-isme/learnpath-api/pkg/validation"
)

// MaxStudentRows caps a single student upload.
const MaxStudentRows = 100

// StudentRow is a student read from a sheet.
type StudentRow struct {
	Firstname string `json:"firstname" validate:"required,max=50"`
	Lastname  string `json:"lastname" validate:"required,max=50"`
	Email     string `json:"email" validate:"required,email,max=100"`
	Phone     string `json:"phone" validate:"omitempty,phone"`
	Gender    string `json:"gender" validate:"required,gender"`
	Stack     string `json:"stack" validate:"required,stack"`
}

// StudentLayout maps roster columns to student fields.
var StudentLayout = Layout{
	Fields: []Field{
		{Name: "email", Aliases: []string{"email", "email address"}, Required: true},
		{Name: "firstname", Aliases: []string{"firstname", "first name", "first_name"}},
		{Name: "lastname", Aliases: []string{"lastname", "last name", "last_name", "surname"}},
		{Name: "gender", Aliases: []string{"gender", "sex"}},
		{Name: "stack", Aliases: []string{"stack", "track"}},
		{Name: "phone", Aliases: []string{"phone", "phone number", "mobile"}},
	},
	Identity: func(r Record) string {
		if email := strings.ToLower(r["email"]); email != "" {
			return email
		}
		return "no-email-" + strings.ToLower(r["firstname"]+"-"+r["lastname"])
	},
}

// NewStudentSchema builds the student batch schema.
func NewStudentSchema(v *validation.Validator) *StructSchema[StudentRow] {
	return NewStructSchema(v, MaxStudentRows, "student", func(r Record) StudentRow {
		return StudentRow{
			Firstname: r["firstname"],
			Lastname:  r["lastname"],
			Email:     strings.ToLower(r["email"]),
			Phone:     r["phone"],
			Gender:    strings.ToLower(r["gender"]),
			Stack:     strings.ReplaceAll(strings.ToLower(r["stack"]), " ", "_"),
		}
	})
}

// StudentKey dedups students by email.
func StudentKey(row StudentRow) string {
	return row.Email
}
