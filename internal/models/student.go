package models

// Student is a learner account. Students are created without a password and
// set one after verifying their email.
type Student struct {
	ID              string        `db:"id" json:"id"`
	Firstname       string        `db:"firstname" json:"firstname"`
	Lastname        string        `db:"lastname" json:"lastname"`
	Email           string        `db:"email" json:"email"`
	Phone           string        `db:"phone" json:"phone"`
	Gender          string        `db:"gender" json:"gender"`
	Stack           Stack         `db:"stack" json:"stack"`
	PasswordHash    *string       `db:"password_hash" json:"-"`
	IsEmailVerified bool          `db:"is_email_verified" json:"is_email_verified"`
	Status          AccountStatus `db:"status" json:"status"`
	Timestamps
}

// FullName joins first and last name.
func (s Student) FullName() string {
	return s.Firstname + " " + s.Lastname
}

// HasPassword reports whether the student has completed password setup.
func (s Student) HasPassword() bool {
	return s.PasswordHash != nil && *s.PasswordHash != ""
}

// StudentFilter captures filtering criteria for listing students.
type StudentFilter struct {
	ListParams
	Stack  string
	Search string
}

// RegisterStudentRequest is the self-service sign up payload.
type RegisterStudentRequest struct {
	Firstname string `json:"firstname" validate:"required,max=50"`
	Lastname  string `json:"lastname" validate:"required,max=50"`
	Email     string `json:"email" validate:"required,email,max=100"`
	Phone     string `json:"phone" validate:"omitempty,phone"`
	Gender    string `json:"gender" validate:"required,gender"`
	Stack     string `json:"stack" validate:"required,stack"`
}
