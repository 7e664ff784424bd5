package models

// Admin is a staff account, either an administrator or an instructor.
type Admin struct {
	ID             string   `db:"id" json:"id"`
	Firstname      string   `db:"firstname" json:"firstname"`
	Lastname       string   `db:"lastname" json:"lastname"`
	Email          string   `db:"email" json:"email"`
	Phone          string   `db:"phone" json:"phone"`
	Role           UserRole `db:"role" json:"role"`
	ProfilePicture string   `db:"profile_picture" json:"profile_picture"`
	PasswordHash   string   `db:"password_hash" json:"-"`
	Timestamps
}

// FullName joins first and last name.
func (a Admin) FullName() string {
	return a.Firstname + " " + a.Lastname
}

// RegisterAdminRequest creates a staff account. A password is generated when
// none is supplied.
type RegisterAdminRequest struct {
	Firstname      string `json:"firstname" validate:"required,max=50"`
	Lastname       string `json:"lastname" validate:"required,max=50"`
	Email          string `json:"email" validate:"required,email,max=100"`
	Phone          string `json:"phone" validate:"required,phone"`
	Role           string `json:"role" validate:"omitempty,oneof=admin instructor"`
	ProfilePicture string `json:"profile_picture" validate:"omitempty,url"`
	Password       string `json:"password" validate:"omitempty,password"`
}
