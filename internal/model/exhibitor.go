package model

import "time"

// User represents an application user record as stored in the `users`
// table.  Exhibitor applicants get an inactive account with
// must_change_password set; the account stays inactive until approved
// through the admin console, which lives outside this service.
//
// Fields:
//  ID                 – primary key identifier of the user.
//  Email              – unique email address.
//  PasswordHash       – bcrypt hashed password.
//  Name               – display name (company name for exhibitors).
//  Role               – role name (e.g. EXHIBITOR).
//  EmailVerified      – whether the address has been verified.
//  MustChangePassword – forces a password change on first login.
//  IsActive           – whether the account is active.
type User struct {
	ID                 uint64
	Email              string
	PasswordHash       string
	Name               string
	Role               string
	EmailVerified      bool
	MustChangePassword bool
	IsActive           bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Exhibitor mirrors the `exhibitors` table.  An application is created
// with status PENDING and reviewed out of band.  ContactEmail is unique
// across applications.
type Exhibitor struct {
	ID            uint64
	UserID        uint64
	CompanyName   string
	Country       string
	ContactName   string
	ContactEmail  string
	Phone         string
	Status        string // PENDING until reviewed
	BoothAssigned *string
	Notes         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
