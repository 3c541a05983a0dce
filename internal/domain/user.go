package domain

import (
	"strings"
	"time"
)

// BirthDateLayout is the wire format of User.BirthDate.
const BirthDateLayout = "2006-01-02"

// User represents a local account.
type User struct {
	ID           int64      `json:"id"`
	Email        string     `json:"email"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	Nickname     string     `json:"nickname"`
	Phone        string     `json:"phone"`
	BirthDate    *time.Time `json:"birth_date"`
	Gender       string     `json:"gender"`
	IsActive     bool       `json:"is_active"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// HasUsablePassword reports whether the account can log in with a password.
// Accounts created through a social login have none.
func (u *User) HasUsablePassword() bool {
	return u.PasswordHash != ""
}

// UsernameFromEmail derives a username from the local part of an email
// address. Two addresses with the same local part yield the same username.
func UsernameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}

// Gender values accepted on the profile.
const (
	GenderMale   = "male"
	GenderFemale = "female"
	GenderOther  = "other"
)

// IsValidGender reports whether g is one of the accepted gender values.
func IsValidGender(g string) bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

// Profile is the additional information collected in registration step two
// and edited through the profile endpoint.
type Profile struct {
	Nickname  string
	Phone     string
	BirthDate *time.Time
	Gender    string
}

// ProfileUpdate carries the fields to change. Nil fields are left as they are.
type ProfileUpdate struct {
	Nickname  *string
	Phone     *string
	BirthDate **time.Time
	Gender    *string
}

// Apply copies the set fields of upd onto u.
func (u *User) Apply(upd ProfileUpdate) {
	if upd.Nickname != nil {
		u.Nickname = *upd.Nickname
	}
	if upd.Phone != nil {
		u.Phone = *upd.Phone
	}
	if upd.BirthDate != nil {
		u.BirthDate = *upd.BirthDate
	}
	if upd.Gender != nil {
		u.Gender = *upd.Gender
	}
}

// Profile returns the additional-info view of u.
func (u *User) Profile() Profile {
	return Profile{
		Nickname:  u.Nickname,
		Phone:     u.Phone,
		BirthDate: u.BirthDate,
		Gender:    u.Gender,
	}
}
