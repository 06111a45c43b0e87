package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// User is the identity record of a phone-verified customer. It lives in
// device storage rather than a table; Phone correlates it with the PIN
// vault and the last-identity record.
type User struct {
	ID             string     `json:"id"`
	Phone          string     `json:"phone"`
	Name           string     `json:"name"`
	Email          string     `json:"email,omitempty"`
	ProfilePicture string     `json:"profile_picture,omitempty"`
	Address        string     `json:"address,omitempty"`
	IsAdmin        bool       `json:"is_admin,omitempty"`
	CreatedAt      *time.Time `json:"created_at,omitempty"`
}

// NewUser synthesizes the identity created after a successful OTP check.
func NewUser(phone string, now time.Time) User {
	suffix := phone
	if len(suffix) > 4 {
		suffix = suffix[len(suffix)-4:]
	}
	created := now.UTC()
	return User{
		ID:        NewID(),
		Phone:     phone,
		Name:      fmt.Sprintf("User %s", suffix),
		CreatedAt: &created,
	}
}

// NewID returns a random UUID v4 string.
func NewID() string {
	return uuid.NewString()
}

// ProfileUpdate is a partial identity update. Nil fields keep their value.
type ProfileUpdate struct {
	Name           *string `json:"name"`
	Email          *string `json:"email"`
	ProfilePicture *string `json:"profile_picture"`
	Address        *string `json:"address"`
}

// Empty reports whether the update carries no fields.
func (p ProfileUpdate) Empty() bool {
	return p.Name == nil && p.Email == nil && p.ProfilePicture == nil && p.Address == nil
}

// Apply returns u with the provided fields overwritten.
func (p ProfileUpdate) Apply(u User) User {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.ProfilePicture != nil {
		u.ProfilePicture = *p.ProfilePicture
	}
	if p.Address != nil {
		u.Address = *p.Address
	}
	return u
}

// LastIdentity is the remember-me record shown on the PIN screen.
type LastIdentity struct {
	Phone string `json:"phone"`
	Name  string `json:"name"`
	Image string `json:"image,omitempty"`
}

// LastIdentityOf derives the remember-me record from an identity.
func LastIdentityOf(u User) LastIdentity {
	return LastIdentity{Phone: u.Phone, Name: u.Name, Image: u.ProfilePicture}
}

// PinRecord binds a PIN to a phone. At most one record exists per phone.
type PinRecord struct {
	Phone string `json:"phone"`
	Pin   string `json:"pin"`
}
