// Package models contains data structures for the application's domain models.
package models

import "time"

// User is a registered account. Username and Email are unique.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"size:50;uniqueIndex;not null" json:"username"`
	Email        string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	FullName     *string   `gorm:"size:100" json:"full_name"`
	PasswordHash string    `gorm:"not null" json:"-"`
	IsAdmin      bool      `gorm:"not null;default:false" json:"is_admin"`
	JoinedAt     time.Time `gorm:"autoCreateTime" json:"joined_at"`
}

// UserResponse is the public view of a User. It never carries the credential hash.
type UserResponse struct {
	ID       uint      `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
	FullName *string   `json:"full_name"`
	IsAdmin  bool      `json:"is_admin"`
	JoinedAt time.Time `json:"joined_at"`
}

// ToUserResponse projects a User onto its public view.
func ToUserResponse(u *User) UserResponse {
	return UserResponse{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		FullName: u.FullName,
		IsAdmin:  u.IsAdmin,
		JoinedAt: u.JoinedAt,
	}
}

// ToUserResponses projects a slice of users.
func ToUserResponses(users []User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for i := range users {
		out = append(out, ToUserResponse(&users[i]))
	}
	return out
}
