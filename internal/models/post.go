package models

import "time"

// MaxTitleLength is the longest accepted post title.
const MaxTitleLength = 200

// Post is a piece of content owned by a single user. UserID never changes after creation.
type Post struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Title     string    `gorm:"size:200;not null" json:"title"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	ImagePath *string   `json:"image_path"`
	Published bool      `gorm:"not null;default:true" json:"published"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PostResponse is the public view of a Post, enriched with its author and like count.
type PostResponse struct {
	ID         uint      `json:"id"`
	UserID     uint      `json:"user_id"`
	Username   string    `json:"username"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	ImagePath  *string   `json:"image_path"`
	Published  bool      `json:"published"`
	LikesCount int64     `json:"likes_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// ToPostResponse projects a Post onto its public view. The author must be preloaded for
// Username to be set.
func ToPostResponse(p *Post, likes int64) PostResponse {
	return PostResponse{
		ID:         p.ID,
		UserID:     p.UserID,
		Username:   p.User.Username,
		Title:      p.Title,
		Content:    p.Content,
		ImagePath:  p.ImagePath,
		Published:  p.Published,
		LikesCount: likes,
		CreatedAt:  p.CreatedAt,
	}
}
