package models

import "time"

// Like records that a user likes a post. The (PostID, UserID) pair is unique; a Like is
// created on like and hard-deleted on unlike.
type Like struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_likes_post_user,priority:1" json:"post_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_likes_post_user,priority:2;index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`

	Post Post `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// PostLikes pairs a post with its like count.
type PostLikes struct {
	PostID     uint  `json:"post_id"`
	LikesCount int64 `json:"likes_count"`
}
