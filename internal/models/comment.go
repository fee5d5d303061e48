package models

import "time"

type Comment struct {
	ID        string    `json:"id"`
	PostID    string    `json:"post_id"`
	UserID    string    `json:"-"`
	Content   string    `json:"content"`
	Author    string    `json:"author,omitempty"` // joined from users.name on reads
	CreatedAt time.Time `json:"created_at"`
}
