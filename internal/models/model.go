package models

import "time"

// DefaultAvatar is used when a user registers without an avatar.
const DefaultAvatar = "https://images.pexels.com/photos/1704488/pexels-photo-1704488.jpeg?w=150"

// MaxPostLength is the longest post body the API accepts, in characters.
const MaxPostLength = 500

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	FullName     string    `json:"fullName"`
	Avatar       string    `json:"avatar"`
	Bio          string    `json:"bio"`
	Followers    []string  `json:"followers"`
	Following    []string  `json:"following"`
	CreatedAt    time.Time `json:"createdAt"`
	PasswordHash string    `json:"-"`
}

type Post struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Content   string    `json:"content"`
	Image     string    `json:"image,omitempty"`
	Likes     []string  `json:"likes"`
	CreatedAt time.Time `json:"createdAt"`
	Comments  []Comment `json:"comments"`
}

type Comment struct {
	ID        string    `json:"id"`
	PostID    string    `json:"postId"`
	UserID    string    `json:"userId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewUser holds the fields a caller supplies at registration.
type NewUser struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	Avatar   string `json:"avatar"`
	Bio      string `json:"bio"`
	Password string `json:"password"`
}

// ProfileUpdate is a partial user; nil fields are left unchanged.
type ProfileUpdate struct {
	Username *string `json:"username,omitempty"`
	Email    *string `json:"email,omitempty"`
	FullName *string `json:"fullName,omitempty"`
	Avatar   *string `json:"avatar,omitempty"`
	Bio      *string `json:"bio,omitempty"`
}

type Stats struct {
	Posts     int `json:"posts"`
	Followers int `json:"followers"`
	Following int `json:"following"`
}

type ProfilePage struct {
	User      User   `json:"user"`
	Posts     []Post `json:"posts"`
	Followers []User `json:"followers"`
	Following []User `json:"following"`
	Stats     Stats  `json:"stats"`
	IsSelf    bool   `json:"isSelf"`
}

// FeedTab selects which posts the home feed shows.
type FeedTab string

const (
	FeedAll       FeedTab = "all"
	FeedFollowing FeedTab = "following"
)
