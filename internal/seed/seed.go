// Package seed holds the sample users and posts the store starts with.
package seed

import (
	"time"

	"github.com/araddon/dateparse"

	"socialnet/internal/models"
)

func mustParse(s string) time.Time {
	t, err := dateparse.ParseAny(s)
	if err != nil {
		panic("seed: bad timestamp " + s + ": " + err.Error())
	}
	return t.UTC()
}

// Users returns a fresh copy of the sample users.
func Users() []models.User {
	return []models.User{
		{
			ID:        "1",
			Username:  "johndoe",
			Email:     "john@example.com",
			FullName:  "John Doe",
			Avatar:    "https://images.pexels.com/photos/220453/pexels-photo-220453.jpeg?w=150",
			Bio:       "Love photography and travel ✈️📸",
			Followers: []string{"2", "3"},
			Following: []string{"2"},
			CreatedAt: mustParse("2024-01-15"),
		},
		{
			ID:        "2",
			Username:  "sarahsmith",
			Email:     "sarah@example.com",
			FullName:  "Sarah Smith",
			Avatar:    "https://images.pexels.com/photos/415829/pexels-photo-415829.jpeg?w=150",
			Bio:       "Designer & coffee enthusiast ☕",
			Followers: []string{"1", "3"},
			Following: []string{"1", "3"},
			CreatedAt: mustParse("2024-01-10"),
		},
		{
			ID:        "3",
			Username:  "mikejohnson",
			Email:     "mike@example.com",
			FullName:  "Mike Johnson",
			Avatar:    "https://images.pexels.com/photos/614810/pexels-photo-614810.jpeg?w=150",
			Bio:       "Tech enthusiast & gamer 🎮",
			Followers: []string{"1", "2"},
			Following: []string{"1", "2"},
			CreatedAt: mustParse("2024-01-05"),
		},
		{
			ID:        "4",
			Username:  "emilydavis",
			Email:     "emily@example.com",
			FullName:  "Emily Davis",
			Avatar:    models.DefaultAvatar,
			Bio:       "Artist and nature lover 🎨🌿",
			Followers: []string{"1"},
			Following: []string{"2", "3"},
			CreatedAt: mustParse("2024-01-08"),
		},
		{
			ID:        "5",
			Username:  "alexchen",
			Email:     "alex@example.com",
			FullName:  "Alex Chen",
			Avatar:    models.DefaultAvatar,
			Bio:       "Fitness enthusiast and chef 💪🍳",
			Followers: []string{"2", "3"},
			Following: []string{"1"},
			CreatedAt: mustParse("2024-01-12"),
		},
		{
			ID:        "6",
			Username:  "jordantaylor",
			Email:     "jordan@example.com",
			FullName:  "Jordan Taylor",
			Avatar:    models.DefaultAvatar,
			Bio:       "Music producer and world traveler 🎵🌍",
			Followers: []string{},
			Following: []string{"1", "2"},
			CreatedAt: mustParse("2024-01-18"),
		},
	}
}

// Posts returns a fresh copy of the sample posts, newest first.
func Posts() []models.Post {
	return []models.Post{
		{
			ID:        "1",
			UserID:    "1",
			Content:   "Just captured this amazing sunset! 🌅 Nature never fails to amaze me.",
			Image:     "https://images.pexels.com/photos/158163/clouds-cloudporn-weather-lookup-158163.jpeg?w=500",
			Likes:     []string{"2", "3"},
			CreatedAt: mustParse("2024-01-20T10:30:00Z"),
			Comments: []models.Comment{
				{
					ID:        "1",
					PostID:    "1",
					UserID:    "2",
					Content:   "Absolutely stunning! Where was this taken?",
					CreatedAt: mustParse("2024-01-20T11:00:00Z"),
				},
			},
		},
		{
			ID:        "2",
			UserID:    "2",
			Content:   "Working on a new design project. Love the creative process! 🎨",
			Likes:     []string{"1", "3"},
			CreatedAt: mustParse("2024-01-19T14:15:00Z"),
			Comments:  []models.Comment{},
		},
		{
			ID:        "3",
			UserID:    "3",
			Content:   "Just finished an amazing gaming session. Anyone else playing the new RPG that came out?",
			Likes:     []string{"1"},
			CreatedAt: mustParse("2024-01-18T20:45:00Z"),
			Comments: []models.Comment{
				{
					ID:        "2",
					PostID:    "3",
					UserID:    "1",
					Content:   "Yes! I'm totally hooked. The storyline is incredible.",
					CreatedAt: mustParse("2024-01-18T21:00:00Z"),
				},
			},
		},
		{
			ID:        "4",
			UserID:    "4",
			Content:   "Spent the day painting in the park. There's something magical about creating art surrounded by nature 🎨🌳",
			Image:     "https://images.pexels.com/photos/1266808/pexels-photo-1266808.jpeg?w=500",
			Likes:     []string{"1", "2"},
			CreatedAt: mustParse("2024-01-17T16:20:00Z"),
			Comments:  []models.Comment{},
		},
		{
			ID:        "5",
			UserID:    "5",
			Content:   "New recipe experiment: fusion tacos with Asian flavors! The combination of Korean BBQ and Mexican spices is incredible 🌮🔥",
			Likes:     []string{"2", "3", "4"},
			CreatedAt: mustParse("2024-01-16T19:30:00Z"),
			Comments: []models.Comment{
				{
					ID:        "3",
					PostID:    "5",
					UserID:    "2",
					Content:   "This looks amazing! Would love the recipe!",
					CreatedAt: mustParse("2024-01-16T20:00:00Z"),
				},
			},
		},
	}
}
