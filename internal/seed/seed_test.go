package seed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsersShape(t *testing.T) {
	users := Users()
	require.Len(t, users, 6)

	seen := map[string]bool{}
	for _, u := range users {
		assert.False(t, seen[u.Email], "duplicate email %s", u.Email)
		seen[u.Email] = true
		assert.NotEmpty(t, u.Avatar)
	}
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), users[0].CreatedAt)
}

func TestPostsNewestFirst(t *testing.T) {
	posts := Posts()
	require.Len(t, posts, 5)
	for i := 1; i < len(posts); i++ {
		assert.True(t, posts[i-1].CreatedAt.After(posts[i].CreatedAt))
	}
	assert.Equal(t, time.Date(2024, 1, 20, 10, 30, 0, 0, time.UTC), posts[0].CreatedAt)
	assert.Len(t, posts[0].Comments, 1)
}

func TestFreshCopies(t *testing.T) {
	a := Users()
	a[0].Followers[0] = "changed"
	b := Users()
	assert.Equal(t, "2", b[0].Followers[0])
}
