package store

import (
	"github.com/sirupsen/logrus"

	"socialnet/internal/models"
)

func clonePost(p *models.Post) models.Post {
	out := *p
	out.Likes = append([]string{}, p.Likes...)
	out.Comments = append([]models.Comment{}, p.Comments...)
	return out
}

func (s *Store) findPost(id string) *models.Post {
	for _, p := range s.posts {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (s *Store) postsWhere(keep func(*models.Post) bool) []models.Post {
	out := []models.Post{}
	for _, p := range s.posts {
		if keep == nil || keep(p) {
			out = append(out, clonePost(p))
		}
	}
	return out
}

// Posts returns every post, newest first.
func (s *Store) Posts() []models.Post {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.postsWhere(nil)
}

func (s *Store) Post(id string) (models.Post, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p := s.findPost(id)
	if p == nil {
		return models.Post{}, false
	}
	return clonePost(p), true
}

func (s *Store) PostsBy(author string) []models.Post {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.postsWhere(func(p *models.Post) bool { return p.UserID == author })
}

// Feed returns the home feed for viewer. The following tab holds posts by
// users viewer follows plus viewer's own.
func (s *Store) Feed(viewer string, tab models.FeedTab) []models.Post {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if tab != models.FeedFollowing {
		return s.postsWhere(nil)
	}
	return s.postsWhere(func(p *models.Post) bool {
		return p.UserID == viewer || s.follows.has(viewer, p.UserID)
	})
}

// CreatePost puts a new post at the head of the collection.
func (s *Store) CreatePost(author, content, image string) models.Post {
	p := &models.Post{
		ID:       s.newID(),
		UserID:   author,
		Content:  content,
		Image:    image,
		Likes:    []string{},
		Comments: []models.Comment{},
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p.CreatedAt = s.now().UTC()
	s.posts = append([]*models.Post{p}, s.posts...)
	s.log.WithFields(logrus.Fields{"post": p.ID, "author": author}).Debug("post created")
	return clonePost(p)
}

// DeletePost removes the post with id. It does not check ownership.
func (s *Store) DeletePost(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range s.posts {
		if p.ID == id {
			s.posts = append(s.posts[:i], s.posts[i+1:]...)
			s.log.WithField("post", id).Debug("post deleted")
			return true
		}
	}
	return false
}

// ToggleLike adds user to the post's likes, or removes every occurrence of
// user when already present. liked is the state after the toggle.
func (s *Store) ToggleLike(postID, user string) (liked bool, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.findPost(postID)
	if p == nil {
		return false, false
	}
	kept := make([]string, 0, len(p.Likes)+1)
	for _, id := range p.Likes {
		if id != user {
			kept = append(kept, id)
		}
	}
	if len(kept) == len(p.Likes) {
		kept = append(kept, user)
		liked = true
	}
	p.Likes = kept
	return liked, true
}

// AddComment appends a comment by author to the post.
func (s *Store) AddComment(postID, author, content string) (models.Comment, bool) {
	c := models.Comment{
		ID:      s.newID(),
		PostID:  postID,
		UserID:  author,
		Content: content,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.findPost(postID)
	if p == nil {
		return models.Comment{}, false
	}
	c.CreatedAt = s.now().UTC()
	p.Comments = append(p.Comments, c)
	s.log.WithFields(logrus.Fields{"post": postID, "comment": c.ID}).Debug("comment added")
	return c, true
}

// DeleteComment removes the comment from the post. It does not check
// ownership.
func (s *Store) DeleteComment(postID, commentID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.findPost(postID)
	if p == nil {
		return false
	}
	for i, c := range p.Comments {
		if c.ID == commentID {
			p.Comments = append(p.Comments[:i], p.Comments[i+1:]...)
			s.log.WithFields(logrus.Fields{"post": postID, "comment": commentID}).Debug("comment deleted")
			return true
		}
	}
	return false
}
