package service

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spec-kit/blog-service/internal/domain"
)

// memStore is an in-memory implementation of the three repositories.
type memStore struct {
	mu       sync.Mutex
	seq      int
	clock    time.Time
	users    map[string]domain.User
	posts    map[string]domain.Post
	comments map[string]domain.Comment
}

func newMemStore() *memStore {
	return &memStore{
		clock:    time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		users:    map[string]domain.User{},
		posts:    map[string]domain.Post{},
		comments: map[string]domain.Comment{},
	}
}

func (m *memStore) nextID(prefix string) string {
	m.seq++
	return prefix + strconv.Itoa(m.seq)
}

func (m *memStore) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

type memUsers struct{ *memStore }
type memPosts struct{ *memStore }
type memComments struct{ *memStore }

func (m memUsers) Create(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Username, user.Username) {
			return domain.ErrUsernameTaken
		}
	}
	user.ID = m.nextID("u")
	user.CreatedAt = m.tick()
	m.users[user.ID] = *user
	return nil
}

func (m memUsers) Update(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.ID]; !ok {
		return domain.ErrUserNotFound
	}
	m.users[user.ID] = *user
	return nil
}

func (m memUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}

func (m memUsers) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Username, strings.TrimSpace(username)) {
			return &u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (m memPosts) CreateWithAuthor(_ context.Context, post *domain.Post, author *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[author.ID]; !ok {
		return domain.ErrUserNotFound
	}
	post.ID = m.nextID("p")
	post.CreatedAt = m.tick()
	m.posts[post.ID] = *post
	m.users[author.ID] = *author
	return nil
}

func (m memPosts) Update(_ context.Context, post *domain.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.posts[post.ID]
	if !ok {
		return domain.ErrPostNotFound
	}
	now := m.tick()
	stored.Title, stored.Content, stored.UpdatedAt = post.Title, post.Content, &now
	post.UpdatedAt = &now
	m.posts[post.ID] = stored
	return nil
}

func (m memPosts) GetByID(_ context.Context, id string) (*domain.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok {
		return nil, domain.ErrPostNotFound
	}
	return &p, nil
}

func (m memPosts) sorted(keep func(domain.Post) bool) []domain.Post {
	out := []domain.Post{}
	for _, p := range m.posts {
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m memPosts) ListPage(_ context.Context, page, pageSize int) ([]domain.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.sorted(func(domain.Post) bool { return true })
	start := (page - 1) * pageSize
	if start >= len(all) {
		return []domain.Post{}, nil
	}
	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], nil
}

func (m memPosts) Count(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.posts), nil
}

func (m memPosts) SearchByTitle(_ context.Context, term string) ([]domain.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	needle := strings.ToLower(term)
	return m.sorted(func(p domain.Post) bool { return strings.Contains(strings.ToLower(p.Title), needle) }), nil
}

func (m memPosts) ListByTag(_ context.Context, tag string) ([]domain.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sorted(func(p domain.Post) bool {
		for _, t := range p.Tags {
			if t == tag {
				return true
			}
		}
		return false
	}), nil
}

func (m memPosts) AddTag(_ context.Context, postID, tag string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[postID]
	if !ok {
		return domain.ErrPostNotFound
	}
	for _, t := range p.Tags {
		if t == tag {
			return nil
		}
	}
	p.Tags = append(append([]string{}, p.Tags...), tag)
	sort.Strings(p.Tags)
	m.posts[postID] = p
	return nil
}

func (m memPosts) TagsForPost(_ context.Context, postID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[postID]
	if !ok {
		return nil, domain.ErrPostNotFound
	}
	return p.Tags, nil
}

func (m memPosts) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.posts[id]; !ok {
		return domain.ErrPostNotFound
	}
	delete(m.posts, id)
	return nil
}

func (m memComments) Create(_ context.Context, comment *domain.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.posts[comment.PostID]; !ok {
		return domain.ErrPostNotFound
	}
	comment.ID = m.nextID("c")
	comment.CreatedAt = m.tick()
	m.comments[comment.ID] = *comment
	return nil
}

func (m memComments) Update(_ context.Context, comment *domain.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.comments[comment.ID]; !ok {
		return domain.ErrCommentNotFound
	}
	now := m.tick()
	comment.UpdatedAt = &now
	m.comments[comment.ID] = *comment
	return nil
}

func (m memComments) GetByID(_ context.Context, id string) (*domain.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.comments[id]
	if !ok {
		return nil, domain.ErrCommentNotFound
	}
	return &c, nil
}

func (m memComments) ListByPost(_ context.Context, postID string) ([]domain.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Comment{}
	for _, c := range m.comments {
		if c.PostID == postID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m memComments) DeleteByPost(_ context.Context, postID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, c := range m.comments {
		if c.PostID == postID {
			delete(m.comments, id)
		}
	}
	return nil
}

type countingMetrics struct {
	mu          sync.Mutex
	accepted    int
	rejected    int
	activations []domain.PaymentSource
}

func (c *countingMetrics) PostAccepted() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accepted++
}

func (c *countingMetrics) PostRejected() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rejected++
}

func (c *countingMetrics) SubscriptionActivated(source domain.PaymentSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.activations = append(c.activations, source)
}
