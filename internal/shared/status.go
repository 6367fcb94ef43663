package shared

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Status kinds rendered by the templates.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Status is a one-time notification shown near the triggering action.
type Status struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// StatusManager stores transient per-browser status messages in Redis. Entries
// carry a short TTL, so a status that is never rendered dismisses itself.
type StatusManager struct {
	client     *redis.Client
	cookieName string
	ttl        time.Duration
	secure     bool
}

// NewStatusManager constructs a StatusManager.
func NewStatusManager(client *redis.Client, cookieName string, ttl time.Duration, secure bool) *StatusManager {
	if cookieName == "" {
		cookieName = "quayside_browser"
	}
	if ttl <= 0 {
		ttl = 45 * time.Second
	}
	return &StatusManager{client: client, cookieName: cookieName, ttl: ttl, secure: secure}
}

// Push queues a status for the requesting browser, assigning a browser cookie
// when none exists yet.
func (m *StatusManager) Push(ctx context.Context, w http.ResponseWriter, r *http.Request, status Status) error {
	if m == nil || m.client == nil {
		return nil
	}
	id := m.browserID(w, r)
	payload, err := json.Marshal(status)
	if err != nil {
		return err
	}
	key := m.redisKey(id)
	if err := m.client.RPush(ctx, key, payload).Err(); err != nil {
		return err
	}
	return m.client.Expire(ctx, key, m.ttl).Err()
}

// Pop retrieves and removes the oldest queued status, or nil when none remain.
func (m *StatusManager) Pop(ctx context.Context, r *http.Request) (*Status, error) {
	if m == nil || m.client == nil {
		return nil, nil
	}
	cookie, err := r.Cookie(m.cookieName)
	if err != nil {
		return nil, nil
	}
	payload, err := m.client.LPop(ctx, m.redisKey(cookie.Value)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var status Status
	if err := json.Unmarshal(payload, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (m *StatusManager) browserID(w http.ResponseWriter, r *http.Request) string {
	if cookie, err := r.Cookie(m.cookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteStrictMode,
	})
	return id
}

func (m *StatusManager) redisKey(id string) string {
	return "status:" + id
}
