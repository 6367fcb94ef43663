package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newStatusFixture(t *testing.T) *StatusManager {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
	})
	return NewStatusManager(client, "quayside_browser", time.Minute, false)
}

func TestStatusPushPopRoundTrip(t *testing.T) {
	ctx := context.Background()
	manager := newStatusFixture(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	require.NoError(t, manager.Push(ctx, rec, req, Status{Kind: StatusSuccess, Message: "Purchase order PO-0001 created"}))

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies, "a browser cookie is assigned on first push")

	next := httptest.NewRequest(http.MethodGet, "/", nil)
	next.AddCookie(cookies[0])

	status, err := manager.Pop(ctx, next)
	require.NoError(t, err)
	require.NotNil(t, status)
	require.Equal(t, StatusSuccess, status.Kind)
	require.Equal(t, "Purchase order PO-0001 created", status.Message)

	status, err = manager.Pop(ctx, next)
	require.NoError(t, err)
	require.Nil(t, status, "a status is shown once")
}

func TestStatusPopWithoutCookie(t *testing.T) {
	manager := newStatusFixture(t)
	status, err := manager.Pop(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	require.Nil(t, status)
}

func TestStatusNilManagerIsNoOp(t *testing.T) {
	var manager *StatusManager
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	require.NoError(t, manager.Push(context.Background(), rec, req, Status{Kind: StatusError, Message: "x"}))
	status, err := manager.Pop(context.Background(), req)
	require.NoError(t, err)
	require.Nil(t, status)
}
