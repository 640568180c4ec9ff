package session

import (
	"context"
	"errors"
	"fmt"
	"testing"

	redislib "github.com/redis/go-redis/v9"
)

type mockStore struct {
	data map[string]string
	err  error
}

func (m *mockStore) Get(ctx context.Context, key string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	val, ok := m.data[key]
	if !ok {
		return "", redislib.Nil
	}
	return val, nil
}

func (m *mockStore) AccessSessionKey(accessID string) string {
	return fmt.Sprintf("sess:%s", accessID)
}

func TestHasSession(t *testing.T) {
	checker := &Checker{store: &mockStore{data: map[string]string{"sess:live": "refresh"}}}

	ok, err := checker.HasSession(context.Background(), "live")
	if err != nil || !ok {
		t.Fatalf("expected live session, got ok=%v err=%v", ok, err)
	}
	ok, err = checker.HasSession(context.Background(), "revoked")
	if err != nil || ok {
		t.Fatalf("expected missing session, got ok=%v err=%v", ok, err)
	}
	if _, err := checker.HasSession(context.Background(), " "); err == nil {
		t.Fatal("expected error for blank access id")
	}
}

func TestHasSessionPropagatesStoreErrors(t *testing.T) {
	checker := &Checker{store: &mockStore{err: errors.New("redis down")}}
	if _, err := checker.HasSession(context.Background(), "any"); err == nil {
		t.Fatal("expected store error")
	}
}

func TestNewCheckerRequiresClient(t *testing.T) {
	if _, err := NewChecker(nil); err == nil {
		t.Fatal("expected error")
	}
}
