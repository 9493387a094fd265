package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/zalando/go-keyring"
)

func TestNewKeyringStorage(t *testing.T) {
	if _, err := NewKeyringStorage(""); err == nil {
		t.Error("NewKeyringStorage(\"\") expected error")
	}

	k, err := NewKeyringStorage("jenkins-acceptance")
	if err != nil {
		t.Fatalf("NewKeyringStorage() error = %v", err)
	}
	if k.Service() != "jenkins-acceptance" {
		t.Errorf("Service() = %q, want jenkins-acceptance", k.Service())
	}
}

func TestStorages(t *testing.T) {
	keyring.MockInit()

	k, err := NewKeyringStorage("jenkins-acceptance-test")
	if err != nil {
		t.Fatalf("NewKeyringStorage() error = %v", err)
	}

	storages := map[string]TokenStorage{
		"keyring": k,
		"memory":  NewMemoryStorage(),
	}

	for name, s := range storages {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if _, err := s.LoadToken(ctx, "admin"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("LoadToken() on empty storage error = %v, want ErrNotFound", err)
			}

			if err := s.SaveToken(ctx, "admin", "11aa22bb"); err != nil {
				t.Fatalf("SaveToken() error = %v", err)
			}
			if err := s.SaveToken(ctx, "admin", ""); err == nil {
				t.Error("SaveToken() with empty token expected error")
			}

			token, err := s.LoadToken(ctx, "admin")
			if err != nil {
				t.Fatalf("LoadToken() error = %v", err)
			}
			if token != "11aa22bb" {
				t.Errorf("LoadToken() = %q, want 11aa22bb", token)
			}

			if _, err := s.LoadToken(ctx, "someone-else"); !errors.Is(err, ErrNotFound) {
				t.Errorf("LoadToken() for other user error = %v, want ErrNotFound", err)
			}

			if err := s.DeleteToken(ctx, "admin"); err != nil {
				t.Fatalf("DeleteToken() error = %v", err)
			}
			if err := s.DeleteToken(ctx, "admin"); err != nil {
				t.Errorf("DeleteToken() twice error = %v", err)
			}
			if _, err := s.LoadToken(ctx, "admin"); !errors.Is(err, ErrNotFound) {
				t.Errorf("LoadToken() after delete error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestKeyringStorage_Errors(t *testing.T) {
	boom := errors.New("keyring locked")
	keyring.MockInitWithError(boom)
	t.Cleanup(keyring.MockInit)

	k, _ := NewKeyringStorage("jenkins-acceptance-test")
	ctx := context.Background()

	if err := k.SaveToken(ctx, "admin", "x"); !errors.Is(err, boom) {
		t.Errorf("SaveToken() error = %v, want %v", err, boom)
	}
	if _, err := k.LoadToken(ctx, "admin"); !errors.Is(err, boom) {
		t.Errorf("LoadToken() error = %v, want %v", err, boom)
	}
	if err := k.DeleteToken(ctx, "admin"); !errors.Is(err, boom) {
		t.Errorf("DeleteToken() error = %v, want %v", err, boom)
	}
	if err := k.SaveToken(ctx, "", "x"); err == nil {
		t.Error("SaveToken() without user expected error")
	}
}
