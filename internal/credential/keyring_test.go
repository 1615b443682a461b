package credential

import (
	"errors"
	"testing"

	"github.com/99designs/keyring"
)

func newTestVault() *Vault {
	return NewVault(keyring.NewArrayKeyring(nil))
}

func TestSessionTokenRoundTrip(t *testing.T) {
	v := newTestVault()

	if _, err := v.SessionToken(); !errors.Is(err, ErrNoToken) {
		t.Fatalf("empty vault: err = %v, want ErrNoToken", err)
	}

	if err := v.StoreSessionToken("jwt-value"); err != nil {
		t.Fatalf("StoreSessionToken: %v", err)
	}
	got, err := v.SessionToken()
	if err != nil {
		t.Fatalf("SessionToken: %v", err)
	}
	if got != "jwt-value" {
		t.Errorf("token = %q", got)
	}

	if err := v.ClearSessionToken(); err != nil {
		t.Fatalf("ClearSessionToken: %v", err)
	}
	if _, err := v.SessionToken(); !errors.Is(err, ErrNoToken) {
		t.Errorf("after clear: err = %v, want ErrNoToken", err)
	}
	if err := v.ClearSessionToken(); err != nil {
		t.Errorf("second clear: %v", err)
	}
}

func TestGetMissingKeyWrapsNotFound(t *testing.T) {
	_, err := newTestVault().Get("absent")
	if !errors.Is(err, keyring.ErrKeyNotFound) {
		t.Fatalf("err = %v, want keyring.ErrKeyNotFound", err)
	}
}
