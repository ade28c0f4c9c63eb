package model

import (
	"errors"
	"testing"
)

func TestUserCredential(t *testing.T) {
	hash := "$2a$10$abcdefghijklmnopqrstuv"
	empty := ""

	tests := []struct {
		name     string
		user     User
		want     AuthProvider
		wantHash string
		wantErr  error
	}{
		{name: "password account", user: User{AuthProvider: ProviderPassword, PasswordHash: &hash}, want: ProviderPassword, wantHash: hash},
		{name: "google account", user: User{AuthProvider: ProviderGoogle}, want: ProviderGoogle},
		{name: "password without hash", user: User{AuthProvider: ProviderPassword}, wantErr: ErrCorruptCredential},
		{name: "password with empty hash", user: User{AuthProvider: ProviderPassword, PasswordHash: &empty}, wantErr: ErrCorruptCredential},
		{name: "unknown provider", user: User{AuthProvider: "github"}, wantErr: ErrCorruptCredential},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cred, err := tt.user.Credential()
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("credential: %v", err)
			}
			if cred.Provider() != tt.want {
				t.Fatalf("expected provider %q, got %q", tt.want, cred.Provider())
			}
			if pc, ok := cred.(PasswordCredential); ok && pc.Hash != tt.wantHash {
				t.Fatalf("expected hash %q, got %q", tt.wantHash, pc.Hash)
			}
		})
	}
}

func TestValidPriorityAndStatus(t *testing.T) {
	for _, p := range []string{"Low", "Medium", "High"} {
		if !ValidPriority(p) {
			t.Fatalf("expected %q to be valid", p)
		}
	}
	for _, p := range []string{"", "low", "Urgent"} {
		if ValidPriority(p) {
			t.Fatalf("expected %q to be invalid", p)
		}
	}
	if !ValidStatus("Pending") || !ValidStatus("Completed") || ValidStatus("Done") {
		t.Fatal("unexpected status validation result")
	}
}
