package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		name     string
		username string
		wantErr  error
	}{
		{"Valid username", "alice", nil},
		{"Valid username with numbers", "user123", nil},
		{"Valid username with underscore", "test_user", nil},
		{"Valid username with dash", "test-user", nil},
		{"Valid username with dot", "first.last", nil},
		{"Valid single character", "a", nil},
		{"Valid maximum length", strings.Repeat("a", MaxUsernameLength), nil},
		{"Invalid - empty", "", ErrUsernameRequired},
		{"Invalid - too long", strings.Repeat("a", MaxUsernameLength+1), ErrUsernameTooLong},
		{"Invalid - spaces", "test user", ErrInvalidUsername},
		{"Invalid - at sign", "test@user", ErrInvalidUsername},
		{"Invalid - forward slash", "a/b", ErrInvalidUsername},
		{"Invalid - backslash", "a\\b", ErrInvalidUsername},
		{"Invalid - parent traversal", "../etc", ErrInvalidUsername},
		{"Invalid - single dot", ".", ErrInvalidUsername},
		{"Invalid - double dot", "..", ErrInvalidUsername},
		{"Invalid - unicode", "用户", ErrInvalidUsername},
		{"Invalid - null byte", "user\x00name", ErrInvalidUsername},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUsername(tt.username)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}
