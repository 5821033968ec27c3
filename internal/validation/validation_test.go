package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePassword(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"valid", "Str0ng!Password", false},
		{"too short", "Sh0rt!pw", true},
		{"no uppercase", "weak!password123", true},
		{"no lowercase", "WEAK!PASSWORD123", true},
		{"no digit", "Weak!Password", true},
		{"no special", "WeakPassword123", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateUsername(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateUsername("alice_01"))
	assert.Error(t, ValidateUsername("ab"))
	assert.Error(t, ValidateUsername("_alice"))
	assert.Error(t, ValidateUsername("alice!"))
}

func TestValidateEmail(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateEmail("alice@example.com"))
	assert.Error(t, ValidateEmail("not-an-email"))
}

func TestNormalizeEmail(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "alice@example.com", NormalizeEmail("  Alice@Example.COM "))
}
