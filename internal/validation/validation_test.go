package validation

import (
	"strings"
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
		{"Valid", "secret123", false},
		{"Exactly Min Length", "abcdefg1", false},
		{"Exactly Max Length", strings.Repeat("a", 127) + "1", false},
		{"Too Short", "abc123", true},
		{"Too Long", strings.Repeat("a", 128) + "1", true},
		{"No Digit", "onlyletters", true},
		{"No Letter", "1234567890", true},
		{"Unicode Letters", "Ångström12", false},
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
	tests := []struct {
		name     string
		username string
		wantErr  bool
	}{
		{"Valid", "alice_01", false},
		{"Too Short", "al", true},
		{"Too Long", strings.Repeat("a", 51), true},
		{"Illegal Chars", "alice@home", true},
		{"Starts Dash", "-alice", true},
		{"Ends Underscore", "alice_", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUsername(tt.username)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateEmail(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		email   string
		wantErr bool
	}{
		{"Valid", "alice@example.com", false},
		{"Subdomain", "bob@mail.example.org", false},
		{"Invalid Format", "not-an-email", true},
		{"Missing Domain", "user@", true},
		{"Multiple At Symbols", "user@@example.com", true},
		{"Trailing Dot In Domain", "user@example.com.", true},
		{"Too Long", strings.Repeat("a", 250) + "@x.io", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateFullName(t *testing.T) {
	long := strings.Repeat("n", 101)
	ok := "Alice Liddell"
	assert.NoError(t, ValidateFullName(nil))
	assert.NoError(t, ValidateFullName(&ok))
	assert.Error(t, ValidateFullName(&long))
}

func TestValidatePost(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		title   string
		content string
		wantErr bool
	}{
		{"Valid", "Hello", "World", false},
		{"Title At Limit", strings.Repeat("t", 200), "c", false},
		{"Title Too Long", strings.Repeat("t", 201), "c", true},
		{"Blank Title", "   ", "c", true},
		{"Empty Content", "t", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePost(tt.title, tt.content)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
