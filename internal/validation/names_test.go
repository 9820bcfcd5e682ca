package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateBoardID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{name: "simple", id: "design-review"},
		{name: "with underscore and digits", id: "sprint_42"},
		{name: "single char", id: "a"},
		{name: "max length", id: strings.Repeat("x", 64)},
		{name: "empty", id: "", wantErr: true},
		{name: "too long", id: strings.Repeat("x", 65), wantErr: true},
		{name: "spaces", id: "my board", wantErr: true},
		{name: "slash", id: "a/b", wantErr: true},
		{name: "unicode", id: "доска", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBoardID(tt.id)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateDisplayName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "ascii", input: "Alice"},
		{name: "unicode", input: "Алиса"},
		{name: "with spaces", input: "Alice B"},
		{name: "single rune", input: "A"},
		{name: "max runes", input: strings.Repeat("ц", 32)},
		{name: "empty", input: "", wantErr: true},
		{name: "too long", input: strings.Repeat("a", 33), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDisplayName(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
