package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateFilename(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		wantErr  bool
	}{
		{"simple", "avatar.png", false},
		{"no extension", "avatar", false},
		{"spaces allowed", "my avatar.png", false},
		{"empty", "", true},
		{"forward slash", "a/b.png", true},
		{"backslash", "a\\b.png", true},
		{"traversal", "../../etc/passwd", true},
		{"single dot", ".", true},
		{"double dot", "..", true},
		{"null byte", "avatar\x00.png", true},
		{"hidden file ok", ".gitignore", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFilename(tt.filename)
			if tt.wantErr {
				assert.Error(t, err, "filename %q", tt.filename)
			} else {
				assert.NoError(t, err, "filename %q", tt.filename)
			}
		})
	}
}

func TestValidateFilename_TooLong(t *testing.T) {
	long := strings.Repeat("a", MaxFilenameLength+1)
	assert.Error(t, ValidateFilename(long))
}
