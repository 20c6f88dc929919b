// filename.go validates caller-supplied filenames before they are embedded in
// object store keys. The storage location for a profile image is built from
// the user ID and the filename, so a filename with path separators or dot
// segments could escape the user's prefix in the bucket.
package validation

import (
	"fmt"
	"strings"
)

// MaxFilenameLength is the maximum accepted filename length
const MaxFilenameLength = 255

// ValidateFilename validates a filename destined for an object store key
func ValidateFilename(filename string) error {
	if filename == "" {
		return fmt.Errorf("filename cannot be empty")
	}

	if len(filename) > MaxFilenameLength {
		return fmt.Errorf("filename must be at most %d characters", MaxFilenameLength)
	}

	if strings.ContainsAny(filename, "/\\") {
		return fmt.Errorf("filename must not contain path separators")
	}

	if filename == "." || filename == ".." {
		return fmt.Errorf("filename must not be a dot segment")
	}

	if strings.ContainsRune(filename, '\x00') {
		return fmt.Errorf("filename must not contain null bytes")
	}

	return nil
}
