package utils

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// StripDataURI removes a leading "data:...;base64," prefix if present.
func StripDataURI(encoded string) string {
	if idx := strings.Index(encoded, ","); idx >= 0 && strings.HasPrefix(encoded, "data:") {
		return encoded[idx+1:]
	}
	return encoded
}

// SaveBase64ToTempFile decodes a base64 payload into a uniquely named file
// under tempDir with the given extension and returns its path. The caller
// owns removal of the file.
func SaveBase64ToTempFile(tempDir, conversationId, extension, encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(StripDataURI(encoded))
	if err != nil {
		return "", fmt.Errorf("decode base64 payload: %w", err)
	}

	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}

	name := fmt.Sprintf("%s_CHAT_%s_%d.%s", uuid.NewString(), conversationId, time.Now().UnixNano(), strings.TrimPrefix(extension, "."))
	path := filepath.Join(tempDir, name)
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return "", fmt.Errorf("write temp file: %w", err)
	}
	return path, nil
}

// RemoveFileIfExists deletes the file, treating a missing file as success.
func RemoveFileIfExists(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
