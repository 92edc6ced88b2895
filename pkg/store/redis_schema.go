package store

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Redis key pattern helpers
//
// Keys and channels are namespaced so several result sets can share one
// Redis server.
//
// Key pattern: evaldb:{namespace}:file:{path}
// Channel pattern: evaldb:{namespace}:file_events

// FileKey returns the Redis key of the hash holding one file.
func FileKey(namespace, p string) string {
	return fmt.Sprintf("evaldb:%s:file:%s", namespace, p)
}

// FileEventsChannel returns the Pub/Sub channel that receives a FileEvent
// for every write.
func FileEventsChannel(namespace string) string {
	return fmt.Sprintf("evaldb:%s:file_events", namespace)
}

// folderPattern returns the SCAN pattern matching every file under folder.
func folderPattern(namespace, folder string) string {
	prefix := FileKey(escapeGlob(namespace), "")
	if folder == "" {
		return prefix + "*"
	}
	return prefix + escapeGlob(folder) + "/*"
}

// escapeGlob escapes the characters Redis MATCH treats as pattern syntax.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// storedFile is the hash layout of a file key.
type storedFile struct {
	Content   string
	Message   string
	Version   int64
	UpdatedAt time.Time
}

// fileToHash converts a file to its Redis hash fields. The version field
// is maintained separately with HINCRBY.
func fileToHash(content, message string, now time.Time) map[string]interface{} {
	return map[string]interface{}{
		"content":       content,
		"message":       message,
		"updated_at_ms": now.UnixMilli(),
	}
}

// hashToFile converts Redis hash fields back to a file.
func hashToFile(hash map[string]string) (*storedFile, error) {
	content, ok := hash["content"]
	if !ok {
		return nil, fmt.Errorf("missing content field")
	}

	version, err := strconv.ParseInt(hash["version"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid version field: %w", err)
	}

	updatedAtMs, _ := strconv.ParseInt(hash["updated_at_ms"], 10, 64)

	return &storedFile{
		Content:   content,
		Message:   hash["message"],
		Version:   version,
		UpdatedAt: time.UnixMilli(updatedAtMs),
	}, nil
}
