// Package pathutil extracts typed identifiers from URL paths.
package pathutil

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidID is returned when the ID in the URL path is invalid.
var ErrInvalidID = errors.New("invalid id")

// ExtractID parses the int64 ID that follows prefix in path.
// IDs must be positive.
func ExtractID(path, prefix string) (int64, error) {
	idStr := strings.TrimPrefix(path, prefix)
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidID
	}
	return id, nil
}

// feedIDRe matches the slug form feed identifiers use.
var feedIDRe = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

// ExtractFeedID parses the feed slug that follows prefix in path.
func ExtractFeedID(path, prefix string) (string, error) {
	id := strings.TrimPrefix(path, prefix)
	if i := strings.IndexByte(id, '/'); i >= 0 {
		id = id[:i]
	}
	if !feedIDRe.MatchString(id) {
		return "", ErrInvalidID
	}
	return id, nil
}
