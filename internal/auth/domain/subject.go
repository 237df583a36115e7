package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrInvalidSubject = errors.New("domain: invalid token subject")

// FormatSubject builds "{prefix}.{username}.id{userID}".
func FormatSubject(prefix, username string, userID int64) string {
	return fmt.Sprintf("%s.%s.id%d", prefix, username, userID)
}

// ParseSubject splits a subject on its last two dots and returns the
// username and user id. The prefix may itself contain dots.
func ParseSubject(sub string) (username string, userID int64, err error) {
	rest, idPart, ok := cutLast(sub, ".")
	if !ok {
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidSubject, sub)
	}
	_, username, ok = cutLast(rest, ".")
	if !ok || username == "" {
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidSubject, sub)
	}

	digits, ok := strings.CutPrefix(idPart, "id")
	if !ok {
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidSubject, sub)
	}
	userID, err = strconv.ParseInt(digits, 10, 64)
	if err != nil || userID <= 0 {
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidSubject, sub)
	}
	return username, userID, nil
}

func cutLast(s, sep string) (before, after string, found bool) {
	i := strings.LastIndex(s, sep)
	if i < 0 {
		return s, "", false
	}
	return s[:i], s[i+len(sep):], true
}
