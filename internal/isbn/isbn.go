package isbn

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformed is returned when a corpus line does not start with a numeric ISBN.
var ErrMalformed = errors.New("malformed isbn")

// ParseLeading extracts the ISBN key from a corpus line "<isbn> <description>".
// Quote characters wrapping the line or the token are ignored.
func ParseLeading(text string) (int64, error) {
	fields := strings.Fields(strings.Trim(strings.TrimSpace(text), `"`))
	if len(fields) == 0 {
		return 0, fmt.Errorf("%w: empty text", ErrMalformed)
	}
	token := strings.Trim(fields[0], `"`)
	key, err := strconv.ParseInt(token, 10, 64)
	if err != nil || key < 0 {
		return 0, fmt.Errorf("%w: %q", ErrMalformed, token)
	}
	return key, nil
}

// Format renders a key the way it appears in the corpus and catalog.
func Format(key int64) string {
	return strconv.FormatInt(key, 10)
}
