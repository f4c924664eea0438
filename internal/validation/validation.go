package validation

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"hitokoto/internal/db"
)

// MaxCategories bounds the number of categories in one request, and with it
// the number of placeholders in the category IN clause.
const MaxCategories = 16

// CategoryPattern defines the valid category code format.
var CategoryPattern = regexp.MustCompile(`^[a-z0-9_-]{1,16}$`)

// Response encodings accepted by the encode parameter.
const (
	EncodeJSON = "json"
	EncodeText = "text"
)

// ValidateCategory checks if a category code matches the allowed pattern.
func ValidateCategory(category string) bool {
	return CategoryPattern.MatchString(category)
}

// ParseCategories splits comma-separated category lists. Repeated codes keep
// their first position and blank entries are skipped.
func ParseCategories(raw ...string) ([]string, bool, string) {
	var categories []string
	seen := make(map[string]bool)
	for _, list := range raw {
		for _, c := range strings.Split(list, ",") {
			c = strings.ToLower(strings.TrimSpace(c))
			if c == "" || seen[c] {
				continue
			}
			if !ValidateCategory(c) {
				return nil, false, "Invalid category: " + strconv.Quote(c)
			}
			seen[c] = true
			categories = append(categories, c)
		}
	}
	if len(categories) > MaxCategories {
		return nil, false, "Too many categories (max " + strconv.Itoa(MaxCategories) + ")"
	}
	return categories, true, ""
}

// ParseLength parses an optional non-negative length bound. Empty means unset.
func ParseLength(name, raw string) (*int, bool, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, true, ""
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return nil, false, name + " must be a non-negative integer"
	}
	return &n, true, ""
}

// ParseFilter builds a filter from the c, min_length and max_length query
// parameters. It does not compare the bounds with each other; an inverted
// range is reported by the sampler.
func ParseFilter(categories []string, minLength, maxLength string) (db.Filter, bool, string) {
	cats, ok, msg := ParseCategories(categories...)
	if !ok {
		return db.Filter{}, false, msg
	}
	minLen, ok, msg := ParseLength("min_length", minLength)
	if !ok {
		return db.Filter{}, false, msg
	}
	maxLen, ok, msg := ParseLength("max_length", maxLength)
	if !ok {
		return db.Filter{}, false, msg
	}
	return db.Filter{Categories: cats, MinLength: minLen, MaxLength: maxLen}, true, ""
}

// NormalizeEncode maps the encode parameter to a response encoding.
// Anything other than "text" is answered with JSON.
func NormalizeEncode(encode string) string {
	if strings.EqualFold(strings.TrimSpace(encode), EncodeText) {
		return EncodeText
	}
	return EncodeJSON
}

// ValidateUUID checks if s is a well-formed quote identifier.
func ValidateUUID(s string) bool {
	return uuid.Validate(s) == nil
}
