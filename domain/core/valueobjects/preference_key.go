package valueobjects

import (
	"errors"
	"strings"
)

// KeySeparator joins category and id in the canonical key form
const KeySeparator = "~~"

// PreferenceKey is the identity of a preference.
// Two preferences are the same preference iff their keys are equal;
// popularity and correlations play no part in identity.
type PreferenceKey struct {
	id       string
	category Category
}

// NewPreferenceKey creates a key, rejecting an empty id or unknown category
func NewPreferenceKey(id string, category Category) (PreferenceKey, error) {
	if strings.TrimSpace(id) == "" {
		return PreferenceKey{}, errors.New("preference ID cannot be empty")
	}
	if !category.IsValid() {
		return PreferenceKey{}, errors.New("preference category is invalid")
	}
	return PreferenceKey{id: id, category: category}, nil
}

// MustPreferenceKey is NewPreferenceKey for literals known to be valid
func MustPreferenceKey(id string, category Category) PreferenceKey {
	key, err := NewPreferenceKey(id, category)
	if err != nil {
		panic(err)
	}
	return key
}

// ParsePreferenceKey parses the canonical CATEGORY~~id form
func ParsePreferenceKey(s string) (PreferenceKey, error) {
	category, id, found := strings.Cut(s, KeySeparator)
	if !found {
		return PreferenceKey{}, errors.New("preference key must have the form CATEGORY~~id")
	}
	return NewPreferenceKey(id, Category(category))
}

// ID returns the preference id within its category
func (k PreferenceKey) ID() string {
	return k.id
}

// Category returns the category the preference belongs to
func (k PreferenceKey) Category() Category {
	return k.category
}

// String returns the canonical CATEGORY~~id form
func (k PreferenceKey) String() string {
	return string(k.category) + KeySeparator + k.id
}

// IsZero checks if the key is the zero value
func (k PreferenceKey) IsZero() bool {
	return k.id == "" && k.category == ""
}

// MarshalText implements encoding.TextMarshaler so keys can be used as JSON map keys
func (k PreferenceKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (k *PreferenceKey) UnmarshalText(data []byte) error {
	parsed, err := ParsePreferenceKey(string(data))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
