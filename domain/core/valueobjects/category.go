package valueobjects

import (
	"strings"

	pkgerrors "chatter/pkg/errors"
)

// Category groups preferences that may be correlated with each other.
// Correlations never cross categories.
type Category string

const (
	CategoryRestaurants Category = "RESTAURANTS"
	CategoryBooks       Category = "BOOKS"
	CategoryTelevision  Category = "TELEVISION"
	CategoryMovies      Category = "MOVIES"
)

// AllCategories returns every supported category in declaration order
func AllCategories() []Category {
	return []Category{CategoryRestaurants, CategoryBooks, CategoryTelevision, CategoryMovies}
}

// ParseCategory converts user input into a Category, ignoring case and
// surrounding whitespace
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToUpper(strings.TrimSpace(s)))
	if !c.IsValid() {
		return "", pkgerrors.NewValidationError("unknown preference category: " + s)
	}
	return c, nil
}

// IsValid reports whether c is one of the supported categories
func (c Category) IsValid() bool {
	switch c {
	case CategoryRestaurants, CategoryBooks, CategoryTelevision, CategoryMovies:
		return true
	}
	return false
}

func (c Category) String() string {
	return string(c)
}
