package brackets

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Dosada05/bracket-engine/models"
)

// OpenCategory is used for any category field the registrant left blank.
const OpenCategory = "Open"

var ErrNoParticipants = errors.New("no approved participants")

// CategoryKey is the composite (age, weight, belt) competition category.
type CategoryKey struct {
	Age    string
	Weight string
	Belt   string
}

// Name renders the key for display. It is not unique: fields may contain
// the separator, so identity always goes through the three fields.
func (k CategoryKey) Name() string {
	return fmt.Sprintf("%s, %s, %s", k.Age, k.Weight, k.Belt)
}

func (k CategoryKey) Less(other CategoryKey) bool {
	if a, b := k.Name(), other.Name(); a != b {
		return a < b
	}
	if k.Age != other.Age {
		return k.Age < other.Age
	}
	if k.Weight != other.Weight {
		return k.Weight < other.Weight
	}
	return k.Belt < other.Belt
}

func CategoryKeyOf(r *models.Registration) CategoryKey {
	return CategoryKey{
		Age:    categoryField(r.CategoryAge),
		Weight: categoryField(r.CategoryWeight),
		Belt:   categoryField(r.CategoryBelt),
	}
}

func categoryField(v *string) string {
	if v == nil {
		return OpenCategory
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return OpenCategory
	}
	return trimmed
}

// GroupRegistrations partitions approved registrations into disjoint categories.
// Registrations that are not approved are ignored. Within a category the
// registration order of the input is preserved.
func GroupRegistrations(registrations []*models.Registration) (map[CategoryKey][]*models.Registration, error) {
	groups := make(map[CategoryKey][]*models.Registration)
	for _, r := range registrations {
		if r == nil || r.ApprovalStatus != models.RegistrationApproved {
			continue
		}
		key := CategoryKeyOf(r)
		groups[key] = append(groups[key], r)
	}
	if len(groups) == 0 {
		return nil, ErrNoParticipants
	}
	return groups, nil
}

// SortedKeys returns the category keys ordered by their rendered name.
// Distinct keys may render the same name, those are ordered field by field.
func SortedKeys(groups map[CategoryKey][]*models.Registration) []CategoryKey {
	keys := make([]CategoryKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].Less(keys[j])
	})
	return keys
}
