// Package persistence holds the storage conventions shared by every
// PreferenceGraph implementation.
package persistence

import (
	"fmt"
	"sort"
	"strings"

	"chatter/domain/core/entities"
	"chatter/domain/core/valueobjects"
)

const (
	// AttrPopularity holds a preference's popularity
	AttrPopularity = "Popularity"
	// AttrVersion counts the updates applied to a preference
	AttrVersion = "Version"
	// AttrLastModifiedBy holds the fingerprint of the last applied update
	AttrLastModifiedBy = "LastModifiedBy"
	// CorrelationAttrPrefix prefixes the attribute holding one edge weight
	CorrelationAttrPrefix = "C#"

	fingerprintSeparator = "~~"
)

// CorrelationAttribute names the attribute holding the weight of the edge to dest
func CorrelationAttribute(dest valueobjects.PreferenceKey) string {
	return CorrelationAttrPrefix + dest.String()
}

// ParseCorrelationAttribute inverts CorrelationAttribute
func ParseCorrelationAttribute(name string) (valueobjects.PreferenceKey, bool) {
	if !strings.HasPrefix(name, CorrelationAttrPrefix) {
		return valueobjects.PreferenceKey{}, false
	}
	key, err := valueobjects.ParsePreferenceKey(strings.TrimPrefix(name, CorrelationAttrPrefix))
	if err != nil {
		return valueobjects.PreferenceKey{}, false
	}
	return key, true
}

// UpdatedAttributes lists, sorted, the attributes req modifies
func UpdatedAttributes(req *entities.UpdateRequest) []string {
	var names []string
	if _, ok := req.PopularityDelta(); ok {
		names = append(names, AttrPopularity)
	}
	for _, dest := range req.CorrelatedKeys() {
		names = append(names, CorrelationAttribute(dest))
	}
	sort.Strings(names)
	return names
}

// Fingerprint identifies an update for idempotency purposes: the acting
// user, the attributes touched and the delta. A store rejects an update
// whose fingerprint equals the one it recorded last for the same record.
func Fingerprint(actingUserID string, req *entities.UpdateRequest, action valueobjects.UpdateAction) string {
	return fmt.Sprintf("%s%s%s%s%d",
		actingUserID, fingerprintSeparator,
		strings.Join(UpdatedAttributes(req), ","), fingerprintSeparator,
		action.Delta(),
	)
}
