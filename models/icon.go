package models

import "strings"

// IconKey identifies one of the fixed category icons rendered by the dashboard.
type IconKey string

const (
	IconGroceries     IconKey = "groceries"
	IconTransport     IconKey = "transport"
	IconHousing       IconKey = "housing"
	IconEntertainment IconKey = "entertainment"
	IconHealth        IconKey = "health"
	IconEducation     IconKey = "education"
	IconOther         IconKey = "other"
)

var iconKeys = []IconKey{
	IconGroceries,
	IconTransport,
	IconHousing,
	IconEntertainment,
	IconHealth,
	IconEducation,
	IconOther,
}

var iconLabels = map[IconKey]string{
	IconGroceries:     "Groceries",
	IconTransport:     "Transport",
	IconHousing:       "Housing",
	IconEntertainment: "Entertainment",
	IconHealth:        "Health",
	IconEducation:     "Education",
	IconOther:         "Other",
}

// IconKeys returns the enumeration in display order.
func IconKeys() []IconKey {
	out := make([]IconKey, len(iconKeys))
	copy(out, iconKeys)
	return out
}

func (k IconKey) Valid() bool {
	_, ok := iconLabels[k]
	return ok
}

// Label is the human readable name of the icon. Unknown keys render as Other.
func (k IconKey) Label() string {
	if label, ok := iconLabels[k]; ok {
		return label
	}
	return iconLabels[IconOther]
}

// ParseIconKey normalizes free text (typically a model answer) into a key.
func ParseIconKey(raw string) (IconKey, bool) {
	cleaned := strings.ToLower(strings.TrimSpace(raw))
	cleaned = strings.Trim(cleaned, " \t\r\n.\"'`*")
	key := IconKey(cleaned)
	if !key.Valid() {
		return IconOther, false
	}
	return key, true
}

// IconOrFallback maps anything outside the enumeration to IconOther.
func IconOrFallback(raw string) IconKey {
	key, _ := ParseIconKey(raw)
	return key
}
