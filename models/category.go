package models

import "strings"

// OtherCategory is the protected catch-all category.
const OtherCategory = "Other"

type Category struct {
	Name string  `json:"name"`
	Icon IconKey `json:"icon"`
}

type CreateCategoryRequest struct {
	Name string `json:"name" binding:"required"`
}

type SuggestIconRequest struct {
	Name string `json:"name" binding:"required"`
}

// DefaultCategories are seeded into an empty ledger.
func DefaultCategories() []Category {
	return []Category{
		{Name: "Groceries", Icon: IconGroceries},
		{Name: "Transport", Icon: IconTransport},
		{Name: "Housing", Icon: IconHousing},
		{Name: "Entertainment", Icon: IconEntertainment},
		{Name: "Health", Icon: IconHealth},
		{Name: "Education", Icon: IconEducation},
		{Name: OtherCategory, Icon: IconOther},
	}
}

// SameCategoryName reports whether two names collide under the
// case-insensitive uniqueness rule.
func SameCategoryName(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
