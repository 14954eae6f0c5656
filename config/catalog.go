package config

import (
	"strings"

	"estatehub/server/internal/models"
)

// CategoryLabel maps a navigation label onto a stored category.
type CategoryLabel struct {
	Label    string          `json:"label"`
	Category models.Category `json:"category"`
}

// SupportedCategories is the category menu shown by the front end.
var SupportedCategories = []CategoryLabel{
	{Label: "Flats", Category: models.CategoryFlat},
	{Label: "Houses", Category: models.CategoryHouse},
	{Label: "Plots", Category: models.CategoryPlot},
}

// SupportedOfferTypes lists the offer types in display order.
var SupportedOfferTypes = []models.OfferType{
	models.OfferForSale,
	models.OfferForRent,
}

// GetCategoryLabels returns the menu labels in display order.
func GetCategoryLabels() []string {
	labels := make([]string, len(SupportedCategories))
	for i, c := range SupportedCategories {
		labels[i] = c.Label
	}
	return labels
}

// ParseCategory accepts a stored category or a menu label in any case.
// The empty string means "any" and parses successfully.
func ParseCategory(s string) (models.Category, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", true
	}
	for _, c := range SupportedCategories {
		if strings.EqualFold(s, c.Label) || strings.EqualFold(s, string(c.Category)) {
			return c.Category, true
		}
	}
	return "", false
}

// ParseOfferType accepts "For Sale", "sale", "for-rent" and similar spellings.
func ParseOfferType(s string) (models.OfferType, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("-", " ", "_", " ").Replace(s)
	switch s {
	case "":
		return "", true
	case "for sale", "sale", "buy":
		return models.OfferForSale, true
	case "for rent", "rent":
		return models.OfferForRent, true
	}
	return "", false
}
