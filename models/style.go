package models

type ShoppingLink struct {
	Store string `json:"store"`
	URL   string `json:"url"`
}

type ComplementaryItem struct {
	Category      string         `json:"type"`
	Description   string         `json:"description"`
	Color         string         `json:"color"`
	PriceRange    string         `json:"priceRange"`
	SearchQuery   string         `json:"searchQuery"`
	ShoppingLinks []ShoppingLink `json:"shoppingLinks"`
}

type StyleRecommendation struct {
	Analysis           string              `json:"analysis"`
	StylingTips        []string            `json:"stylingTips"`
	ComplementaryItems []ComplementaryItem `json:"complementaryItems"`
}

const UnableToAnalyze = "Unable to analyze the item"

// EmptyRecommendation is returned whenever advice could not be produced.
func EmptyRecommendation() StyleRecommendation {
	return StyleRecommendation{
		Analysis:           UnableToAnalyze,
		StylingTips:        []string{},
		ComplementaryItems: []ComplementaryItem{},
	}
}
