package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"tryonapi/models"

	"github.com/getsentry/sentry-go"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type TextGenerator interface {
	GenerateText(ctx context.Context, model string, prompt string, image models.ImageReference) (string, error)
}

type Marketplace struct {
	Name    string
	BaseURL string
}

var Marketplaces = []Marketplace{
	{Name: "Myntra", BaseURL: "https://www.myntra.com/search?q="},
	{Name: "Ajio", BaseURL: "https://www.ajio.com/search/?text="},
	{Name: "Amazon", BaseURL: "https://www.amazon.in/s?k="},
	{Name: "Flipkart", BaseURL: "https://www.flipkart.com/search?q="},
	{Name: "Meesho", BaseURL: "https://www.meesho.com/search?q="},
}

type StyleAdvisor struct {
	Generator TextGenerator
	Model     string
}

func NewStyleAdvisor(generator TextGenerator, model string) *StyleAdvisor {
	if model == "" {
		model = Flash20.String()
	}
	return &StyleAdvisor{Generator: generator, Model: model}
}

// GetRecommendations never fails, a neutral recommendation comes back instead.
func (s *StyleAdvisor) GetRecommendations(ctx context.Context, garment models.ImageReference) models.StyleRecommendation {
	if s == nil || s.Generator == nil {
		return models.EmptyRecommendation()
	}
	text, err := s.Generator.GenerateText(ctx, s.Model, StyleAdvicePrompt, garment)
	if err != nil {
		fmt.Println("[Style] Error getting recommendations:", err)
		sentry.CaptureException(fmt.Errorf("[Style] %s recommendation call failed: %w", s.Model, err))
		return models.EmptyRecommendation()
	}
	recommendation, err := ParseStyleRecommendation(text)
	if err != nil {
		fmt.Println("[Style] Error parsing recommendations:", err)
		sentry.CaptureException(err)
		return models.EmptyRecommendation()
	}
	return recommendation
}

// ParseStyleRecommendation decodes the first JSON object in text and adds shopping links.
func ParseStyleRecommendation(text string) (models.StyleRecommendation, error) {
	payload, ok := ExtractJSONObject(text)
	if !ok {
		return models.StyleRecommendation{}, fmt.Errorf("no JSON object in %q: %w", truncate(text, 120), models.ErrAdvisoryParseFailure)
	}
	var recommendation models.StyleRecommendation
	if err := json.Unmarshal([]byte(payload), &recommendation); err != nil {
		return models.StyleRecommendation{}, fmt.Errorf("%v: %w", err, models.ErrAdvisoryParseFailure)
	}
	if recommendation.Analysis == "" && len(recommendation.StylingTips) == 0 && len(recommendation.ComplementaryItems) == 0 {
		return models.StyleRecommendation{}, fmt.Errorf("empty advice object: %w", models.ErrAdvisoryParseFailure)
	}
	if recommendation.StylingTips == nil {
		recommendation.StylingTips = []string{}
	}
	if recommendation.ComplementaryItems == nil {
		recommendation.ComplementaryItems = []models.ComplementaryItem{}
	}

	titleCaser := cases.Title(language.English)
	for i := range recommendation.ComplementaryItems {
		item := &recommendation.ComplementaryItems[i]
		item.Category = titleCaser.String(strings.TrimSpace(item.Category))
		item.ShoppingLinks = ShoppingLinks(*item)
	}
	return recommendation, nil
}

// ExtractJSONObject returns the first well-formed JSON object in text. Each
// "{" is tried in turn and prose after the object is ignored.
func ExtractJSONObject(text string) (string, bool) {
	for offset := 0; offset < len(text); {
		start := strings.Index(text[offset:], "{")
		if start < 0 {
			return "", false
		}
		start += offset
		var raw json.RawMessage
		if err := json.NewDecoder(strings.NewReader(text[start:])).Decode(&raw); err == nil {
			return string(raw), true
		}
		offset = start + 1
	}
	return "", false
}

// ShoppingLinks builds one search link per marketplace. The description is
// used when the search query is empty.
func ShoppingLinks(item models.ComplementaryItem) []models.ShoppingLink {
	query := strings.TrimSpace(item.SearchQuery)
	if query == "" {
		query = strings.TrimSpace(item.Description)
	}
	links := make([]models.ShoppingLink, 0, len(Marketplaces))
	for _, marketplace := range Marketplaces {
		links = append(links, models.ShoppingLink{
			Store: marketplace.Name,
			URL:   marketplace.BaseURL + url.QueryEscape(query),
		})
	}
	return links
}
