package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"tryonapi/models"

	"google.golang.org/genai"
)

const GeminiProviderID = "gemini"

// LLMModelName is a known Gemini model.
type LLMModelName int32

const (
	Gemini3ProImage LLMModelName = iota
	Flash25Image
	Flash20ExpImage
	Flash20
)

func (t LLMModelName) String() string {
	switch t {
	case Gemini3ProImage:
		return "gemini-3-pro-image-preview"
	case Flash25Image:
		return "gemini-2.5-flash-image"
	case Flash20ExpImage:
		return "gemini-2.0-flash-exp-image-generation"
	case Flash20:
		return "gemini-2.0-flash"
	default:
		return "gemini-2.0-flash"
	}
}

type LabeledImage struct {
	Label string
	Image models.ImageReference
}

type ImageRequest struct {
	Model  string
	Prompt string
	Images []LabeledImage
	// PromptLast sends the prompt after the images instead of before them.
	PromptLast  bool
	AspectRatio string
	ImageSize   string
}

type GeminiOptions struct {
	BaseURL    string
	HTTPClient *http.Client
}

type GeminiAdapter struct {
	client *genai.Client
}

func NewGeminiAdapter(ctx context.Context, apiKey string, opts GeminiOptions) (*GeminiAdapter, error) {
	clientConfig := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: opts.HTTPClient,
	}
	if opts.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}
	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GeminiAdapter{client: client}, nil
}

// GenerateImage sends ordered image parts and returns the first image in the response.
func (g *GeminiAdapter) GenerateImage(ctx context.Context, req ImageRequest) (models.ImageReference, error) {
	parts, err := buildImageParts(req)
	if err != nil {
		return models.ImageReference{}, err
	}
	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
		CandidateCount:     1,
	}
	if req.AspectRatio != "" || req.ImageSize != "" {
		config.ImageConfig = &genai.ImageConfig{AspectRatio: req.AspectRatio, ImageSize: req.ImageSize}
	}

	result, err := g.client.Models.GenerateContent(ctx, req.Model, []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, config)
	if err != nil {
		fmt.Println("[Gemini] Error in GenerateContent:", req.Model, err)
		return models.ImageReference{}, geminiError(req.Model, err)
	}
	logUsage(req.Model, result)

	image, err := FirstInlineImage(result)
	if err != nil {
		return models.ImageReference{}, &models.ProviderError{
			ProviderID: GeminiProviderID,
			Model:      req.Model,
			RawMessage: err.Error(),
			Cause:      err,
		}
	}
	return image, nil
}

// GenerateText asks a text model about one image and returns the raw text answer.
func (g *GeminiAdapter) GenerateText(ctx context.Context, model string, prompt string, image models.ImageReference) (string, error) {
	inline, err := Normalize(image, FormInline)
	if err != nil {
		return "", err
	}
	parts := []*genai.Part{
		genai.NewPartFromText(prompt),
		genai.NewPartFromBytes(inline.Data, inline.MIMEType),
	}
	result, err := g.client.Models.GenerateContent(ctx, model, []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		CandidateCount:   1,
	})
	if err != nil {
		return "", geminiError(model, err)
	}
	logUsage(model, result)
	if err := blockedReason(result); err != nil {
		return "", models.NewProviderError(GeminiProviderID, model, err)
	}
	return result.Text(), nil
}

func buildImageParts(req ImageRequest) ([]*genai.Part, error) {
	var parts []*genai.Part
	if !req.PromptLast {
		parts = append(parts, genai.NewPartFromText(req.Prompt))
	}
	for i, labeled := range req.Images {
		inline, err := Normalize(labeled.Image, FormInline)
		if err != nil {
			return nil, fmt.Errorf("image %d: %w", i+1, err)
		}
		if labeled.Label != "" {
			parts = append(parts, genai.NewPartFromText(labeled.Label))
		}
		parts = append(parts, genai.NewPartFromBytes(inline.Data, inline.MIMEType))
	}
	if req.PromptLast {
		parts = append(parts, genai.NewPartFromText(req.Prompt))
	}
	return parts, nil
}

// FirstInlineImage scans every candidate part for the first image payload.
// A text-only answer is ErrNoImageProduced.
func FirstInlineImage(result *genai.GenerateContentResponse) (models.ImageReference, error) {
	if result == nil {
		return models.ImageReference{}, fmt.Errorf("empty response: %w", models.ErrNoImageProduced)
	}
	if err := blockedReason(result); err != nil {
		return models.ImageReference{}, err
	}

	var texts []string
	for _, cand := range result.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part == nil {
				continue
			}
			inlineData := part.InlineData
			if inlineData != nil && strings.HasPrefix(inlineData.MIMEType, "image/") && len(inlineData.Data) > 0 {
				return models.NewInlineImage(inlineData.Data, inlineData.MIMEType), nil
			}
			if part.Text != "" && !part.Thought {
				texts = append(texts, part.Text)
			}
		}
	}
	if len(texts) > 0 {
		return models.ImageReference{}, fmt.Errorf("%w, model said: %s", models.ErrNoImageProduced, truncate(strings.Join(texts, " "), 200))
	}
	return models.ImageReference{}, models.ErrNoImageProduced
}

func blockedReason(result *genai.GenerateContentResponse) error {
	if result.PromptFeedback != nil && result.PromptFeedback.BlockReason != "" {
		return fmt.Errorf("content violation: %s %s", result.PromptFeedback.BlockReason, result.PromptFeedback.BlockReasonMessage)
	}
	for _, cand := range result.Candidates {
		if cand == nil {
			continue
		}
		for _, rating := range cand.SafetyRatings {
			if rating != nil && rating.Blocked {
				return fmt.Errorf("content blocked by safety setting: %s", rating.Category)
			}
		}
	}
	return nil
}

func geminiError(model string, err error) *models.ProviderError {
	providerErr := models.NewProviderError(GeminiProviderID, model, err)
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		providerErr.RawMessage = fmt.Sprintf("%d %s: %s", apiErr.Code, apiErr.Status, apiErr.Message)
		providerErr.PermissionDenied = apiErr.Code == http.StatusForbidden || apiErr.Status == "PERMISSION_DENIED"
	}
	message := err.Error()
	if strings.Contains(message, "PERMISSION_DENIED") || strings.Contains(message, "Requested entity was not found") {
		providerErr.PermissionDenied = true
	}
	return providerErr
}

func logUsage(model string, result *genai.GenerateContentResponse) {
	if result == nil || result.UsageMetadata == nil {
		return
	}
	fmt.Printf("[Gemini] %s tokens: input %d, output %d, thoughts %d, total %d\n",
		model,
		result.UsageMetadata.PromptTokenCount,
		result.UsageMetadata.CandidatesTokenCount,
		result.UsageMetadata.ThoughtsTokenCount,
		result.UsageMetadata.TotalTokenCount,
	)
}

// truncate cuts text to at most max bytes without splitting a UTF-8 sequence.
func truncate(text string, max int) string {
	if len(text) <= max {
		return text
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "..."
}
