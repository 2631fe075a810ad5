package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"tryonapi/config"
	"tryonapi/models"
	"tryonapi/services"
)

type ImageGenerator interface {
	GenerateImage(ctx context.Context, req services.ImageRequest) (models.ImageReference, error)
}

// GarmentTryOn runs the dedicated Replicate try-on models.
type GarmentTryOn interface {
	FashnTryOn(ctx context.Context, person, garment models.ImageReference, category models.Category) (models.ImageReference, error)
	IDMVTONTryOn(ctx context.Context, person, garment models.ImageReference, category models.Category) (models.ImageReference, error)
}

// Providers are the configured adapters. Replicate is nil without a token.
type Providers struct {
	Gemini    ImageGenerator
	Replicate GarmentTryOn
}

const (
	replicateFashn   = "fashn"
	replicateIDMVTON = "idm-vton"
)

// FromConfig resolves the configured model lists into orchestrator options.
func FromConfig(cfg config.Config, providers Providers, swapper FaceSwapper) Options {
	opts := Options{
		Strategy:    cfg.Strategy,
		Base:        BaseCandidates(cfg.BaseModels, providers),
		Chain:       ChainCandidates(cfg.Chain, providers),
		CallTimeout: cfg.CallTimeout,
	}
	if swapper != nil {
		opts.FaceSwapper = swapper
		opts.FaceSwapProvider = services.ReplicateProviderID
		opts.FaceSwapModel = services.RoopFaceSwapModel
	}
	return opts
}

// Build creates the provider adapters cfg asks for and the orchestrator over
// them. The Gemini adapter is returned too, style advice runs on it.
func Build(ctx context.Context, cfg config.Config) (*Orchestrator, *services.GeminiAdapter, error) {
	gemini, err := services.NewGeminiAdapter(ctx, cfg.GeminiAPIKey, services.GeminiOptions{BaseURL: cfg.GeminiBaseURL})
	if err != nil {
		return nil, nil, err
	}
	providers := Providers{Gemini: gemini}

	var swapper FaceSwapper
	if cfg.FaceSwapEnabled() {
		replicate, err := services.NewReplicateAdapter(cfg.ReplicateAPIToken)
		if err != nil {
			return nil, nil, err
		}
		providers.Replicate = replicate
		swapper = replicate
	} else {
		fmt.Println("[TryOn] REPLICATE_API_TOKEN is not set, face swap is disabled")
	}

	return New(FromConfig(cfg, providers, swapper)), gemini, nil
}

// BaseCandidates builds the step one candidates of the two-step strategy.
// Gemini gets labelled images with the prompt last.
func BaseCandidates(entries []string, providers Providers) []Candidate {
	return buildCandidates(entries, providers, func(gemini ImageGenerator, model string) Candidate {
		return Candidate{
			ProviderID: services.GeminiProviderID,
			Model:      model,
			Invoke: func(ctx context.Context, in CandidateInput) (models.ImageReference, error) {
				return gemini.GenerateImage(ctx, services.ImageRequest{
					Model:      model,
					Prompt:     in.Prompt,
					PromptLast: true,
					Images: []services.LabeledImage{
						{Label: services.ReferencePersonLabel, Image: in.Request.SubjectImage},
						{Label: services.GarmentLabel, Image: in.Request.GarmentImage},
					},
				})
			},
		}
	})
}

// ChainCandidates builds the fallback-chain candidates. Gemini gets the
// prompt first and a 3:4 portrait, 2K on pro models.
func ChainCandidates(entries []string, providers Providers) []Candidate {
	return buildCandidates(entries, providers, func(gemini ImageGenerator, model string) Candidate {
		imageSize := ""
		if strings.Contains(model, "pro") {
			imageSize = "2K"
		}
		return Candidate{
			ProviderID: services.GeminiProviderID,
			Model:      model,
			Invoke: func(ctx context.Context, in CandidateInput) (models.ImageReference, error) {
				return gemini.GenerateImage(ctx, services.ImageRequest{
					Model:  model,
					Prompt: in.Prompt,
					Images: []services.LabeledImage{
						{Image: in.Request.SubjectImage},
						{Image: in.Request.GarmentImage},
					},
					AspectRatio: "3:4",
					ImageSize:   imageSize,
				})
			},
		}
	})
}

func buildCandidates(entries []string, providers Providers, gemini func(ImageGenerator, string) Candidate) []Candidate {
	var candidates []Candidate
	for _, entry := range entries {
		provider, model, err := ParseEntry(entry)
		if err != nil {
			fmt.Println("[TryOn] Skipping model entry:", err)
			continue
		}
		switch provider {
		case services.GeminiProviderID:
			if providers.Gemini == nil {
				fmt.Println("[TryOn] Skipping", entry, "as gemini is not configured")
				continue
			}
			candidates = append(candidates, gemini(providers.Gemini, model))
		case services.ReplicateProviderID:
			if providers.Replicate == nil {
				fmt.Println("[TryOn] Skipping", entry, "as REPLICATE_API_TOKEN is not set")
				continue
			}
			candidates = append(candidates, replicateCandidate(providers.Replicate, model))
		}
	}
	return candidates
}

func replicateCandidate(replicate GarmentTryOn, model string) Candidate {
	tryOn := replicate.FashnTryOn
	modelID := services.FashnTryOnModel
	if model == replicateIDMVTON {
		tryOn = replicate.IDMVTONTryOn
		modelID = services.IDMVTONModel
	}
	return Candidate{
		ProviderID: services.ReplicateProviderID,
		Model:      modelID,
		Invoke: func(ctx context.Context, in CandidateInput) (models.ImageReference, error) {
			return tryOn(ctx, in.Request.SubjectImage, in.Request.GarmentImage, in.Request.Category)
		},
	}
}

// ParseEntry splits "provider:model". A bare model name is a Gemini model.
func ParseEntry(entry string) (string, string, error) {
	entry = strings.TrimSpace(entry)
	provider, model, found := strings.Cut(entry, ":")
	if !found {
		provider, model = services.GeminiProviderID, entry
	}
	provider = strings.ToLower(strings.TrimSpace(provider))
	model = strings.TrimSpace(model)
	if model == "" {
		return "", "", fmt.Errorf("empty model in %q", entry)
	}
	switch provider {
	case services.GeminiProviderID:
		return provider, model, nil
	case services.ReplicateProviderID:
		model = strings.ToLower(model)
		if model != replicateFashn && model != replicateIDMVTON {
			return "", "", fmt.Errorf("unknown replicate model %q", model)
		}
		return provider, model, nil
	}
	return "", "", fmt.Errorf("unknown provider %q", provider)
}
