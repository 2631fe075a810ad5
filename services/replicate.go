package services

import (
	"context"
	"fmt"
	"math/rand"

	"tryonapi/models"

	"github.com/replicate/replicate-go"
)

const ReplicateProviderID = "replicate"

// Pinned model versions.
const (
	RoopFaceSwapModel = "yan-ops/roop_face_swap:dfe65731046d8c5af68c28f0a5e2050cf9e4f6dc8d1b3be00af26cb4e1c8e2ac"
	FashnTryOnModel   = "fashn-ai/tryon:9725fffb6fc8dfd9f0c58a37fee85c3b0e3f5eeefbdbcb9a450b6db4a22aa32d"
	IDMVTONModel      = "cuuupid/idm-vton:c871bb9b046c1c045725e293bfe1e5847ae29f8d0bfc76b6bd32ed0dd89bf5eb"
)

// RunFunc runs a prediction and waits for its output.
type RunFunc func(ctx context.Context, identifier string, input map[string]any) (any, error)

type ReplicateAdapter struct {
	run  RunFunc
	seed func() int
}

func NewReplicateAdapter(token string) (*ReplicateAdapter, error) {
	client, err := replicate.NewClient(replicate.WithToken(token))
	if err != nil {
		return nil, fmt.Errorf("failed to create replicate client: %w", err)
	}
	return NewReplicateAdapterWithRunner(func(ctx context.Context, identifier string, input map[string]any) (any, error) {
		output, err := client.Run(ctx, identifier, replicate.PredictionInput(input), nil)
		if err != nil {
			return nil, err
		}
		return any(output), nil
	}), nil
}

func NewReplicateAdapterWithRunner(run RunFunc) *ReplicateAdapter {
	return &ReplicateAdapter{run: run, seed: func() int { return rand.Intn(1000000) }}
}

// WithSeed fixes the IDM-VTON seed.
func (r *ReplicateAdapter) WithSeed(seed int) *ReplicateAdapter {
	r.seed = func() int { return seed }
	return r
}

// SwapFace puts the face of source onto target. An output of unexpected shape
// returns target unchanged.
func (r *ReplicateAdapter) SwapFace(ctx context.Context, source, target models.ImageReference) (models.ImageReference, error) {
	sourceURI, err := Normalize(source, FormURI)
	if err != nil {
		return models.ImageReference{}, err
	}
	targetURI, err := Normalize(target, FormURI)
	if err != nil {
		return models.ImageReference{}, err
	}
	output, err := r.run(ctx, RoopFaceSwapModel, map[string]any{
		"swap_image":   sourceURI.URL,
		"target_image": targetURI.URL,
	})
	if err != nil {
		return models.ImageReference{}, models.NewProviderError(ReplicateProviderID, RoopFaceSwapModel, err)
	}
	url, ok := NormalizeReplicateOutput(output)
	if !ok {
		fmt.Printf("[Replicate] Face swap returned unexpected output %T, using target image\n", output)
		return target, nil
	}
	return models.NewURIImage(url), nil
}

// FashnTryOn runs the fashn-ai try-on model.
func (r *ReplicateAdapter) FashnTryOn(ctx context.Context, person, garment models.ImageReference, category models.Category) (models.ImageReference, error) {
	personURI, garmentURI, err := toURIs(person, garment)
	if err != nil {
		return models.ImageReference{}, err
	}
	return r.runTryOn(ctx, FashnTryOnModel, map[string]any{
		"model_image":         personURI,
		"garment_image":       garmentURI,
		"category":            FashnCategory(category),
		"guidance_scale":      2.5,
		"num_inference_steps": 50,
		"garment_photo_type":  "auto",
		"cover_feet":          false,
		"adjust_hands":        true,
		"restore_background":  true,
		"restore_clothes":     true,
	})
}

// IDMVTONTryOn runs the IDM-VTON try-on model.
func (r *ReplicateAdapter) IDMVTONTryOn(ctx context.Context, person, garment models.ImageReference, category models.Category) (models.ImageReference, error) {
	personURI, garmentURI, err := toURIs(person, garment)
	if err != nil {
		return models.ImageReference{}, err
	}
	if !category.IsValid() {
		category = models.CategoryUpperBody
	}
	return r.runTryOn(ctx, IDMVTONModel, map[string]any{
		"human_img":     personURI,
		"garm_img":      garmentURI,
		"garment_des":   garmentDescription(category),
		"category":      string(category),
		"denoise_steps": 30,
		"seed":          r.seed(),
	})
}

func (r *ReplicateAdapter) runTryOn(ctx context.Context, model string, input map[string]any) (models.ImageReference, error) {
	output, err := r.run(ctx, model, input)
	if err != nil {
		return models.ImageReference{}, models.NewProviderError(ReplicateProviderID, model, err)
	}
	url, ok := NormalizeReplicateOutput(output)
	if !ok {
		return models.ImageReference{}, &models.ProviderError{
			ProviderID: ReplicateProviderID,
			Model:      model,
			RawMessage: fmt.Sprintf("unexpected output format %T", output),
			Cause:      models.ErrNoImageProduced,
		}
	}
	return models.NewURIImage(url), nil
}

// NormalizeReplicateOutput accepts a string, a list starting with a string,
// or an object with an "image" string.
func NormalizeReplicateOutput(output any) (string, bool) {
	switch value := output.(type) {
	case string:
		return value, value != ""
	case []any:
		if len(value) > 0 {
			if first, ok := value[0].(string); ok && first != "" {
				return first, true
			}
		}
	case []string:
		if len(value) > 0 && value[0] != "" {
			return value[0], true
		}
	case map[string]any:
		if image, ok := value["image"].(string); ok && image != "" {
			return image, true
		}
	}
	return "", false
}

func FashnCategory(category models.Category) string {
	switch category {
	case models.CategoryLowerBody:
		return "bottoms"
	case models.CategoryDresses:
		return "one-pieces"
	default:
		return "tops"
	}
}

func garmentDescription(category models.Category) string {
	switch category {
	case models.CategoryDresses:
		return "A beautiful dress"
	case models.CategoryLowerBody:
		return "Stylish pants"
	default:
		return "A stylish top"
	}
}

func toURIs(person, garment models.ImageReference) (string, string, error) {
	personURI, err := Normalize(person, FormURI)
	if err != nil {
		return "", "", err
	}
	garmentURI, err := Normalize(garment, FormURI)
	if err != nil {
		return "", "", err
	}
	return personURI.URL, garmentURI.URL, nil
}
