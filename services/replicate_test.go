package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"tryonapi/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRun struct {
	identifier string
	input      map[string]any
	output     any
	err        error
}

func (f *fakeRun) run(ctx context.Context, identifier string, input map[string]any) (any, error) {
	f.identifier = identifier
	f.input = input
	return f.output, f.err
}

func TestNormalizeReplicateOutput(t *testing.T) {
	cases := []struct {
		name   string
		output any
		url    string
		ok     bool
	}{
		{"string", "https://replicate.delivery/a.png", "https://replicate.delivery/a.png", true},
		{"list", []any{"https://replicate.delivery/b.png", "ignored"}, "https://replicate.delivery/b.png", true},
		{"string list", []string{"https://replicate.delivery/c.png"}, "https://replicate.delivery/c.png", true},
		{"object", map[string]any{"image": "https://replicate.delivery/d.png"}, "https://replicate.delivery/d.png", true},
		{"empty list", []any{}, "", false},
		{"number list", []any{42}, "", false},
		{"nil", nil, "", false},
		{"empty string", "", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			url, ok := NormalizeReplicateOutput(tc.output)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.url, url)
		})
	}
}

func TestSwapFaceSendsDataURIs(t *testing.T) {
	fake := &fakeRun{output: "https://replicate.delivery/swapped.png"}
	adapter := NewReplicateAdapterWithRunner(fake.run)

	source := models.NewInlineImage([]byte("face"), "image/jpeg")
	target := models.NewInlineImage(pngBytes, "image/png")
	result, err := adapter.SwapFace(context.Background(), source, target)

	require.NoError(t, err)
	assert.Equal(t, "https://replicate.delivery/swapped.png", result.URL)
	assert.Equal(t, RoopFaceSwapModel, fake.identifier)
	assert.True(t, strings.HasPrefix(fake.input["swap_image"].(string), "data:image/jpeg;base64,"))
	assert.True(t, strings.HasPrefix(fake.input["target_image"].(string), "data:image/png;base64,"))
}

func TestSwapFaceUnexpectedShapeReturnsTarget(t *testing.T) {
	fake := &fakeRun{output: map[string]any{"status": "weird"}}
	adapter := NewReplicateAdapterWithRunner(fake.run)

	target := models.NewInlineImage(pngBytes, "image/png")
	result, err := adapter.SwapFace(context.Background(), models.NewURIImage("https://a/face.jpg"), target)

	require.NoError(t, err)
	assert.True(t, target.Equal(result))
}

func TestSwapFaceTransportErrorIsProviderError(t *testing.T) {
	fake := &fakeRun{err: errors.New("502 bad gateway")}
	adapter := NewReplicateAdapterWithRunner(fake.run)

	_, err := adapter.SwapFace(context.Background(), models.NewURIImage("https://a/face.jpg"), models.NewURIImage("https://a/body.jpg"))

	var providerErr *models.ProviderError
	require.ErrorAs(t, err, &providerErr)
	assert.Equal(t, ReplicateProviderID, providerErr.ProviderID)
	assert.Equal(t, "502 bad gateway", providerErr.RawMessage)
}

func TestFashnTryOnInputs(t *testing.T) {
	fake := &fakeRun{output: []any{"https://replicate.delivery/fashn.png"}}
	adapter := NewReplicateAdapterWithRunner(fake.run)

	result, err := adapter.FashnTryOn(context.Background(), models.NewURIImage("https://a/p.jpg"), models.NewURIImage("https://a/g.jpg"), models.CategoryDresses)

	require.NoError(t, err)
	assert.Equal(t, "https://replicate.delivery/fashn.png", result.URL)
	assert.Equal(t, FashnTryOnModel, fake.identifier)
	assert.Equal(t, "one-pieces", fake.input["category"])
	assert.Equal(t, "https://a/p.jpg", fake.input["model_image"])
	assert.Equal(t, 2.5, fake.input["guidance_scale"])
	assert.Equal(t, true, fake.input["restore_clothes"])
	assert.Equal(t, false, fake.input["cover_feet"])
}

func TestIDMVTONTryOnInputsAndBadOutput(t *testing.T) {
	fake := &fakeRun{output: 12}
	adapter := NewReplicateAdapterWithRunner(fake.run).WithSeed(7)

	_, err := adapter.IDMVTONTryOn(context.Background(), models.NewURIImage("https://a/p.jpg"), models.NewURIImage("https://a/g.jpg"), models.CategoryLowerBody)

	assert.Equal(t, models.KindNoImageProduced, models.KindOf(err))
	assert.Equal(t, IDMVTONModel, fake.identifier)
	assert.Equal(t, "lower_body", fake.input["category"])
	assert.Equal(t, "Stylish pants", fake.input["garment_des"])
	assert.Equal(t, 7, fake.input["seed"])
	assert.Equal(t, 30, fake.input["denoise_steps"])
}

func TestFashnCategory(t *testing.T) {
	assert.Equal(t, "tops", FashnCategory(models.CategoryUpperBody))
	assert.Equal(t, "bottoms", FashnCategory(models.CategoryLowerBody))
	assert.Equal(t, "one-pieces", FashnCategory(models.CategoryDresses))
	assert.Equal(t, "tops", FashnCategory(""))
}
