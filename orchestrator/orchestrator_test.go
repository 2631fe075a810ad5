package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"tryonapi/config"
	"tryonapi/models"
	"tryonapi/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	subject = models.NewInlineImage([]byte("subject"), "image/jpeg")
	garment = models.NewInlineImage([]byte("garment"), "image/jpeg")
	base    = models.NewInlineImage([]byte("base"), "image/png")
	result  = models.NewURIImage("https://replicate.delivery/swapped.png")
)

type fakeCandidate struct {
	calls  int
	inputs []CandidateInput
	invoke func(ctx context.Context, in CandidateInput) (models.ImageReference, error)
}

func (f *fakeCandidate) candidate(provider, model string) Candidate {
	return Candidate{
		ProviderID: provider,
		Model:      model,
		Invoke: func(ctx context.Context, in CandidateInput) (models.ImageReference, error) {
			f.calls++
			f.inputs = append(f.inputs, in)
			return f.invoke(ctx, in)
		},
	}
}

func succeeding(image models.ImageReference) *fakeCandidate {
	return &fakeCandidate{invoke: func(ctx context.Context, in CandidateInput) (models.ImageReference, error) {
		return image, nil
	}}
}

func failing(err error) *fakeCandidate {
	return &fakeCandidate{invoke: func(ctx context.Context, in CandidateInput) (models.ImageReference, error) {
		return models.ImageReference{}, err
	}}
}

type fakeSwapper struct {
	calls  int
	source models.ImageReference
	target models.ImageReference
	result models.ImageReference
	err    error
}

func (f *fakeSwapper) SwapFace(ctx context.Context, source, target models.ImageReference) (models.ImageReference, error) {
	f.calls++
	f.source = source
	f.target = target
	if f.err != nil {
		return models.ImageReference{}, f.err
	}
	if f.result.IsEmpty() {
		return target, nil
	}
	return f.result, nil
}

func request() models.TryOnRequest {
	return models.TryOnRequest{SubjectImage: subject, GarmentImage: garment}
}

func chainOrchestrator(candidates ...Candidate) *Orchestrator {
	return New(Options{Strategy: config.StrategyFallbackChain, Chain: candidates, CallTimeout: time.Second})
}

func TestChainFirstSuccessShortCircuits(t *testing.T) {
	first := failing(models.NewProviderError("gemini", "pro", errors.New("503 overloaded")))
	second := succeeding(base)
	third := succeeding(result)

	outcome := chainOrchestrator(
		first.candidate("gemini", "pro"),
		second.candidate("gemini", "flash"),
		third.candidate("replicate", "fashn"),
	).GenerateTryOn(context.Background(), request())

	require.True(t, outcome.Success)
	assert.True(t, base.Equal(*outcome.Image))
	assert.Equal(t, 0, third.calls)
	require.Len(t, outcome.Attempts, 3)
	assert.Equal(t, models.AttemptFailed, outcome.Attempts[0].Outcome)
	assert.Equal(t, models.KindProviderError, outcome.Attempts[0].ErrorKind)
	assert.Equal(t, models.AttemptSucceeded, outcome.Attempts[1].Outcome)
	assert.Equal(t, models.AttemptSkipped, outcome.Attempts[2].Outcome)
}

func TestChainExhausted(t *testing.T) {
	first := failing(errors.New("quota exceeded"))
	second := failing(models.NewProviderError("gemini", "flash", models.ErrNoImageProduced))

	outcome := chainOrchestrator(
		first.candidate("gemini", "gemini-3-pro-image-preview"),
		second.candidate("gemini", "gemini-2.5-flash-image"),
	).GenerateTryOn(context.Background(), request())

	assert.False(t, outcome.Success)
	assert.Nil(t, outcome.Image)
	assert.Equal(t, models.KindExhaustedFallback, outcome.Kind)
	assert.Len(t, outcome.Attempts, 2)
	assert.Equal(t, models.KindNoImageProduced, outcome.Attempts[1].ErrorKind)
	assert.Equal(t, "Image generation failed after trying gemini/gemini-3-pro-image-preview, gemini/gemini-2.5-flash-image. Please try again.", outcome.Message)
}

func TestChainPermissionDeniedContinuesAndIsActionable(t *testing.T) {
	denied := &models.ProviderError{ProviderID: "gemini", Model: "pro", RawMessage: "403 PERMISSION_DENIED", PermissionDenied: true}
	first := failing(denied)
	second := failing(errors.New("boom"))

	outcome := chainOrchestrator(first.candidate("gemini", "pro"), second.candidate("gemini", "flash")).
		GenerateTryOn(context.Background(), request())

	assert.Equal(t, 1, second.calls)
	assert.Equal(t, models.KindExhaustedFallback, outcome.Kind)
	assert.True(t, outcome.Attempts[0].PermissionDenied)
	assert.Contains(t, outcome.Message, "select a valid provider key")
}

func TestChainUnsupportedImageFormAborts(t *testing.T) {
	first := failing(models.ErrUnsupportedImageForm)
	second := succeeding(base)

	outcome := chainOrchestrator(first.candidate("gemini", "pro"), second.candidate("gemini", "flash")).
		GenerateTryOn(context.Background(), request())

	assert.Equal(t, models.KindUnsupportedImageForm, outcome.Kind)
	assert.Equal(t, 0, second.calls)
	require.Len(t, outcome.Attempts, 2)
	assert.Equal(t, models.AttemptSkipped, outcome.Attempts[1].Outcome)
}

func TestChainCallTimeoutAdvances(t *testing.T) {
	hung := &fakeCandidate{invoke: func(ctx context.Context, in CandidateInput) (models.ImageReference, error) {
		<-ctx.Done()
		return models.ImageReference{}, ctx.Err()
	}}
	second := succeeding(base)
	orchestrator := New(Options{
		Strategy:    config.StrategyFallbackChain,
		Chain:       []Candidate{hung.candidate("gemini", "pro"), second.candidate("gemini", "flash")},
		CallTimeout: 20 * time.Millisecond,
	})

	outcome := orchestrator.GenerateTryOn(context.Background(), request())

	require.True(t, outcome.Success)
	assert.Contains(t, outcome.Attempts[0].Error, "timed out after 20ms")
	assert.Equal(t, models.KindProviderError, outcome.Attempts[0].ErrorKind)
}

func TestChainParentCancellationSkipsRest(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	first := &fakeCandidate{invoke: func(callCtx context.Context, in CandidateInput) (models.ImageReference, error) {
		cancel()
		return models.ImageReference{}, callCtx.Err()
	}}
	second := succeeding(base)
	third := succeeding(base)

	outcome := chainOrchestrator(first.candidate("gemini", "a"), second.candidate("gemini", "b"), third.candidate("gemini", "c")).
		GenerateTryOn(ctx, request())

	assert.False(t, outcome.Success)
	assert.Equal(t, models.KindExhaustedFallback, outcome.Kind)
	assert.Equal(t, 0, second.calls+third.calls)
	require.Len(t, outcome.Attempts, 3)
	assert.Equal(t, models.AttemptFailed, outcome.Attempts[0].Outcome)
	assert.Equal(t, models.AttemptSkipped, outcome.Attempts[1].Outcome)
	assert.Equal(t, models.AttemptSkipped, outcome.Attempts[2].Outcome)
	assert.Contains(t, outcome.Message, "cancelled")
}

func TestChainPanicAndEmptyImageAreFailures(t *testing.T) {
	panicking := &fakeCandidate{invoke: func(ctx context.Context, in CandidateInput) (models.ImageReference, error) {
		panic("nil map")
	}}
	empty := succeeding(models.ImageReference{})
	last := succeeding(base)

	outcome := chainOrchestrator(panicking.candidate("gemini", "a"), empty.candidate("gemini", "b"), last.candidate("gemini", "c")).
		GenerateTryOn(context.Background(), request())

	require.True(t, outcome.Success)
	assert.True(t, base.Equal(*outcome.Image))
	require.Len(t, outcome.Attempts, 3)
	assert.Equal(t, "gemini/a", outcome.Attempts[0].Label())
	assert.Equal(t, "gemini/b", outcome.Attempts[1].Label())
	assert.Equal(t, "gemini/c", outcome.Attempts[2].Label())
	assert.Contains(t, outcome.Attempts[0].Error, "panic: nil map")
	assert.Equal(t, models.AttemptFailed, outcome.Attempts[0].Outcome)
	assert.Equal(t, models.KindNoImageProduced, outcome.Attempts[1].ErrorKind)
	assert.Equal(t, models.AttemptFailed, outcome.Attempts[1].Outcome)
	assert.Equal(t, models.AttemptSucceeded, outcome.Attempts[2].Outcome)
	assert.Equal(t, 1, last.calls)
}

func TestChainEmpty(t *testing.T) {
	outcome := chainOrchestrator().GenerateTryOn(context.Background(), request())
	assert.Equal(t, models.KindExhaustedFallback, outcome.Kind)
	assert.NotEmpty(t, outcome.Message)
}

func TestChainPromptFollowsMode(t *testing.T) {
	candidate := succeeding(base)
	orchestrator := chainOrchestrator(candidate.candidate("gemini", "pro"))
	feedback := "make the sleeves longer"

	part := request()
	orchestrator.GenerateTryOn(context.Background(), part)
	full := request()
	full.Mode = models.ModeFullFit
	full.SubjectGender = models.GenderMale
	full.PriorFeedback = &feedback
	orchestrator.GenerateTryOn(context.Background(), full)

	require.Len(t, candidate.inputs, 2)
	assert.Equal(t, services.BuildPrompt(models.ModePart, models.GenderFemale, nil), candidate.inputs[0].Prompt)
	assert.Equal(t, services.BuildPrompt(models.ModeFullFit, models.GenderMale, &feedback), candidate.inputs[1].Prompt)
	assert.True(t, subject.Equal(candidate.inputs[1].Request.SubjectImage))
}

func TestInvalidRequestMakesNoCalls(t *testing.T) {
	candidate := succeeding(base)
	outcome := chainOrchestrator(candidate.candidate("gemini", "pro")).
		GenerateTryOn(context.Background(), models.TryOnRequest{GarmentImage: garment})

	assert.Equal(t, models.KindUnsupportedImageForm, outcome.Kind)
	assert.Equal(t, 0, candidate.calls)
	assert.NotNil(t, outcome.Attempts)

	half := request()
	half.Mode = "HALF"
	outcome = chainOrchestrator(candidate.candidate("gemini", "pro")).GenerateTryOn(context.Background(), half)

	assert.False(t, outcome.Success)
	assert.Equal(t, models.KindInvalidRequest, outcome.Kind)
	assert.Contains(t, outcome.Message, `unknown mode "HALF"`)
	assert.Contains(t, outcome.Message, "PART or FULL_FIT")
	assert.Equal(t, 0, candidate.calls)
	assert.Empty(t, outcome.Attempts)
}

func twoStepOrchestrator(baseCandidate *fakeCandidate, swapper FaceSwapper) *Orchestrator {
	opts := Options{
		Strategy:    config.StrategyTwoStep,
		Base:        []Candidate{baseCandidate.candidate("gemini", "flash-exp")},
		CallTimeout: time.Second,
	}
	if swapper != nil {
		opts.FaceSwapper = swapper
		opts.FaceSwapProvider = "replicate"
		opts.FaceSwapModel = "roop"
	}
	return New(opts)
}

func TestTwoStepWithoutSwapperReturnsBase(t *testing.T) {
	baseCandidate := succeeding(base)

	outcome := twoStepOrchestrator(baseCandidate, nil).GenerateTryOn(context.Background(), request())

	require.True(t, outcome.Success)
	assert.True(t, base.Equal(*outcome.Image))
	require.Len(t, outcome.Events, 1)
	assert.Equal(t, models.EventFaceSwapSkipped, outcome.Events[0].Kind)
	assert.Len(t, outcome.Attempts, 1)
	assert.True(t, outcome.Degraded())
	assert.Equal(t, services.BuildBasePrompt(models.ModePart, models.GenderFemale, nil), baseCandidate.inputs[0].Prompt)
}

func TestTwoStepSwapsFace(t *testing.T) {
	swapper := &fakeSwapper{result: result}

	outcome := twoStepOrchestrator(succeeding(base), swapper).GenerateTryOn(context.Background(), request())

	require.True(t, outcome.Success)
	assert.True(t, result.Equal(*outcome.Image))
	assert.Empty(t, outcome.Events)
	assert.True(t, subject.Equal(swapper.source))
	assert.True(t, base.Equal(swapper.target))
	require.Len(t, outcome.Attempts, 2)
	assert.Equal(t, "replicate/roop", outcome.Attempts[1].Label())
	assert.False(t, outcome.Degraded())
}

func TestTwoStepSwapFailureDegradesToBase(t *testing.T) {
	swapper := &fakeSwapper{err: errors.New("replicate 500")}

	outcome := twoStepOrchestrator(succeeding(base), swapper).GenerateTryOn(context.Background(), request())

	require.True(t, outcome.Success)
	assert.True(t, base.Equal(*outcome.Image))
	require.Len(t, outcome.Events, 1)
	assert.Equal(t, models.EventFaceSwapDegraded, outcome.Events[0].Kind)
	assert.Contains(t, outcome.Events[0].Message, "replicate 500")
	assert.Equal(t, models.AttemptFailed, outcome.Attempts[1].Outcome)
	assert.True(t, outcome.Degraded())
}

func TestTwoStepSwapPassthrough(t *testing.T) {
	swapper := &fakeSwapper{}

	outcome := twoStepOrchestrator(succeeding(base), swapper).GenerateTryOn(context.Background(), request())

	require.True(t, outcome.Success)
	assert.True(t, base.Equal(*outcome.Image))
	require.Len(t, outcome.Events, 1)
	assert.Equal(t, models.EventFaceSwapPassthrough, outcome.Events[0].Kind)
}

func TestTwoStepBaseFailureSkipsSwap(t *testing.T) {
	swapper := &fakeSwapper{result: result}

	outcome := twoStepOrchestrator(failing(errors.New("no")), swapper).GenerateTryOn(context.Background(), request())

	assert.False(t, outcome.Success)
	assert.Equal(t, models.KindExhaustedFallback, outcome.Kind)
	assert.Equal(t, 0, swapper.calls)
}

func TestDefaultStrategyIsTwoStep(t *testing.T) {
	assert.Equal(t, config.StrategyTwoStep, New(Options{}).Strategy())
}
