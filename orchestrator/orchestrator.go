package orchestrator

import (
	"context"
	"fmt"
	"time"

	"tryonapi/config"
	"tryonapi/models"
	"tryonapi/services"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
)

const (
	defaultCallTimeout      = 90 * time.Second
	defaultFaceSwapProvider = "face_swap"
)

type FaceSwapper interface {
	SwapFace(ctx context.Context, source, target models.ImageReference) (models.ImageReference, error)
}

// Generator is what the HTTP, worker and telegram layers depend on.
type Generator interface {
	GenerateTryOn(ctx context.Context, req models.TryOnRequest) models.GenerationOutcome
}

type Options struct {
	Strategy string
	// Base candidates produce the step one image of the two-step strategy.
	Base []Candidate
	// Chain candidates are tried in order by the fallback-chain strategy.
	Chain []Candidate

	FaceSwapper      FaceSwapper
	FaceSwapProvider string
	FaceSwapModel    string

	CallTimeout time.Duration
}

type Orchestrator struct {
	opts Options
}

func New(opts Options) *Orchestrator {
	if opts.Strategy == "" {
		opts.Strategy = config.StrategyTwoStep
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = defaultCallTimeout
	}
	if opts.FaceSwapProvider == "" {
		opts.FaceSwapProvider = defaultFaceSwapProvider
	}
	return &Orchestrator{opts: opts}
}

func (o *Orchestrator) Strategy() string {
	return o.opts.Strategy
}

// GenerateTryOn runs the configured strategy once. It always returns an
// outcome, never an error.
func (o *Orchestrator) GenerateTryOn(ctx context.Context, req models.TryOnRequest) models.GenerationOutcome {
	req = req.WithDefaults()
	requestID := uuid.NewString()
	if err := req.Validate(); err != nil {
		fmt.Printf("[TryOn %s] Invalid request: %v\n", requestID, err)
		return models.FailureOutcome(models.KindOf(err), err.Error(), []models.ProviderAttempt{}, nil)
	}

	fmt.Printf("[TryOn %s] Starting %s generation, mode %s, gender %s\n", requestID, o.opts.Strategy, req.Mode, req.SubjectGender)
	start := time.Now()
	var outcome models.GenerationOutcome
	if o.opts.Strategy == config.StrategyFallbackChain {
		outcome = o.fallbackChain(ctx, requestID, req)
	} else {
		outcome = o.twoStep(ctx, requestID, req)
	}
	fmt.Printf("[TryOn %s] Finished in %s, success %v, %d attempts\n", requestID, time.Since(start).Round(time.Millisecond), outcome.Success, len(outcome.Attempts))
	return outcome
}

func (o *Orchestrator) fallbackChain(ctx context.Context, requestID string, req models.TryOnRequest) models.GenerationOutcome {
	input := CandidateInput{
		Request: req,
		Prompt:  services.BuildPrompt(req.Mode, req.SubjectGender, req.PriorFeedback),
	}
	run := o.runChain(ctx, requestID, o.opts.Chain, input)
	if run.state != stateSucceeded {
		return run.failure(nil)
	}
	return models.SuccessOutcome(run.image, run.attempts, nil)
}

// twoStep generates a base image and then swaps the subject's face onto it.
// Face swap problems degrade to the base image instead of failing.
func (o *Orchestrator) twoStep(ctx context.Context, requestID string, req models.TryOnRequest) models.GenerationOutcome {
	input := CandidateInput{
		Request: req,
		Prompt:  services.BuildBasePrompt(req.Mode, req.SubjectGender, req.PriorFeedback),
	}
	run := o.runChain(ctx, requestID, o.opts.Base, input)
	if run.state != stateSucceeded {
		return run.failure(nil)
	}
	base := run.image
	attempts := run.attempts
	var events []models.DiagnosticEvent

	if o.opts.FaceSwapper == nil {
		events = o.recordEvent(requestID, events, models.EventFaceSwapSkipped, "", "",
			"face swap is not configured, returning the base image")
		return models.SuccessOutcome(base, attempts, events)
	}

	swapper := o.opts.FaceSwapper
	faceSwap := Candidate{
		ProviderID: o.opts.FaceSwapProvider,
		Model:      o.opts.FaceSwapModel,
		Invoke: func(ctx context.Context, in CandidateInput) (models.ImageReference, error) {
			return swapper.SwapFace(ctx, in.Request.SubjectImage, base)
		},
	}
	swapped, attempt, err := o.attempt(ctx, requestID, faceSwap, input)
	attempts = append(attempts, attempt)
	if err != nil {
		events = o.recordEvent(requestID, events, models.EventFaceSwapDegraded, faceSwap.ProviderID, faceSwap.Model,
			fmt.Sprintf("face swap failed, returning the base image: %v", err))
		return models.SuccessOutcome(base, attempts, events)
	}
	if swapped.Equal(base) {
		events = o.recordEvent(requestID, events, models.EventFaceSwapPassthrough, faceSwap.ProviderID, faceSwap.Model,
			"face swap returned the base image unchanged")
		return models.SuccessOutcome(base, attempts, events)
	}
	return models.SuccessOutcome(swapped, attempts, events)
}

func (o *Orchestrator) recordEvent(requestID string, events []models.DiagnosticEvent, kind models.EventKind, provider, model, message string) []models.DiagnosticEvent {
	fmt.Printf("[TryOn %s] %s: %s\n", requestID, kind, message)
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("request_id", requestID)
		scope.SetTag("event", string(kind))
		if provider != "" {
			scope.SetTag("provider", provider)
		}
		if model != "" {
			scope.SetTag("model", model)
		}
		scope.SetLevel(sentry.LevelWarning)
		sentry.CaptureMessage(fmt.Sprintf("[TryOn %s] %s: %s", requestID, kind, message))
	})
	return append(events, models.DiagnosticEvent{Kind: kind, Message: message})
}
