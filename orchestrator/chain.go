package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tryonapi/models"
)

// CandidateInput is what every candidate receives: the request and the
// prompt built for the running strategy.
type CandidateInput struct {
	Request models.TryOnRequest
	Prompt  string
}

// Candidate is one provider/model pair of a chain.
type Candidate struct {
	ProviderID string
	Model      string
	Invoke     func(ctx context.Context, in CandidateInput) (models.ImageReference, error)
}

func (c Candidate) Label() string {
	return c.ProviderID + "/" + c.Model
}

type chainState int

const (
	stateTrying chainState = iota
	stateSucceeded
	stateAborted
	stateCancelled
	stateExhausted
)

type chainRun struct {
	state    chainState
	image    models.ImageReference
	attempts []models.ProviderAttempt
	abortErr error
}

// runChain tries candidates strictly in order, each once. The trail always
// has one attempt per candidate; candidates never reached are skipped.
func (o *Orchestrator) runChain(ctx context.Context, requestID string, candidates []Candidate, input CandidateInput) *chainRun {
	run := &chainRun{state: stateTrying, attempts: make([]models.ProviderAttempt, 0, len(candidates))}
	next := 0
	for run.state == stateTrying {
		if next >= len(candidates) {
			run.state = stateExhausted
			break
		}
		if ctx.Err() != nil {
			run.state = stateCancelled
			break
		}

		candidate := candidates[next]
		next++
		image, attempt, err := o.attempt(ctx, requestID, candidate, input)
		run.attempts = append(run.attempts, attempt)

		switch {
		case err == nil:
			run.state = stateSucceeded
			run.image = image
		case errors.Is(err, models.ErrUnsupportedImageForm):
			run.state = stateAborted
			run.abortErr = err
		case ctx.Err() != nil:
			run.state = stateCancelled
		}
	}

	for _, candidate := range candidates[next:] {
		run.attempts = append(run.attempts, models.ProviderAttempt{
			ProviderID: candidate.ProviderID,
			Model:      candidate.Model,
			Outcome:    models.AttemptSkipped,
		})
	}
	if run.state == stateCancelled {
		fmt.Printf("[TryOn %s] Cancelled, skipped %d candidates\n", requestID, len(candidates)-next)
	}
	return run
}

// attempt invokes one candidate under its own deadline.
func (o *Orchestrator) attempt(ctx context.Context, requestID string, candidate Candidate, input CandidateInput) (models.ImageReference, models.ProviderAttempt, error) {
	callCtx, cancel := context.WithTimeout(ctx, o.opts.CallTimeout)
	defer cancel()

	start := time.Now()
	image, err := invoke(callCtx, candidate, input)
	latency := time.Since(start)

	if err == nil && image.IsEmpty() {
		err = models.NewProviderError(candidate.ProviderID, candidate.Model, models.ErrNoImageProduced)
	}
	if err != nil && ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		err = &models.ProviderError{
			ProviderID: candidate.ProviderID,
			Model:      candidate.Model,
			RawMessage: fmt.Sprintf("timed out after %s", o.opts.CallTimeout),
			Cause:      err,
		}
	}

	attempt := models.ProviderAttempt{
		ProviderID: candidate.ProviderID,
		Model:      candidate.Model,
		Outcome:    models.AttemptSucceeded,
		Latency:    latency,
		LatencyMs:  latency.Milliseconds(),
	}
	if err != nil {
		attempt.Outcome = models.AttemptFailed
		attempt.ErrorKind = models.KindOf(err)
		attempt.Error = err.Error()
		attempt.PermissionDenied = models.IsPermissionDenied(err)
		fmt.Printf("[TryOn %s] %s failed after %dms: %v\n", requestID, candidate.Label(), attempt.LatencyMs, err)
		return models.ImageReference{}, attempt, err
	}
	fmt.Printf("[TryOn %s] %s succeeded in %dms\n", requestID, candidate.Label(), attempt.LatencyMs)
	return image, attempt, nil
}

func invoke(ctx context.Context, candidate Candidate, input CandidateInput) (image models.ImageReference, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = models.NewProviderError(candidate.ProviderID, candidate.Model, fmt.Errorf("panic: %v", r))
		}
	}()
	if candidate.Invoke == nil {
		return models.ImageReference{}, models.NewProviderError(candidate.ProviderID, candidate.Model, errors.New("candidate has no invoker"))
	}
	return candidate.Invoke(ctx, input)
}

func (r *chainRun) failure(events []models.DiagnosticEvent) models.GenerationOutcome {
	switch r.state {
	case stateAborted:
		return models.FailureOutcome(models.KindUnsupportedImageForm,
			"The uploaded image could not be used. Please upload a JPEG, PNG or WebP photo.", r.attempts, events)
	case stateCancelled:
		return models.FailureOutcome(models.KindExhaustedFallback,
			"Generation was cancelled before an image was produced. Please try again.", r.attempts, events)
	}
	return models.FailureOutcome(models.KindExhaustedFallback, exhaustedMessage(r.attempts), r.attempts, events)
}

// exhaustedMessage names what was tried and what the user can do about it.
func exhaustedMessage(attempts []models.ProviderAttempt) string {
	var tried []string
	permissionDenied := false
	for _, attempt := range attempts {
		if attempt.Outcome == models.AttemptSkipped {
			continue
		}
		tried = append(tried, attempt.Label())
		permissionDenied = permissionDenied || attempt.PermissionDenied
	}
	if len(tried) == 0 {
		return "No image providers are configured. Please try again later."
	}
	action := "Please try again."
	if permissionDenied {
		action = "Please select a valid provider key."
	}
	return fmt.Sprintf("Image generation failed after trying %s. %s", strings.Join(tried, ", "), action)
}
