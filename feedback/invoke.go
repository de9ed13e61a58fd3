package feedback

import (
	"fmt"
	"time"

	"fitcheckapi/services"
)

type InvocationState int32

const (
	StatePending InvocationState = iota
	StateRetrying
	StateAccepted
	StateExhausted
)

func (s InvocationState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRetrying:
		return "retrying"
	case StateAccepted:
		return "accepted"
	case StateExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

const maxInvokeAttempts = 3

// NextState is the pure transition function of the retry machine. attempt is
// the number of attempts already made including the one that just finished.
func NextState(attempt int, lastErr error) InvocationState {
	if lastErr == nil {
		return StateAccepted
	}
	if attempt >= maxInvokeAttempts {
		return StateExhausted
	}
	return StateRetrying
}

// BackoffDelay returns the sleep before retry number attempt+1.
func BackoffDelay(attempt int) time.Duration {
	return time.Duration(1<<attempt) * time.Second
}

// InvokeResult carries the accepted feedback plus the raw model response so
// the caller can persist token usage and thoughts.
type InvokeResult struct {
	Feedback *OutfitFeedback
	Raw      *services.LLMResponse
	State    InvocationState
	Attempts int
	LastErr  error
}

// Invoker drives the model call loop. Sleep is injected so tests run the
// full machine without waiting out real backoff.
type Invoker struct {
	Stylist services.LLMStylistProvider
	Model   services.LLMModelName
	Sleep   func(d time.Duration)
}

func NewInvoker(stylist services.LLMStylistProvider, model services.LLMModelName) *Invoker {
	return &Invoker{
		Stylist: stylist,
		Model:   model,
		Sleep:   time.Sleep,
	}
}

// Run calls the model with a verbatim prompt up to three times, treating
// transport errors, unparseable text and shape violations identically.
// It terminates in StateAccepted or StateExhausted, the caller decides what
// exhaustion means (the pipeline substitutes the fallback payload).
func (inv *Invoker) Run(prompt string, imagePath string) *InvokeResult {
	state := StatePending
	var lastErr error

	for attempt := 0; attempt < maxInvokeAttempts; attempt++ {
		if attempt > 0 {
			delay := BackoffDelay(attempt - 1)
			fmt.Printf("Retrying outfit feedback call, attempt %d after %v\n", attempt+1, delay)
			inv.Sleep(delay)
		}

		raw, err := inv.Stylist.GenerateOutfitFeedback(prompt, imagePath, inv.Model)
		if err != nil {
			lastErr = err
			fmt.Printf("Feedback attempt %d failed: %v\n", attempt+1, err)
			state = NextState(attempt+1, lastErr)
			continue
		}

		parsed, err := ParseFeedback(raw.Response)
		if err != nil {
			lastErr = err
			fmt.Printf("Feedback attempt %d returned invalid payload: %v\n", attempt+1, err)
			state = NextState(attempt+1, lastErr)
			continue
		}

		state = NextState(attempt+1, nil)
		return &InvokeResult{
			Feedback: parsed,
			Raw:      raw,
			State:    state,
			Attempts: attempt + 1,
			LastErr:  nil,
		}
	}

	return &InvokeResult{
		Feedback: nil,
		Raw:      nil,
		State:    state,
		Attempts: maxInvokeAttempts,
		LastErr:  lastErr,
	}
}
