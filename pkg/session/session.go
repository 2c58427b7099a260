// Package session models the client-side recording controller as an
// explicit state machine, so interview sessions can be driven headlessly
// from a CLI or tests. The controller consumes PCM frames, detects voice
// activity by RMS threshold, finalizes clips on silence or a hard duration
// cap, and hands them to a submit callback (normally the pipeline call).
//
// The controller mirrors the browser event-loop model: ProcessFrame is the
// tick, and submission runs synchronously inside it. Callers feed frames
// from a single goroutine.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/intervox-ai/intervox/pkg/audio"
	"github.com/intervox-ai/intervox/pkg/pipeline"
	"github.com/intervox-ai/intervox/pkg/ratelimit"
	"github.com/intervox-ai/intervox/pkg/retry"
)

// State is the controller's single source of truth. Exactly one state is
// active at a time; there are no independent boolean flags to fall out of
// sync.
type State int

const (
	// Idle: microphone released, nothing scheduled.
	Idle State = iota
	// Listening: sampling frames, waiting for speech.
	Listening
	// Recording: accumulating frames of an utterance.
	Recording
	// Processing: clip submitted, awaiting the pipeline result.
	Processing
	// Speaking: assistant reply "playing back" for its estimated duration.
	Speaking
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Listening:
		return "listening"
	case Recording:
		return "recording"
	case Processing:
		return "processing"
	case Speaking:
		return "speaking"
	default:
		return "unknown"
	}
}

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SubmitFunc sends a finalized WAV clip through the pipeline.
type SubmitFunc func(ctx context.Context, clip []byte) (*pipeline.Response, error)

// Config tunes the controller.
type Config struct {
	// VADThreshold is the RMS level treated as speech. Default 0.01.
	VADThreshold float64

	// SilenceTimeout ends a recording after this much continuous quiet.
	// Default 2s.
	SilenceTimeout time.Duration

	// MaxRecordingDuration is the hard cap on one utterance. Default 30s.
	MaxRecordingDuration time.Duration

	// SampleRate of incoming frames, used for the WAV wrapper. Default 16000.
	SampleRate int

	// Submit is called with each finalized clip. Required.
	Submit SubmitFunc

	// Policy governs resubmission after failures. Rate-limited responses
	// additionally honor the server-supplied RetryAfter before backoff.
	// The zero value disables auto-retry.
	Policy retry.Policy

	// Limiter is drained by Reset when ResetClearsRateLimit is set.
	Limiter *ratelimit.Limiter

	// ResetClearsRateLimit makes Reset also clear the limiter window.
	ResetClearsRateLimit bool

	// Clock defaults to the system clock.
	Clock Clock

	// OnResult receives each applied (non-stale) pipeline response.
	// Called with the controller locked; must not call back into it.
	OnResult func(*pipeline.Response)

	// OnStateChange observes transitions.
	// Called with the controller locked; must not call back into it.
	OnStateChange func(from, to State)

	Logger *slog.Logger
}

// Defaults.
const (
	DefaultVADThreshold         = 0.01
	DefaultSilenceTimeout       = 2 * time.Second
	DefaultMaxRecordingDuration = 30 * time.Second
	DefaultSampleRate           = 16000
)

// Controller is the recording/VAD state machine.
type Controller struct {
	mu  sync.Mutex
	cfg Config

	state       State
	frames      []float32
	recordStart time.Time
	lastVoice   time.Time
	speakUntil  time.Time
	pushToTalk  bool

	// generation tags submissions; Reset bumps it so results from before
	// the reset are discarded instead of mutating fresh state.
	generation uint64

	logger *slog.Logger
}

// New creates a controller in the Idle state.
func New(cfg Config) *Controller {
	if cfg.VADThreshold == 0 {
		cfg.VADThreshold = DefaultVADThreshold
	}
	if cfg.SilenceTimeout == 0 {
		cfg.SilenceTimeout = DefaultSilenceTimeout
	}
	if cfg.MaxRecordingDuration == 0 {
		cfg.MaxRecordingDuration = DefaultMaxRecordingDuration
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = DefaultSampleRate
	}
	if cfg.Clock == nil {
		cfg.Clock = systemClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Controller{
		cfg:    cfg,
		state:  Idle,
		logger: cfg.Logger.With("component", "session"),
	}
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start begins listening. Only valid from Idle; other states are a no-op.
func (c *Controller) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Idle {
		return
	}
	c.setState(Listening)
}

// Stop releases everything and returns to Idle from any state. Buffers
// and timers are cleared; an in-flight submission resolves independently
// and its result is dropped as stale.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.frames = nil
	c.pushToTalk = false
	c.setState(Idle)
}

// Reset drops conversation-related controller state without stopping the
// session: pending results become stale and, when configured, the rate
// limiter window is cleared. The controller returns to Listening unless idle.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.frames = nil
	c.pushToTalk = false
	if c.cfg.ResetClearsRateLimit && c.cfg.Limiter != nil {
		c.cfg.Limiter.Reset()
	}
	if c.state != Idle {
		c.setState(Listening)
	}
}

// ProcessFrame feeds one PCM frame through the state machine. It drives
// every time-based transition, including the end of the Speaking window.
func (c *Controller) ProcessFrame(ctx context.Context, frame []float32) {
	c.mu.Lock()

	now := c.cfg.Clock.Now()
	rms := audio.RMS(frame)

	switch c.state {
	case Speaking:
		if !now.Before(c.speakUntil) {
			c.setState(Listening)
		}
		c.mu.Unlock()
		return

	case Listening:
		if rms >= c.cfg.VADThreshold {
			c.frames = append(c.frames[:0], frame...)
			c.recordStart = now
			c.lastVoice = now
			c.setState(Recording)
		}
		c.mu.Unlock()
		return

	case Recording:
		c.frames = append(c.frames, frame...)
		if rms >= c.cfg.VADThreshold {
			c.lastVoice = now
		}

		silence := now.Sub(c.lastVoice)
		length := now.Sub(c.recordStart)
		if (!c.pushToTalk && silence >= c.cfg.SilenceTimeout) || length >= c.cfg.MaxRecordingDuration {
			c.finalizeLocked(ctx)
			return // finalizeLocked released the lock
		}
		c.mu.Unlock()
		return

	default:
		c.mu.Unlock()
		return
	}
}

// PressTalk starts a push-to-talk recording, bypassing VAD. Gated on not
// Processing or Speaking.
func (c *Controller) PressTalk() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Listening {
		return
	}
	now := c.cfg.Clock.Now()
	c.frames = c.frames[:0]
	c.recordStart = now
	c.lastVoice = now
	c.pushToTalk = true
	c.setState(Recording)
}

// ReleaseTalk ends a push-to-talk recording and submits the clip.
func (c *Controller) ReleaseTalk(ctx context.Context) {
	c.mu.Lock()
	if c.state != Recording || !c.pushToTalk {
		c.mu.Unlock()
		return
	}
	c.finalizeLocked(ctx)
}

// finalizeLocked converts the accumulated frames into one WAV clip and
// submits it. Called with mu held; releases mu before invoking Submit so
// callbacks may reenter the controller (e.g. Reset).
func (c *Controller) finalizeLocked(ctx context.Context) {
	frames := c.frames
	c.frames = nil
	c.pushToTalk = false
	gen := c.generation
	c.setState(Processing)
	c.mu.Unlock()

	clip := audio.EncodePCM16WAV(audio.Float32ToPCM16(frames), c.cfg.SampleRate, 1)
	resp, err := c.submitWithRetry(ctx, clip)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.generation != gen {
		c.logger.Debug("dropping stale pipeline result", "generation", gen)
		return
	}
	if c.state != Processing {
		return
	}

	if err != nil || resp == nil {
		c.logger.Warn("submission failed", "error", err)
		c.setState(Listening)
		return
	}

	if c.cfg.OnResult != nil {
		c.cfg.OnResult(resp)
	}

	if !resp.Success {
		c.setState(Listening)
		return
	}

	c.speakUntil = c.cfg.Clock.Now().Add(replyDuration(resp))
	c.setState(Speaking)
}

// submitWithRetry runs the submit callback under the retry policy.
// Resubmissions back off exponentially, bounded by the policy's MaxDelay
// and attempt count; a rate-limited response additionally waits at least
// the server-supplied RetryAfter. Errors the policy classifies as fatal
// are not resubmitted.
func (c *Controller) submitWithRetry(ctx context.Context, clip []byte) (*pipeline.Response, error) {
	if c.cfg.Submit == nil {
		return nil, nil
	}

	policy := c.cfg.Policy
	if policy.MaxAttempts <= 1 {
		return c.cfg.Submit(ctx, clip)
	}

	sleep := policy.Sleep
	if sleep == nil {
		sleep = func(ctx context.Context, d time.Duration) error {
			if d <= 0 {
				return ctx.Err()
			}
			t := time.NewTimer(d)
			defer t.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-t.C:
				return nil
			}
		}
	}

	var resp *pipeline.Response
	var err error
	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		if attempt > 0 {
			// RateLimited is the policy's exponential shape
			// (base * 2^attempt), used for every resubmission.
			delay := policy.Delay(retry.RateLimited, attempt)
			if resp != nil && resp.Code == pipeline.CodeRateLimited {
				if server := time.Duration(resp.RetryAfter * float64(time.Second)); server > delay {
					delay = server
				}
				if policy.MaxDelay > 0 && delay > policy.MaxDelay {
					delay = policy.MaxDelay
				}
			}
			c.logger.Info("resubmitting clip", "attempt", attempt+1, "delay", delay)
			if serr := sleep(ctx, delay); serr != nil {
				return resp, serr
			}
		}

		resp, err = c.cfg.Submit(ctx, clip)
		if err != nil {
			if policy.Classify != nil && policy.Classify(err) == retry.Fatal {
				return resp, err
			}
			continue
		}
		if resp != nil && resp.Code == pipeline.CodeRateLimited {
			continue
		}
		return resp, nil
	}
	return resp, err
}

// replyDuration derives the Speaking window from the response metadata,
// falling back to an estimate from the reply text.
func replyDuration(resp *pipeline.Response) time.Duration {
	if resp.Metadata != nil {
		if v, ok := resp.Metadata["durationSeconds"]; ok {
			switch d := v.(type) {
			case int:
				return time.Duration(d) * time.Second
			case float64:
				return time.Duration(d * float64(time.Second))
			}
		}
	}
	return time.Duration(pipeline.EstimateSpokenSeconds(resp.Response)) * time.Second
}

// setState transitions and notifies. Caller must hold mu.
func (c *Controller) setState(next State) {
	if c.state == next {
		return
	}
	prev := c.state
	c.state = next
	c.logger.Debug("state change", "from", prev.String(), "to", next.String())
	if c.cfg.OnStateChange != nil {
		c.cfg.OnStateChange(prev, next)
	}
}
