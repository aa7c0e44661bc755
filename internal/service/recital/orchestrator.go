package recital

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/zhouzirui/tilawa/backend/internal/analysis/turn"
	"github.com/zhouzirui/tilawa/backend/internal/metrics"
	recitalmodel "github.com/zhouzirui/tilawa/backend/internal/model/recital"
	"github.com/zhouzirui/tilawa/backend/internal/service/ai"
	"github.com/zhouzirui/tilawa/backend/internal/service/session"
	"github.com/zhouzirui/tilawa/backend/internal/service/speech"
)

// Classifier picks the response mode for a transcript.
type Classifier interface {
	Classify(transcript string, s recitalmodel.Session) turn.Intent
}

// Deps are the collaborators an Orchestrator drives.
type Deps struct {
	Store       session.Store
	Catalog     recitalmodel.Catalog
	Classifier  Classifier
	Generator   ai.Generator
	Synthesizer speech.Synthesizer
	Logger      *zap.SugaredLogger
	Metrics     *metrics.Metrics
}

// Options tune turn handling.
type Options struct {
	DefaultLanguage   string
	GenerationTimeout time.Duration
	SynthesisTimeout  time.Duration
}

// Orchestrator runs turns: record the transcript, classify it, generate a
// reply and attach synthesized speech when available.
type Orchestrator struct {
	store      session.Store
	catalog    recitalmodel.Catalog
	classifier Classifier
	generator  ai.Generator
	synth      speech.Synthesizer
	logger     *zap.SugaredLogger
	metrics    *metrics.Metrics

	defaultLanguage string
	genTimeout      time.Duration
	synthTimeout    time.Duration
}

// NewOrchestrator wires an orchestrator. Missing optional collaborators get defaults.
func NewOrchestrator(d Deps, opts Options) *Orchestrator {
	if d.Catalog == nil {
		d.Catalog = recitalmodel.NewMemoryCatalog(recitalmodel.Seed())
	}
	if d.Classifier == nil {
		d.Classifier = turn.NewClassifier(nil)
	}
	if d.Synthesizer == nil {
		d.Synthesizer = speech.NopSynthesizer{}
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop().Sugar()
	}
	if opts.DefaultLanguage == "" {
		opts.DefaultLanguage = recitalmodel.DefaultLanguage
	}

	return &Orchestrator{
		store:           d.Store,
		catalog:         d.Catalog,
		classifier:      d.Classifier,
		generator:       d.Generator,
		synth:           d.Synthesizer,
		logger:          d.Logger,
		metrics:         d.Metrics,
		defaultLanguage: opts.DefaultLanguage,
		genTimeout:      opts.GenerationTimeout,
		synthTimeout:    opts.SynthesisTimeout,
	}
}

// StartResult is returned by StartSession.
type StartResult struct {
	SessionID string                     `json:"sessionId"`
	Greeting  recitalmodel.ReplyEnvelope `json:"greeting"`
}

// StartSession creates a session and returns its spoken greeting. An empty
// language selects the default one.
func (o *Orchestrator) StartSession(ctx context.Context, topic, language string) (StartResult, error) {
	if strings.TrimSpace(language) == "" {
		language = o.defaultLanguage
	}
	lang, ok := o.catalog.Find(language)
	if !ok {
		return StartResult{}, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, language)
	}

	id := o.store.Create(strings.TrimSpace(topic), lang.Code)
	o.metrics.SessionCreated()
	o.metrics.SetActiveSessions(o.store.Len())
	o.logger.Infow("session started", "sessionId", id, "language", lang.Code)

	env := recitalmodel.ReplyEnvelope{Intent: recitalmodel.IntentAcknowledgment, Text: lang.Greeting}
	o.attachAudio(context.WithoutCancel(ctx), id, &env, lang)

	return StartResult{SessionID: id, Greeting: env}, nil
}

// SubmitTranscript runs one full turn. Once the transcript is recorded the
// turn runs to completion even if ctx is cancelled.
func (o *Orchestrator) SubmitTranscript(ctx context.Context, sessionID, text string, source recitalmodel.Source) (recitalmodel.ReplyEnvelope, error) {
	ctx = context.WithoutCancel(ctx)
	start := time.Now()
	if source == "" {
		source = recitalmodel.SourceSpeech
	}

	sess, ok := o.store.Get(sessionID)
	if !ok {
		return recitalmodel.ReplyEnvelope{}, ErrSessionNotFound
	}
	lang := o.language(sess.Language)

	if strings.TrimSpace(text) == "" {
		env := o.clarification(ctx, sessionID, lang)
		o.metrics.ObserveTurn(string(env.Intent), string(source), time.Since(start))
		return env, nil
	}

	// Received
	if !o.store.Update(sessionID, session.Patch{LastTranscript: &text, AppendHistory: []string{text}}) {
		return recitalmodel.ReplyEnvelope{}, ErrSessionNotFound
	}
	if sess, ok = o.store.Get(sessionID); !ok {
		return recitalmodel.ReplyEnvelope{}, ErrSessionNotFound
	}

	// Classified
	verdict := o.classifier.Classify(text, sess)
	var (
		prompt ai.Prompt
		intent recitalmodel.Intent
	)
	switch verdict {
	case turn.FeedbackRequest:
		prompt, intent = feedbackPrompt(sess, lang), recitalmodel.IntentFeedback
	case turn.AssistanceNeeded:
		prompt, intent = continuationPrompt(text, sess, lang), recitalmodel.IntentContinuation
	default:
		prompt, intent = normalPrompt(text, sess, lang), recitalmodel.IntentAcknowledgment
		if source == recitalmodel.SourceText {
			intent = recitalmodel.IntentResponse
		}
	}
	o.logger.Debugw("turn classified", "sessionId", sessionID, "verdict", verdict, "source", source)

	// Generating
	reply, err := o.generate(ctx, sessionID, prompt)
	if err != nil {
		return recitalmodel.ReplyEnvelope{}, err
	}

	// Synthesizing
	env := recitalmodel.ReplyEnvelope{Intent: intent, Text: reply, SourceTranscript: text}
	o.attachAudio(ctx, sessionID, &env, lang)

	o.metrics.ObserveTurn(string(intent), string(source), time.Since(start))
	return env, nil
}

// RequestFeedback produces feedback on the recitation so far without
// recording a new turn.
func (o *Orchestrator) RequestFeedback(ctx context.Context, sessionID string) (recitalmodel.ReplyEnvelope, error) {
	ctx = context.WithoutCancel(ctx)
	start := time.Now()

	sess, ok := o.store.Get(sessionID)
	if !ok {
		return recitalmodel.ReplyEnvelope{}, ErrSessionNotFound
	}
	lang := o.language(sess.Language)

	if strings.TrimSpace(sess.LastTranscript) == "" && len(sess.History) == 0 {
		return o.clarification(ctx, sessionID, lang), nil
	}

	reply, err := o.generate(ctx, sessionID, feedbackPrompt(sess, lang))
	if err != nil {
		return recitalmodel.ReplyEnvelope{}, err
	}

	env := recitalmodel.ReplyEnvelope{
		Intent:           recitalmodel.IntentFeedback,
		Text:             reply,
		SourceTranscript: sess.LastTranscript,
	}
	o.attachAudio(ctx, sessionID, &env, lang)

	o.metrics.ObserveTurn(string(env.Intent), "request", time.Since(start))
	return env, nil
}

// Rejoin confirms the session still exists and, when transportRef is set,
// binds it as the session's live connection.
func (o *Orchestrator) Rejoin(_ context.Context, sessionID, transportRef string) error {
	if transportRef == "" {
		if _, ok := o.store.Get(sessionID); !ok {
			return ErrSessionNotFound
		}
		return nil
	}
	if !o.store.Update(sessionID, session.Patch{TransportRef: &transportRef}) {
		return ErrSessionNotFound
	}
	o.logger.Debugw("session rejoined", "sessionId", sessionID, "transport", transportRef)
	return nil
}

// language resolves a session's language, falling back to the default.
func (o *Orchestrator) language(code string) recitalmodel.Language {
	if lang, ok := o.catalog.Find(code); ok {
		return lang
	}
	if lang, ok := o.catalog.Find(o.defaultLanguage); ok {
		return lang
	}
	lang, _ := o.catalog.Find(recitalmodel.DefaultLanguage)
	return lang
}

func (o *Orchestrator) clarification(ctx context.Context, sessionID string, lang recitalmodel.Language) recitalmodel.ReplyEnvelope {
	env := recitalmodel.ReplyEnvelope{Intent: recitalmodel.IntentClarification, Text: lang.Clarification}
	o.attachAudio(ctx, sessionID, &env, lang)
	return env
}

func (o *Orchestrator) generate(ctx context.Context, sessionID string, p ai.Prompt) (string, error) {
	if o.genTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.genTimeout)
		defer cancel()
	}

	reply, err := o.generator.Generate(ctx, p)
	if err != nil {
		o.metrics.GenerationFailed()
		o.logger.Errorw("reply generation failed", "sessionId", sessionID, "error", err)
		return "", fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	return reply, nil
}

// attachAudio never fails the turn; any problem leaves the envelope text-only.
func (o *Orchestrator) attachAudio(ctx context.Context, sessionID string, env *recitalmodel.ReplyEnvelope, lang recitalmodel.Language) {
	if o.synthTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.synthTimeout)
		defer cancel()
	}

	start := time.Now()
	out, err := o.synth.Synthesize(ctx, env.Text, lang)
	o.metrics.ObserveSynthesis(time.Since(start))
	if err != nil {
		reason := "error"
		if errors.Is(err, context.DeadlineExceeded) {
			reason = "timeout"
		}
		o.metrics.Degraded(reason)
		o.logger.Warnw("speech synthesis failed, replying with text only", "sessionId", sessionID, "reason", reason, "error", err)
		return
	}

	a, err := playableAudio(out)
	if err != nil {
		o.metrics.Degraded("encode")
		o.logger.Warnw("synthesized audio unusable", "sessionId", sessionID, "error", err)
		return
	}
	if a == nil {
		o.metrics.Degraded("absent")
		return
	}
	env.Audio = a
}
