// Package rag orchestrates the answer pipeline: safety screening, intent
// classification, lexical retrieval, context validation, generation and
// grounding, with analytics tagged onto every served response. The
// pipeline is stateless per query; all cross-query state lives in its
// collaborators.
package rag

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fleetassist/backend/internal/analytics"
	"github.com/fleetassist/backend/internal/contextcheck"
	"github.com/fleetassist/backend/internal/grounding"
	"github.com/fleetassist/backend/internal/intent"
	"github.com/fleetassist/backend/internal/metrics"
	"github.com/fleetassist/backend/internal/prompt"
	"github.com/fleetassist/backend/internal/safety"
	"github.com/fleetassist/backend/internal/search"
	"github.com/fleetassist/backend/internal/storage/models"
	"github.com/fleetassist/backend/pkg/logger"
)

const clarificationAnswer = "I want to make sure I point you at the right thing. Could you rephrase your question with a bit more detail about what you're trying to do?"

// CorpusProvider supplies the FAQ corpus for one retrieval. The snapshot
// is immutable for the duration of the query.
type CorpusProvider interface {
	ListFAQs(ctx context.Context) ([]models.FAQEntry, error)
}

// Generator produces a drafted answer from retrieved context. Optional.
type Generator interface {
	Available() bool
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Recorder persists analytics records, best-effort.
type Recorder interface {
	Record(ctx context.Context, rec *models.AnalyticsRecord) string
}

// InteractionMemory receives one notification per served answer. Optional.
type InteractionMemory interface {
	RecordInteraction(ctx context.Context, userID, topic, query string, responseQuality float64) error
}

// MatchedFAQ is the user-visible slice of a retrieval match.
type MatchedFAQ struct {
	ID       string  `json:"id"`
	Question string  `json:"question"`
	Answer   string  `json:"answer"`
	Category string  `json:"category,omitempty"`
	Score    float64 `json:"score"`
}

// Response is the complete outcome of one pipeline run. Every field is
// always populated; failure modes inside the pipeline degrade individual
// values rather than dropping them.
type Response struct {
	Answer              string       `json:"answer"`
	Intent              string       `json:"intent"`
	IntentConfidence    float64      `json:"intent_confidence"`
	Domain              string       `json:"domain"`
	FAQMatched          bool         `json:"faq_matched"`
	SimilarityScore     float64      `json:"similarity_score"`
	IsGrounded          bool         `json:"is_grounded"`
	GroundingConfidence float64      `json:"grounding_confidence"`
	GeneratorUsed       bool         `json:"generator_used"`
	Matches             []MatchedFAQ `json:"matches"`
	AnalyticsID         string       `json:"analytics_id,omitempty"`
}

type Pipeline struct {
	gate       *safety.Gate
	classifier *intent.Classifier
	matcher    *search.Matcher
	validator  *contextcheck.Validator
	grounder   *grounding.Grounder
	tagger     *analytics.Tagger

	corpus    CorpusProvider
	generator Generator
	sink      Recorder
	memory    InteractionMemory
}

// Deps bundles the pipeline's collaborators. Generator, Sink and Memory
// may be nil; the pipeline degrades without them.
type Deps struct {
	Gate       *safety.Gate
	Classifier *intent.Classifier
	Matcher    *search.Matcher
	Validator  *contextcheck.Validator
	Grounder   *grounding.Grounder
	Tagger     *analytics.Tagger
	Corpus     CorpusProvider
	Generator  Generator
	Sink       Recorder
	Memory     InteractionMemory
}

func NewPipeline(deps Deps) *Pipeline {
	return &Pipeline{
		gate:       deps.Gate,
		classifier: deps.Classifier,
		matcher:    deps.Matcher,
		validator:  deps.Validator,
		grounder:   deps.Grounder,
		tagger:     deps.Tagger,
		corpus:     deps.Corpus,
		generator:  deps.Generator,
		sink:       deps.Sink,
		memory:     deps.Memory,
	}
}

// Answer runs one query through the pipeline. The only error it returns
// is *SafetyError; every other failure mode degrades into a structurally
// valid Response. A panic anywhere below the boundary produces a generic
// apology with zeroed analytics.
func (p *Pipeline) Answer(ctx context.Context, userKey, query string) (resp *Response, err error) {
	start := time.Now()
	defer func() {
		metrics.QueryDuration.Observe(time.Since(start).Seconds())
		if r := recover(); r != nil {
			logger.Error("pipeline panic recovered",
				zap.String("user_key", userKey),
				zap.Any("panic", r))
			metrics.QueriesTotal.WithLabelValues(metrics.OutcomeError).Inc()
			resp = &Response{
				Answer:      "Something went wrong on our side while answering that. Please try again in a moment.",
				Intent:      intent.IntentGeneral,
				Domain:      string(intent.DomainGeneral),
				AnalyticsID: p.recordFailure(ctx, userKey, query),
			}
			err = nil
		}
	}()

	query = strings.TrimSpace(query)

	// Safety screening happens before anything else, including analytics:
	// rejected queries leave no analytics trail.
	verdict := p.gate.Screen(userKey, query)
	if !verdict.Allowed {
		metrics.QueriesTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
		metrics.SafetyRejections.WithLabelValues(string(verdict.Reason)).Inc()
		return nil, &SafetyError{Reason: verdict.Reason, Message: verdict.Message}
	}

	domain := p.classifier.ClassifyDomain(query)
	intentName, intentConf := p.classifier.DetectIntent(query)

	// High-traffic account topics are answered from fixed templates
	// without touching the corpus.
	if direct, ok := prompt.DirectAnswer(domain); ok {
		return p.finish(ctx, finishArgs{
			outcome:          metrics.OutcomeDirect,
			userKey:          userKey,
			query:            query,
			domain:           domain,
			intentName:       intentName,
			intentConfidence: intentConf,
			answer:           direct,
			faqMatched:       false,
			similarity:       1.0,
			isGrounded:       true,
			groundingConf:    1.0,
		}), nil
	}

	matches := p.retrieve(ctx, query)

	if p.validator.ShouldOverride(query, matches) {
		logger.Debug("retrieval overridden by domain conflict",
			zap.String("domain", string(domain)),
			zap.String("query", query))
		matches = nil
	}

	if len(matches) > 0 && !p.validator.Appropriate(query, matches[0]) {
		return p.finish(ctx, finishArgs{
			outcome:          metrics.OutcomeClarification,
			userKey:          userKey,
			query:            query,
			domain:           domain,
			intentName:       intentName,
			intentConfidence: intentConf,
			answer:           clarificationAnswer,
			faqMatched:       false,
			similarity:       matches[0].Score,
			isGrounded:       false,
			groundingConf:    0.3,
		}), nil
	}

	if len(matches) == 0 {
		return p.finish(ctx, finishArgs{
			outcome:          metrics.OutcomeNoMatch,
			userKey:          userKey,
			query:            query,
			domain:           domain,
			intentName:       intentName,
			intentConfidence: intentConf,
			answer:           grounding.NoMatchAnswer(query),
			faqMatched:       false,
			similarity:       0,
			isGrounded:       false,
			groundingConf:    0,
		}), nil
	}

	metrics.SimilarityScore.Observe(matches[0].Score)

	answer, generatorUsed := p.draft(ctx, query, intentName, matches)
	grounded := p.grounder.Ground(query, answer, matches)
	metrics.GroundingConfidence.Observe(grounded.Confidence)

	return p.finish(ctx, finishArgs{
		outcome:          metrics.OutcomeAnswered,
		userKey:          userKey,
		query:            query,
		domain:           domain,
		intentName:       intentName,
		intentConfidence: intentConf,
		answer:           grounded.Answer,
		faqMatched:       true,
		similarity:       matches[0].Score,
		isGrounded:       grounded.IsGrounded,
		groundingConf:    grounded.Confidence,
		generatorUsed:    generatorUsed,
		matches:          matches,
	}), nil
}

// recordFailure writes a zeroed analytics record for a run that died
// inside the boundary, so even failed answers leave a trail. It carries
// its own recover: a misbehaving sink must not re-panic the recovery.
func (p *Pipeline) recordFailure(ctx context.Context, userKey, query string) (id string) {
	if p.sink == nil {
		return ""
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Error("analytics record failed while recovering",
				zap.Any("panic", r))
			id = ""
		}
	}()

	rec := analytics.BuildRecord(userKey, query, intent.IntentGeneral, analytics.Tags{
		Sentiment: analytics.SentimentNeutral,
		Persona:   analytics.PersonaNeutral,
	}, false, 0, false, 0, false)
	return p.sink.Record(ctx, rec)
}

// retrieve fetches the corpus snapshot and returns fresh, scored matches.
// A corpus read failure degrades to an empty result rather than an error.
func (p *Pipeline) retrieve(ctx context.Context, query string) []search.Match {
	corpus, err := p.corpus.ListFAQs(ctx)
	if err != nil {
		logger.Error("corpus read failed, answering without retrieval",
			zap.Error(err))
		return nil
	}

	return p.grounder.FilterFresh(p.matcher.Search(query, corpus))
}

// draft produces the answer text: the generator's rewrite of the FAQ
// context when it is available, otherwise the top match's answer verbatim.
// Exactly one generation attempt is made; the query path never retries.
func (p *Pipeline) draft(ctx context.Context, query, intentName string, matches []search.Match) (string, bool) {
	fallback := matches[0].Entry.Answer

	if p.generator == nil || !p.generator.Available() {
		metrics.GeneratorFallbacks.Inc()
		return fallback, false
	}

	generated, err := p.generator.Generate(ctx,
		prompt.SystemPromptFor(intentName),
		prompt.BuildGeneratorPrompt(query, matches))
	if err != nil || strings.TrimSpace(generated) == "" {
		metrics.GeneratorFallbacks.Inc()
		if err != nil {
			logger.Warn("generation failed, serving verbatim answer",
				zap.Error(err))
		}
		return fallback, false
	}

	return generated, true
}

type finishArgs struct {
	outcome          string
	userKey          string
	query            string
	domain           intent.Domain
	intentName       string
	intentConfidence float64
	answer           string
	faqMatched       bool
	similarity       float64
	isGrounded       bool
	groundingConf    float64
	generatorUsed    bool
	matches          []search.Match
}

// finish tags analytics, records them, notifies memory and assembles the
// response. Everything in here is best-effort: the answer is already
// decided.
func (p *Pipeline) finish(ctx context.Context, args finishArgs) *Response {
	metrics.QueriesTotal.WithLabelValues(args.outcome).Inc()

	tags := p.tagger.Tag(analytics.Exchange{
		Query:            args.query,
		Answer:           args.answer,
		SimilarityScore:  args.similarity,
		IntentConfidence: args.intentConfidence,
	})

	var analyticsID string
	if p.sink != nil {
		rec := analytics.BuildRecord(args.userKey, args.query, args.intentName, tags,
			args.faqMatched, args.similarity, args.generatorUsed, args.groundingConf, args.isGrounded)
		analyticsID = p.sink.Record(ctx, rec)
	}

	if p.memory != nil {
		quality := 0.4*args.similarity + 0.4*args.groundingConf + 0.2*(1.0-tags.MisunderstandingRisk)
		if err := p.memory.RecordInteraction(ctx, args.userKey, string(args.domain), args.query, quality); err != nil {
			logger.Warn("interaction memory update failed",
				zap.String("user_key", args.userKey),
				zap.Error(err))
		}
	}

	matched := make([]MatchedFAQ, 0, len(args.matches))
	for _, m := range args.matches {
		matched = append(matched, MatchedFAQ{
			ID:       m.Entry.ID,
			Question: m.Entry.Question,
			Answer:   m.Entry.Answer,
			Category: m.Entry.Category,
			Score:    m.Score,
		})
	}

	return &Response{
		Answer:              args.answer,
		Intent:              args.intentName,
		IntentConfidence:    args.intentConfidence,
		Domain:              string(args.domain),
		FAQMatched:          args.faqMatched,
		SimilarityScore:     args.similarity,
		IsGrounded:          args.isGrounded,
		GroundingConfidence: args.groundingConf,
		GeneratorUsed:       args.generatorUsed,
		Matches:             matched,
		AnalyticsID:         analyticsID,
	}
}
