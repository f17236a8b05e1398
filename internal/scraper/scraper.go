package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	collyfetcher "github.com/JakeFAU/statute-crawler/internal/fetcher/colly"
	"github.com/JakeFAU/statute-crawler/internal/metrics"
	"github.com/JakeFAU/statute-crawler/internal/policy/guard"
	"github.com/JakeFAU/statute-crawler/internal/statute"
)

// ErrCanceled is returned when a run stops because its context ended.
var ErrCanceled = errors.New("scrape canceled")

// ErrPanicked marks a run aborted by a panic inside a source, fetcher, or store.
var ErrPanicked = errors.New("scrape panicked")

// ErrSlotUnavailable wraps a failure to obtain a request slot from the guard.
var ErrSlotUnavailable = errors.New("request slot unavailable")

// Fetcher retrieves one page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (collyfetcher.Response, error)
}

// PolicyGuard gates each fetch on robots.txt and request spacing.
type PolicyGuard interface {
	CheckAllowed(ctx context.Context, rawURL string) error
	WaitForSlot(ctx context.Context) error
}

// RetryPolicy decides whether a failed fetch is attempted again.
type RetryPolicy interface {
	ShouldRetry(err error, attempt int) bool
	Wait(ctx context.Context, attempt int) error
}

// OutcomeKind classifies the result of one target.
type OutcomeKind int

// Outcome kinds. Recoverable outcomes are counted and skipped; fatal ones end the run.
const (
	OutcomeOK OutcomeKind = iota
	OutcomeRecoverable
	OutcomeFatal
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeOK:
		return "ok"
	case OutcomeRecoverable:
		return "recoverable"
	case OutcomeFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Outcome is the typed result of scraping a single target.
type Outcome struct {
	Kind     OutcomeKind
	Statute  statute.Statute
	Inserted bool
	Err      error
}

// Summary counts what one run did.
type Summary struct {
	SessionID string
	Attempted int
	Succeeded int
	Failed    int
	Inserted  int
	Updated   int
}

// Metadata renders the summary as the session's completion metadata.
func (s Summary) Metadata() map[string]any {
	return map[string]any{
		"attempted": s.Attempted,
		"succeeded": s.Succeeded,
		"failed":    s.Failed,
		"inserted":  s.Inserted,
		"updated":   s.Updated,
	}
}

// Scraper runs one source's target list against the shared guard, store, and tracker.
type Scraper struct {
	source     Source
	guard      PolicyGuard
	fetcher    Fetcher
	store      statute.Store
	sessions   statute.SessionTracker
	retry      RetryPolicy
	scrapeType string
	logger     *zap.Logger
}

// Deps are the collaborators shared by every scraper.
type Deps struct {
	Fetcher    Fetcher
	Store      statute.Store
	Sessions   statute.SessionTracker
	// Retry is optional; nil fetches each target once.
	Retry      RetryPolicy
	ScrapeType string
	Logger     *zap.Logger
}

// New builds a Scraper for source. g must be dedicated to this scraper instance.
func New(source Source, g PolicyGuard, deps Deps) (*Scraper, error) {
	switch {
	case source == nil:
		return nil, errors.New("scraper requires a source")
	case g == nil:
		return nil, errors.New("scraper requires a policy guard")
	case deps.Fetcher == nil, deps.Store == nil, deps.Sessions == nil:
		return nil, errors.New("scraper requires a fetcher, store, and session tracker")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	scrapeType := deps.ScrapeType
	if scrapeType == "" {
		scrapeType = statute.ScrapeTypeFull
	}
	return &Scraper{
		source:     source,
		guard:      g,
		fetcher:    deps.Fetcher,
		store:      deps.Store,
		sessions:   deps.Sessions,
		retry:      deps.Retry,
		scrapeType: scrapeType,
		logger: logger.Named("scraper").With(
			zap.String("jurisdiction", source.Jurisdiction()),
			zap.String("source", source.Name()),
		),
	}, nil
}

// Source returns the source this scraper drives.
func (s *Scraper) Source() Source {
	return s.source
}

// Scrape opens a session, walks every target, and closes the session. The returned
// error is non-nil only when the run was aborted; per-item failures are counted.
// A panic after the session opens is converted into an aborted run.
func (s *Scraper) Scrape(ctx context.Context) (summary Summary, err error) {
	jurisdiction := s.source.Jurisdiction()
	sessionID, err := s.sessions.Start(ctx, jurisdiction, s.scrapeType)
	if err != nil {
		return Summary{}, fmt.Errorf("start session: %w", err)
	}
	summary = Summary{SessionID: sessionID}
	logger := s.logger.With(zap.String("session_id", sessionID))
	defer func() {
		if p := recover(); p != nil {
			logger.Error("scrape panicked", zap.Any("panic", p), zap.Stack("stack"))
			err = s.abort(ctx, logger, summary, fmt.Errorf("%w: %v", ErrPanicked, p))
		}
	}()
	logger.Info("scrape started", zap.Int("targets", len(s.source.Targets())))
	start := time.Now()

	for _, target := range s.source.Targets() {
		if ctx.Err() != nil {
			return summary, s.abort(ctx, logger, summary, ErrCanceled)
		}
		outcome := s.ScrapeOne(ctx, target)
		metrics.ObserveItem(jurisdiction, outcome.Kind.String())

		switch outcome.Kind {
		case OutcomeOK:
			summary.Attempted++
			summary.Succeeded++
			if outcome.Inserted {
				summary.Inserted++
			} else {
				summary.Updated++
			}
		case OutcomeRecoverable:
			summary.Attempted++
			summary.Failed++
			logger.Warn("target failed",
				zap.String("citation", target.Citation),
				zap.Error(outcome.Err),
			)
		case OutcomeFatal:
			return summary, s.abort(ctx, logger, summary, outcome.Err)
		}

		if err := s.sessions.Progress(ctx, sessionID, summary.Succeeded, summary.Failed); err != nil {
			logger.Warn("session progress update failed", zap.Error(err))
		}
	}

	if err := s.complete(ctx, logger, sessionID, true, "", summary.Metadata()); err != nil {
		return summary, fmt.Errorf("complete session: %w", err)
	}
	logger.Info("scrape completed",
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
		zap.Duration("duration", time.Since(start)),
	)
	return summary, nil
}

// abort marks the session failed with cause and returns cause.
func (s *Scraper) abort(ctx context.Context, logger *zap.Logger, summary Summary, cause error) error {
	if errors.Is(cause, context.Canceled) || errors.Is(cause, context.DeadlineExceeded) {
		cause = fmt.Errorf("%w: %w", ErrCanceled, cause)
	}
	message := cause.Error()
	if errors.Is(cause, ErrCanceled) {
		message = ErrCanceled.Error()
	}
	logger.Error("scrape aborted", zap.Error(cause))
	if err := s.complete(ctx, logger, summary.SessionID, false, message, summary.Metadata()); err != nil {
		return errors.Join(cause, fmt.Errorf("complete session: %w", err))
	}
	return cause
}

// complete writes the terminal status, retrying once. The write ignores ctx
// cancellation so a canceled run still closes its session.
func (s *Scraper) complete(
	ctx context.Context,
	logger *zap.Logger,
	sessionID string,
	success bool,
	message string,
	metadata map[string]any,
) error {
	ctx = context.WithoutCancel(ctx)
	err := s.sessions.Complete(ctx, sessionID, success, message, metadata)
	if err == nil || errors.Is(err, statute.ErrSessionClosed) || errors.Is(err, statute.ErrNotFound) {
		return err //nolint:wrapcheck // wrapped by callers
	}
	logger.Warn("session completion failed, retrying", zap.Error(err))
	if err = s.sessions.Complete(ctx, sessionID, success, message, metadata); err != nil {
		logger.Error("session left in progress",
			zap.String("session_id", sessionID),
			zap.Bool("success", success),
			zap.Error(err),
		)
		return err //nolint:wrapcheck // wrapped by callers
	}
	return nil
}

// ScrapeOne fetches, parses, and stores a single target.
func (s *Scraper) ScrapeOne(ctx context.Context, target Target) Outcome {
	pageURL, err := ResolveURL(s.source.BaseURL(), target.Path)
	if err != nil {
		return recoverable(fmt.Errorf("resolve %s: %w", target.Citation, err))
	}
	if err := s.guard.CheckAllowed(ctx, pageURL); err != nil {
		if errors.Is(err, guard.ErrForeignHost) {
			return recoverable(err)
		}
		return fatal(err)
	}
	resp, err := s.fetch(ctx, pageURL)
	if err != nil {
		if ctx.Err() != nil {
			return fatal(ctx.Err())
		}
		if errors.Is(err, ErrSlotUnavailable) {
			return fatal(err)
		}
		return recoverable(fmt.Errorf("fetch %s: %w", pageURL, err))
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return recoverable(fmt.Errorf("parse html %s: %w", pageURL, err))
	}
	record, err := s.source.Parse(target, doc)
	if err != nil {
		return recoverable(fmt.Errorf("parse %s: %w", target.Citation, err))
	}
	if record.Citation == "" {
		record.Citation = target.Citation
	}
	if record.URL == "" {
		record.URL = pageURL
	}
	record.Jurisdiction = s.source.Jurisdiction()

	inserted, err := s.store.Upsert(ctx, record)
	if err != nil {
		return recoverable(fmt.Errorf("store %s: %w", record.Citation, err))
	}
	return Outcome{Kind: OutcomeOK, Statute: record, Inserted: inserted}
}

// fetch waits for a slot before every attempt, so retries keep the same spacing.
func (s *Scraper) fetch(ctx context.Context, pageURL string) (collyfetcher.Response, error) {
	for attempt := 1; ; attempt++ {
		if err := s.guard.WaitForSlot(ctx); err != nil {
			return collyfetcher.Response{}, fmt.Errorf("%w: %w", ErrSlotUnavailable, err)
		}
		resp, err := s.fetcher.Fetch(ctx, pageURL)
		if err == nil {
			return resp, nil
		}
		if s.retry == nil || ctx.Err() != nil || !s.retry.ShouldRetry(err, attempt) {
			return collyfetcher.Response{}, err
		}
		s.logger.Info("retrying fetch",
			zap.String("url", pageURL),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if err := s.retry.Wait(ctx, attempt); err != nil {
			return collyfetcher.Response{}, err //nolint:wrapcheck // ctx error checked by caller
		}
	}
}

func recoverable(err error) Outcome {
	return Outcome{Kind: OutcomeRecoverable, Err: err}
}

func fatal(err error) Outcome {
	return Outcome{Kind: OutcomeFatal, Err: err}
}
