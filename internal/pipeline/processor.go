// Package pipeline turns one mention into a launched token.
// Flow: post lookup → suggestion → existence check → deploy → record → reply.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"mention-token-bot/internal/chain"
	"mention-token-bot/internal/domain"
	"mention-token-bot/internal/idhash"
	"mention-token-bot/internal/notify"
	"mention-token-bot/internal/observability"
	"mention-token-bot/internal/social"
	"mention-token-bot/internal/storage"
	"mention-token-bot/internal/suggest"
)

// DefaultSinkTimeout bounds each best-effort ledger and event write.
const DefaultSinkTimeout = 5 * time.Second

// Status is the terminal state of one pipeline run.
type Status string

const (
	StatusDeployed         Status = "deployed"
	StatusExists           Status = "exists"
	StatusSuggestionFailed Status = "suggestion_failed"
	StatusDeployFailed     Status = "deploy_failed"
)

// String returns the string representation of Status.
func (s Status) String() string {
	return string(s)
}

// Job identifies the mention to act on and the post it replies to.
type Job struct {
	MentionID string
	PostID    string
}

// Result describes a completed run.
type Result struct {
	Status     Status
	MentionID  string
	PostID     string
	SourceURL  string
	Suggestion *domain.TokenSuggestion
	Fallback   bool                // suggestion came from the configured fallback
	Existing   *domain.TokenRecord // set when Status == StatusExists
	Deployment *domain.Deployment  // set when Status == StatusDeployed
	Launch     *domain.Launch      // set when Status == StatusDeployed
	Replied    bool
	Err        error // cause for suggestion_failed and deploy_failed
}

// PostFetcher loads the source post.
type PostFetcher interface {
	GetPost(ctx context.Context, id string) (*domain.OriginalPost, error)
}

// Deployer deploys a token through the factory.
type Deployer interface {
	Deploy(ctx context.Context, req domain.DeployRequest) (*domain.Deployment, error)
}

// Announcer replies to the mention that triggered a launch.
type Announcer interface {
	AnnounceLaunch(ctx context.Context, l *domain.Launch) error
}

// Options configures Processor.
type Options struct {
	Posts     PostFetcher
	Suggester suggest.Provider
	Registry  chain.TokenLookup
	Deployer  Deployer
	Announcer Announcer

	// Optional sinks, both best-effort.
	Launches storage.LaunchStore
	Events   notify.LaunchPublisher

	// CheckBeforeDeploy queries the registry before deploying.
	CheckBeforeDeploy bool
	// Fallback is used when the suggestion fails. Nil disables it.
	Fallback *domain.TokenSuggestion
	// SinkTimeout bounds each sink write. Defaults to DefaultSinkTimeout.
	SinkTimeout time.Duration

	Logger *log.Logger
	Now    func() time.Time
}

// Processor runs the pipeline for single mentions.
type Processor struct {
	posts     PostFetcher
	suggester suggest.Provider
	registry  chain.TokenLookup
	deployer  Deployer
	announcer Announcer
	launches  storage.LaunchStore
	events    notify.LaunchPublisher

	checkBeforeDeploy bool
	fallback          *domain.TokenSuggestion
	sinkTimeout       time.Duration

	logger *log.Logger
	now    func() time.Time
}

// New creates a Processor.
func New(opts Options) *Processor {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	events := opts.Events
	if events == nil {
		events = notify.NopLaunchPublisher{}
	}
	sinkTimeout := opts.SinkTimeout
	if sinkTimeout <= 0 {
		sinkTimeout = DefaultSinkTimeout
	}
	return &Processor{
		posts:             opts.Posts,
		suggester:         opts.Suggester,
		registry:          opts.Registry,
		deployer:          opts.Deployer,
		announcer:         opts.Announcer,
		launches:          opts.Launches,
		events:            events,
		checkBeforeDeploy: opts.CheckBeforeDeploy,
		fallback:          opts.Fallback,
		sinkTimeout:       sinkTimeout,
		logger:            logger,
		now:               now,
	}
}

// Process runs the pipeline for job.
// A non-nil error means no terminal status was reached; see IsRetryable.
// Deploy and suggestion failures are reported through Result, not the error.
func (p *Processor) Process(ctx context.Context, job Job) (*Result, error) {
	if job.MentionID == "" || job.PostID == "" {
		return nil, fmt.Errorf("invalid job: mention id %q, post id %q", job.MentionID, job.PostID)
	}
	res := &Result{MentionID: job.MentionID, PostID: job.PostID}

	start := p.now()
	post, err := p.posts.GetPost(ctx, job.PostID)
	observability.RecordExternalCall(observability.TargetPost, p.now().Sub(start))
	if err != nil {
		return res, fmt.Errorf("get post %s: %w", job.PostID, err)
	}
	res.SourceURL = post.SourceURL()
	p.logger.Printf("mention %s: source %s", job.MentionID, res.SourceURL)

	suggestion, fallback, err := p.suggest(ctx, post.Text)
	if err != nil {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		p.logger.Printf("mention %s: suggestion failed: %v", job.MentionID, err)
		res.Status = StatusSuggestionFailed
		res.Err = err
		observability.RecordPipelineResult(res.Status.String())
		return res, nil
	}
	res.Suggestion = suggestion
	res.Fallback = fallback

	if p.checkBeforeDeploy {
		start = p.now()
		existing, err := p.registry.Lookup(ctx, res.SourceURL)
		observability.RecordExternalCall(observability.TargetRegistry, p.now().Sub(start))
		if err != nil {
			return res, fmt.Errorf("existence check: %w", err)
		}
		if existing != nil {
			p.logger.Printf("mention %s: token already exists at %s, skipping", job.MentionID, existing.TokenAddress)
			res.Status = StatusExists
			res.Existing = existing
			observability.RecordDeploy(observability.OutcomeSkipped, 0)
			observability.RecordPipelineResult(res.Status.String())
			return res, nil
		}
	}

	req := domain.DeployRequest{
		Name:       suggestion.Name,
		Symbol:     suggestion.Symbol,
		SourceURL:  res.SourceURL,
		SourceUser: post.AuthorHandle,
	}
	p.logger.Printf("mention %s: deploying %s (%s)", job.MentionID, req.Name, req.Symbol)

	start = p.now()
	deployment, err := p.deployer.Deploy(ctx, req)
	elapsed := p.now().Sub(start)
	observability.RecordExternalCall(observability.TargetDeploy, elapsed)
	if err != nil {
		observability.RecordDeploy(observability.OutcomeFailed, elapsed)
		var de *chain.DeploymentError
		if ctx.Err() != nil && (!errors.As(err, &de) || de.TxHash == "") {
			// Nothing was broadcast; the mention stays retryable.
			return res, fmt.Errorf("deploy: %w", ctx.Err())
		}
		p.logger.Printf("mention %s: deploy failed: %v", job.MentionID, err)
		res.Status = StatusDeployFailed
		res.Err = err
		observability.RecordPipelineResult(res.Status.String())
		return res, nil
	}
	observability.RecordDeploy(observability.OutcomeOK, elapsed)
	p.logger.Printf("mention %s: token deployed at %s (tx %s)", job.MentionID, deployment.TokenAddress, deployment.TransactionHash)

	res.Status = StatusDeployed
	res.Deployment = deployment
	res.Launch = &domain.Launch{
		LaunchID:        idhash.ComputeLaunchID(res.SourceURL, deployment.TransactionHash),
		MentionID:       job.MentionID,
		PostID:          job.PostID,
		SourceURL:       res.SourceURL,
		SourceUser:      post.AuthorHandle,
		TokenName:       suggestion.Name,
		TokenSymbol:     suggestion.Symbol,
		TokenAddress:    deployment.TokenAddress,
		TransactionHash: deployment.TransactionHash,
		BlockNumber:     deployment.BlockNumber,
		CreatedAt:       p.now().UnixMilli(),
	}
	p.record(ctx, res.Launch)

	start = p.now()
	err = p.announcer.AnnounceLaunch(ctx, res.Launch)
	observability.RecordExternalCall(observability.TargetReply, p.now().Sub(start))
	if err != nil {
		observability.RecordReply(observability.OutcomeFailed)
		p.logger.Printf("mention %s: %v", job.MentionID, err)
	} else {
		observability.RecordReply(observability.OutcomeOK)
		res.Replied = true
	}

	observability.RecordPipelineResult(res.Status.String())
	return res, nil
}

// suggest asks the provider, then the fallback if one is configured.
func (p *Processor) suggest(ctx context.Context, text string) (*domain.TokenSuggestion, bool, error) {
	start := p.now()
	s, err := p.suggester.Suggest(ctx, text)
	observability.RecordExternalCall(observability.TargetCompletion, p.now().Sub(start))
	if err == nil {
		observability.RecordSuggestion(observability.OutcomeOK)
		return s, false, nil
	}
	if p.fallback == nil || ctx.Err() != nil {
		observability.RecordSuggestion(observability.OutcomeFailed)
		return nil, false, err
	}

	p.logger.Printf("suggestion failed (%v), using fallback %s", err, p.fallback.Symbol)
	observability.RecordSuggestion(observability.OutcomeFallback)
	fb := *p.fallback
	return &fb, true, nil
}

// record writes the launch to the ledger and the event stream.
// The token exists on chain at this point, so shutdown does not skip the writes.
func (p *Processor) record(ctx context.Context, l *domain.Launch) {
	ctx = context.WithoutCancel(ctx)
	if p.launches != nil {
		insertCtx, cancel := context.WithTimeout(ctx, p.sinkTimeout)
		err := p.launches.Insert(insertCtx, l)
		cancel()
		if err != nil {
			p.logger.Printf("record launch %s: %v", l.LaunchID, err)
		}
	}

	publishCtx, cancel := context.WithTimeout(ctx, p.sinkTimeout)
	defer cancel()
	if err := p.events.PublishLaunch(publishCtx, l); err != nil {
		p.logger.Printf("publish launch %s: %v", l.LaunchID, err)
	}
}

// IsRetryable reports whether a Process error should leave the mention
// unacknowledged so a later cycle retries it.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, chain.ErrRegistryUnavailable) {
		return true
	}
	if _, ok := social.IsRateLimited(err); ok {
		return true
	}
	return social.IsTransient(err)
}
