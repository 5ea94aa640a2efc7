// SPDX-License-Identifier: MPL-2.0

package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/modcrate/modcrate/internal/repository"
)

const (
	// DefaultConcurrency bounds the number of parts in flight.
	DefaultConcurrency = 8

	// abortTimeout bounds the best-effort abort call.
	abortTimeout = 30 * time.Second
)

// Publish states. Aborting is only entered from Uploading.
const (
	StateInitiating State = iota
	StateUploading
	StateFinishing
	StateSubmitting
	StateDone
	StateAborting
)

// ErrEmptyArtifact is returned when the artifact to publish has no bytes.
var ErrEmptyArtifact = errors.New("artifact is empty")

type (
	// State is a step of the publish protocol.
	State int

	// SessionAPI is the subset of the repository API the publisher drives.
	SessionAPI interface {
		InitiateUpload(ctx context.Context, filename string, size int64) (*repository.UploadSession, error)
		FinishUpload(ctx context.Context, id uuid.UUID, parts []repository.CompletedPart) error
		AbortUpload(ctx context.Context, id uuid.UUID) error
		SubmitPackage(ctx context.Context, req repository.SubmitPackageRequest) (*repository.SubmissionResult, error)
	}

	// PartUploader uploads one part of an artifact.
	PartUploader interface {
		Upload(ctx context.Context, filePath string, part repository.UploadPart) (repository.CompletedPart, error)
	}

	// PublishRequest names the artifact and the metadata to submit with it.
	PublishRequest struct {
		FilePath            string
		Namespace           string
		Communities         []string
		Categories          []string
		CommunityCategories map[string][]string
		HasNSFWContent      bool
	}

	// PublishResult describes a published package version.
	PublishResult struct {
		UploadUUID  uuid.UUID
		Parts       int
		DownloadURL string
	}

	// Publisher runs the publish protocol against one repository.
	Publisher struct {
		api         SessionAPI
		uploader    PartUploader
		concurrency int
		interval    time.Duration
		reporter    Reporter
		logger      *log.Logger
		onState     func(State)
	}

	// PublisherOption configures a Publisher during construction.
	PublisherOption func(*Publisher)
)

var stateNames = [...]string{
	StateInitiating: "initiating",
	StateUploading:  "uploading",
	StateFinishing:  "finishing",
	StateSubmitting: "submitting",
	StateDone:       "done",
	StateAborting:   "aborting",
}

// String returns the lower-case state name.
func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// WithConcurrency bounds the number of parts uploaded at once.
func WithConcurrency(n int) PublisherOption {
	return func(p *Publisher) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithReporter sets the progress reporter.
func WithReporter(r Reporter) PublisherOption {
	return func(p *Publisher) {
		p.reporter = r
	}
}

// WithPollInterval sets how often upload progress is sampled.
func WithPollInterval(d time.Duration) PublisherOption {
	return func(p *Publisher) {
		p.interval = d
	}
}

// WithLogger sets the logger for state transitions and abort failures.
func WithLogger(l *log.Logger) PublisherOption {
	return func(p *Publisher) {
		p.logger = l
	}
}

// WithPartUploader replaces the HTTP part uploader.
func WithPartUploader(u PartUploader) PublisherOption {
	return func(p *Publisher) {
		p.uploader = u
	}
}

// WithStateHook registers fn to observe every state transition.
func WithStateHook(fn func(State)) PublisherOption {
	return func(p *Publisher) {
		p.onState = fn
	}
}

// NewPublisher creates a Publisher for client. Parts are sent with a
// ChunkUploader sharing the client's transport unless WithPartUploader is
// given.
func NewPublisher(client *repository.Client, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		api:         client,
		concurrency: DefaultConcurrency,
		interval:    DefaultPollInterval,
		reporter:    NopReporter{},
		logger:      log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.uploader == nil {
		p.uploader = NewChunkUploader(client, p.logger)
	}
	return p
}

// Publish uploads the artifact at req.FilePath and submits it.
//
// A failed part stops the wait at once, aborts the session and returns the
// part's error; parts still in flight are cancelled but not awaited. No step
// is retried as a whole.
func (p *Publisher) Publish(ctx context.Context, req PublishRequest) (*PublishResult, error) {
	info, err := os.Stat(req.FilePath)
	if err != nil {
		return nil, fmt.Errorf("reading artifact: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("artifact %s is a directory", req.FilePath)
	}
	if info.Size() == 0 {
		return nil, fmt.Errorf("%s: %w", req.FilePath, ErrEmptyArtifact)
	}

	p.enter(StateInitiating)
	session, err := p.api.InitiateUpload(ctx, filepath.Base(req.FilePath), info.Size())
	if err != nil {
		return nil, fmt.Errorf("initiating upload: %w", err)
	}
	id := session.Media.UUID
	p.logger.Info("upload session opened", "uuid", id, "parts", len(session.Parts))

	p.enter(StateUploading)
	parts, err := p.uploadParts(ctx, req.FilePath, session.Parts)
	if err != nil {
		p.enter(StateAborting)
		p.abort(ctx, id)
		return nil, err
	}

	p.enter(StateFinishing)
	if err := p.api.FinishUpload(ctx, id, parts); err != nil {
		return nil, fmt.Errorf("finishing upload: %w", err)
	}

	p.enter(StateSubmitting)
	res, err := p.api.SubmitPackage(ctx, repository.SubmitPackageRequest{
		AuthorName:          req.Namespace,
		Categories:          req.Categories,
		Communities:         req.Communities,
		CommunityCategories: req.CommunityCategories,
		HasNSFWContent:      req.HasNSFWContent,
		UploadUUID:          id,
	})
	if err != nil {
		return nil, fmt.Errorf("submitting package: %w", err)
	}

	p.enter(StateDone)
	return &PublishResult{
		UploadUUID:  id,
		Parts:       len(parts),
		DownloadURL: res.PackageVersion.DownloadURL,
	}, nil
}

// uploadParts sends every part concurrently and returns their
// acknowledgements once all succeed.
func (p *Publisher) uploadParts(ctx context.Context, filePath string, parts []repository.UploadPart) ([]repository.CompletedPart, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	tasks := make([]*task, len(parts))
	ops := make([]Operation, len(parts))
	for i := range parts {
		tasks[i] = &task{}
		ops[i] = tasks[i]
	}
	completed := make([]repository.CompletedPart, len(parts))

	// The first failure is the root cause; later ones are usually the
	// cancellation it triggered.
	var (
		firstErr  error
		firstOnce sync.Once
	)

	// g.Go blocks at the limit, so launching happens off the monitor's
	// goroutine.
	go func() {
		for i, part := range parts {
			// Parts not yet started are skipped once a part has failed.
			if gctx.Err() != nil {
				break
			}
			g.Go(func() error {
				cp, err := p.uploader.Upload(gctx, filePath, part)
				if err != nil {
					firstOnce.Do(func() { firstErr = err })
				} else {
					completed[i] = cp
				}
				tasks[i].finish(err)
				return err
			})
		}
		_ = g.Wait() //nolint:errcheck // Failures are observed through the tasks.
	}()

	mon := Monitor{Interval: p.interval, Reporter: p.reporter}
	if err := mon.Wait(ctx, ops); err != nil {
		// Do orders the read after any write made by a failed part.
		firstOnce.Do(func() {})
		if firstErr != nil {
			return nil, firstErr
		}
		return nil, err
	}
	return completed, nil
}

// abort discards the session. Its failure is logged, never returned, and it
// runs even when ctx is already cancelled.
func (p *Publisher) abort(ctx context.Context, id uuid.UUID) {
	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), abortTimeout)
	defer cancel()

	if err := p.api.AbortUpload(actx, id); err != nil {
		p.logger.Warn("aborting upload failed", "uuid", id, "err", err)
		return
	}
	p.logger.Info("upload aborted", "uuid", id)
}

func (p *Publisher) enter(s State) {
	p.logger.Debug("publish state", "state", s)
	if p.onState != nil {
		p.onState(s)
	}
}
