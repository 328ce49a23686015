package generation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"artgen-app/internal/domain/generations"
	"artgen-app/internal/domain/quota"
	"artgen-app/internal/infra/stability"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrProviderUnavailable is returned after the transport retry budget is
// exhausted. The reservation has been released; the user may retry manually.
var ErrProviderUnavailable = errors.New("generation provider unavailable")

const retryPause = 200 * time.Millisecond

// Provider is the outbound generation API.
type Provider interface {
	GenerateImage(ctx context.Context, req stability.ImageRequest) (*stability.Result, error)
	GenerateVideo(ctx context.Context, req stability.VideoRequest) (*stability.Result, error)
}

// Ledger reserves and settles generation credits.
type Ledger interface {
	CheckAndReserve(ctx context.Context, userID uint) (*quota.Reservation, error)
	Commit(ctx context.Context, r *quota.Reservation)
	Release(ctx context.Context, r *quota.Reservation)
}

// Recorder appends completed generations to the usage log.
type Recorder interface {
	RecordGeneration(ctx context.Context, rec *generations.Record) error
}

// MediaStore persists generated media and returns a reference URL. Optional.
type MediaStore interface {
	Save(ctx context.Context, objectName string, data []byte, contentType string) (string, error)
}

// Orchestrator is the single entry point for generation requests. It holds
// no per-request state of its own; everything flows through its
// collaborators.
type Orchestrator struct {
	provider Provider
	ledger   Ledger
	recorder Recorder
	store    MediaStore // may be nil
	log      *logrus.Logger
}

func NewOrchestrator(provider Provider, ledger Ledger, recorder Recorder, store MediaStore, log *logrus.Logger) *Orchestrator {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Orchestrator{
		provider: provider,
		ledger:   ledger,
		recorder: recorder,
		store:    store,
		log:      log,
	}
}

// Outcome is a delivered generation: the media plus its accounting record.
type Outcome struct {
	Record     generations.Record
	MediaBytes []byte
	MediaType  string
}

// Submit validates the request, reserves one credit, calls the provider and
// settles the reservation. A user is never debited for a generation that
// produced no output, and every recorded generation corresponds to a
// delivered result.
func (o *Orchestrator) Submit(ctx context.Context, userID uint, req Request) (*Outcome, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	reservation, err := o.ledger.CheckAndReserve(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Settlement must survive the caller hanging up: a reserved credit has
	// to be refunded or committed even after the request context is canceled.
	settleCtx := context.WithoutCancel(ctx)

	result, err := o.generate(ctx, req)
	if err != nil {
		o.ledger.Release(settleCtx, reservation)

		var transport *stability.TransportError
		if errors.As(err, &transport) {
			o.log.WithError(err).WithField("user_id", userID).
				Warn("generation failed after transport retry")
			return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, transport.Err)
		}
		return nil, err
	}

	o.ledger.Commit(settleCtx, reservation)

	record := generations.Record{
		ID:             uuid.NewString(),
		UserID:         userID,
		Prompt:         req.Prompt,
		NegativePrompt: req.NegativePrompt,
		Style:          req.Style,
		Width:          req.Width,
		Height:         req.Height,
		Kind:           recordKind(req.Mode),
	}
	record.OutputRef = o.storeMedia(settleCtx, &record, result)

	// The media was generated and the credit spent; a failed usage write is
	// an operator problem, not a user-facing one.
	if err := o.recorder.RecordGeneration(settleCtx, &record); err != nil {
		o.log.WithError(err).WithFields(logrus.Fields{
			"user_id":   userID,
			"record_id": record.ID,
		}).Error("failed to record completed generation")
	}

	return &Outcome{
		Record:     record,
		MediaBytes: result.MediaBytes,
		MediaType:  result.MediaType,
	}, nil
}

// generate performs the provider call with exactly one retry for transport
// failures. Rejections and malformed responses are never retried.
func (o *Orchestrator) generate(ctx context.Context, req Request) (*stability.Result, error) {
	result, err := o.callProvider(ctx, req)
	if err == nil {
		return result, nil
	}

	var transport *stability.TransportError
	if !errors.As(err, &transport) {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, &stability.TransportError{Err: ctx.Err()}
	case <-time.After(retryPause):
	}

	return o.callProvider(ctx, req)
}

func (o *Orchestrator) callProvider(ctx context.Context, req Request) (*stability.Result, error) {
	switch req.Mode {
	case ModeImageToVideo:
		return o.provider.GenerateVideo(ctx, stability.VideoRequest{
			Image:           req.SourceImage,
			MotionStyle:     req.MotionStyle,
			QualityTier:     req.QualityTier,
			DurationSeconds: req.DurationSeconds,
			ContextPrompt:   req.Prompt,
		})
	default:
		return o.provider.GenerateImage(ctx, stability.ImageRequest{
			Prompt:         req.Prompt,
			StyleSuffix:    StyleSuffix(req.Style),
			NegativePrompt: req.NegativePrompt,
			Width:          req.Width,
			Height:         req.Height,
		})
	}
}

// storeMedia uploads the result for a stable output reference. Best effort:
// when no store is configured or the upload fails, the record keeps a local
// reference and the media is still returned inline.
func (o *Orchestrator) storeMedia(ctx context.Context, record *generations.Record, result *stability.Result) string {
	name := record.ID + extensionFor(result.MediaType)
	if o.store == nil {
		return name
	}

	url, err := o.store.Save(ctx, name, result.MediaBytes, result.MediaType)
	if err != nil {
		o.log.WithError(err).WithField("record_id", record.ID).
			Error("failed to upload generated media")
		return name
	}
	return url
}

func recordKind(mode Mode) string {
	if mode == ModeImageToVideo {
		return generations.KindVideo
	}
	return generations.KindImage
}

func extensionFor(mediaType string) string {
	if mediaType == "video/mp4" {
		return ".mp4"
	}
	return ".png"
}
