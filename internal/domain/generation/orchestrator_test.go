package generation

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"artgen-app/internal/domain/generations"
	"artgen-app/internal/domain/plans"
	"artgen-app/internal/domain/quota"
	"artgen-app/internal/domain/users"
	"artgen-app/internal/infra/stability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fakeProvider struct {
	imageCalls int
	videoCalls int
	results    []*stability.Result
	errs       []error
	lastImage  stability.ImageRequest
	lastVideo  stability.VideoRequest

	// invoked on every call, before the scripted result
	hook func()
}

func (p *fakeProvider) next() (*stability.Result, error) {
	i := p.imageCalls + p.videoCalls - 1
	var err error
	if i < len(p.errs) {
		err = p.errs[i]
	}
	if err != nil {
		return nil, err
	}
	if i < len(p.results) {
		return p.results[i], nil
	}
	return &stability.Result{MediaBytes: []byte("png-bytes"), MediaType: "image/png"}, nil
}

func (p *fakeProvider) GenerateImage(ctx context.Context, req stability.ImageRequest) (*stability.Result, error) {
	p.imageCalls++
	p.lastImage = req
	if p.hook != nil {
		p.hook()
	}
	return p.next()
}

func (p *fakeProvider) GenerateVideo(ctx context.Context, req stability.VideoRequest) (*stability.Result, error) {
	p.videoCalls++
	p.lastVideo = req
	if p.hook != nil {
		p.hook()
	}
	return p.next()
}

type fakeLedger struct {
	reserveErr error
	reserves   int
	commits    int
	releases   int
}

func (l *fakeLedger) CheckAndReserve(ctx context.Context, userID uint) (*quota.Reservation, error) {
	l.reserves++
	if l.reserveErr != nil {
		return nil, l.reserveErr
	}
	return &quota.Reservation{UserID: userID}, nil
}

func (l *fakeLedger) Commit(ctx context.Context, r *quota.Reservation) {
	l.commits++
}

func (l *fakeLedger) Release(ctx context.Context, r *quota.Reservation) {
	l.releases++
}

type fakeRecorder struct {
	err        error
	records    []generations.Record
	lastCtxErr error
}

func (r *fakeRecorder) RecordGeneration(ctx context.Context, rec *generations.Record) error {
	r.lastCtxErr = ctx.Err()
	if r.err != nil {
		return r.err
	}
	r.records = append(r.records, *rec)
	return nil
}

type fakeStore struct {
	err   error
	saved string
}

func (s *fakeStore) Save(ctx context.Context, objectName string, data []byte, contentType string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.saved = objectName
	return "https://media.example.com/generations/" + objectName, nil
}

func newTestOrchestrator(p *fakeProvider, l *fakeLedger, r *fakeRecorder, s MediaStore) *Orchestrator {
	return NewOrchestrator(p, l, r, s, nil)
}

func TestSubmitValidationFailureTouchesNothing(t *testing.T) {
	provider := &fakeProvider{}
	ledger := &fakeLedger{}
	recorder := &fakeRecorder{}
	orch := newTestOrchestrator(provider, ledger, recorder, nil)

	req := validImageRequest()
	req.Prompt = ""

	_, err := orch.Submit(context.Background(), 1, req)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, 0, ledger.reserves)
	assert.Equal(t, 0, provider.imageCalls)
	assert.Empty(t, recorder.records)
}

func TestSubmitQuotaExceededSkipsProvider(t *testing.T) {
	provider := &fakeProvider{}
	ledger := &fakeLedger{reserveErr: quota.ErrQuotaExceeded}
	recorder := &fakeRecorder{}
	orch := newTestOrchestrator(provider, ledger, recorder, nil)

	_, err := orch.Submit(context.Background(), 1, validImageRequest())

	assert.ErrorIs(t, err, quota.ErrQuotaExceeded)
	assert.Equal(t, 0, provider.imageCalls)
	assert.Empty(t, recorder.records)
}

func TestSubmitSuccessCommitsAndRecords(t *testing.T) {
	provider := &fakeProvider{}
	ledger := &fakeLedger{}
	recorder := &fakeRecorder{}
	orch := newTestOrchestrator(provider, ledger, recorder, nil)

	req := validImageRequest()
	outcome, err := orch.Submit(context.Background(), 7, req)

	require.NoError(t, err)
	assert.Equal(t, 1, ledger.commits)
	assert.Equal(t, 0, ledger.releases)
	assert.Equal(t, []byte("png-bytes"), outcome.MediaBytes)
	assert.Equal(t, "image/png", outcome.MediaType)

	require.Len(t, recorder.records, 1)
	rec := recorder.records[0]
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, uint(7), rec.UserID)
	assert.Equal(t, req.Prompt, rec.Prompt)
	assert.Equal(t, "cinematic", rec.Style)
	assert.Equal(t, generations.KindImage, rec.Kind)
	assert.Equal(t, rec.ID+".png", rec.OutputRef)

	// style preset is folded into the provider prompt
	assert.Contains(t, provider.lastImage.StyleSuffix, "cinematic")
}

func TestSubmitProviderRejectionReleasesCredit(t *testing.T) {
	provider := &fakeProvider{errs: []error{&stability.RejectedError{StatusCode: 400, Message: "bad prompt"}}}
	ledger := &fakeLedger{}
	recorder := &fakeRecorder{}
	orch := newTestOrchestrator(provider, ledger, recorder, nil)

	_, err := orch.Submit(context.Background(), 1, validImageRequest())

	var rejected *stability.RejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, 1, ledger.releases)
	assert.Equal(t, 0, ledger.commits)
	// rejections are not retried
	assert.Equal(t, 1, provider.imageCalls)
	assert.Empty(t, recorder.records)
}

func TestSubmitRetriesTransportFailureOnce(t *testing.T) {
	provider := &fakeProvider{
		errs: []error{&stability.TransportError{Err: errors.New("connection reset")}, nil},
	}
	ledger := &fakeLedger{}
	recorder := &fakeRecorder{}
	orch := newTestOrchestrator(provider, ledger, recorder, nil)

	outcome, err := orch.Submit(context.Background(), 1, validImageRequest())

	require.NoError(t, err)
	assert.Equal(t, 2, provider.imageCalls)
	assert.Equal(t, 1, ledger.commits)
	assert.NotNil(t, outcome)
}

func TestSubmitExhaustedRetryReturnsUnavailable(t *testing.T) {
	transport := &stability.TransportError{Err: errors.New("connection refused")}
	provider := &fakeProvider{errs: []error{transport, transport}}
	ledger := &fakeLedger{}
	recorder := &fakeRecorder{}
	orch := newTestOrchestrator(provider, ledger, recorder, nil)

	_, err := orch.Submit(context.Background(), 1, validImageRequest())

	assert.ErrorIs(t, err, ErrProviderUnavailable)
	assert.Equal(t, 2, provider.imageCalls)
	assert.Equal(t, 1, ledger.releases)
	assert.Equal(t, 0, ledger.commits)
	assert.Empty(t, recorder.records)
}

func TestSubmitMalformedResponseReleasesWithoutRetry(t *testing.T) {
	provider := &fakeProvider{errs: []error{stability.ErrMalformedResponse}}
	ledger := &fakeLedger{}
	orch := newTestOrchestrator(provider, ledger, &fakeRecorder{}, nil)

	_, err := orch.Submit(context.Background(), 1, validImageRequest())

	assert.ErrorIs(t, err, stability.ErrMalformedResponse)
	assert.Equal(t, 1, provider.imageCalls)
	assert.Equal(t, 1, ledger.releases)
}

func TestSubmitRecorderFailureStillDelivers(t *testing.T) {
	provider := &fakeProvider{}
	ledger := &fakeLedger{}
	recorder := &fakeRecorder{err: errors.New("disk full")}
	orch := newTestOrchestrator(provider, ledger, recorder, nil)

	outcome, err := orch.Submit(context.Background(), 1, validImageRequest())

	require.NoError(t, err)
	assert.NotNil(t, outcome)
	assert.Equal(t, 1, ledger.commits)
}

func TestSubmitVideoRequest(t *testing.T) {
	provider := &fakeProvider{
		results: []*stability.Result{{MediaBytes: []byte("mp4-bytes"), MediaType: "video/mp4"}},
	}
	ledger := &fakeLedger{}
	recorder := &fakeRecorder{}
	orch := newTestOrchestrator(provider, ledger, recorder, nil)

	req := validVideoRequest()
	req.Prompt = "gentle waves"
	outcome, err := orch.Submit(context.Background(), 3, req)

	require.NoError(t, err)
	assert.Equal(t, 1, provider.videoCalls)
	assert.Equal(t, "video/mp4", outcome.MediaType)
	assert.Equal(t, "gentle waves", provider.lastVideo.ContextPrompt)
	assert.Equal(t, "zoom_in", provider.lastVideo.MotionStyle)

	require.Len(t, recorder.records, 1)
	assert.Equal(t, generations.KindVideo, recorder.records[0].Kind)
	assert.Equal(t, recorder.records[0].ID+".mp4", recorder.records[0].OutputRef)
}

func TestSubmitUploadsToStore(t *testing.T) {
	provider := &fakeProvider{}
	ledger := &fakeLedger{}
	recorder := &fakeRecorder{}
	store := &fakeStore{}
	orch := newTestOrchestrator(provider, ledger, recorder, store)

	_, err := orch.Submit(context.Background(), 1, validImageRequest())

	require.NoError(t, err)
	require.Len(t, recorder.records, 1)
	rec := recorder.records[0]
	assert.Equal(t, rec.ID+".png", store.saved)
	assert.Equal(t, "https://media.example.com/generations/"+rec.ID+".png", rec.OutputRef)
}

func openLedgerTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&users.User{}))
	return db
}

// A caller hanging up mid-provider-call cancels the request context. The
// refund still has to land; otherwise the reserved credit is lost for good.
func TestSubmitAbandonedRequestRefundsCredit(t *testing.T) {
	db := openLedgerTestDB(t)
	ledger := quota.NewLedger(db, nil)

	user := users.User{
		Email:            "abandoned@example.com",
		SubscriptionTier: plans.TierFree,
		CreditsRemaining: 3,
	}
	require.NoError(t, db.Create(&user).Error)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	provider := &fakeProvider{
		hook: cancel,
		errs: []error{&stability.TransportError{Err: context.Canceled}},
	}
	orch := NewOrchestrator(provider, ledger, &fakeRecorder{}, nil, nil)

	_, err := orch.Submit(ctx, user.ID, validImageRequest())
	assert.ErrorIs(t, err, ErrProviderUnavailable)

	var after users.User
	require.NoError(t, db.First(&after, user.ID).Error)
	assert.Equal(t, 3, after.CreditsRemaining)
}

func TestSubmitClientGoneAfterGenerationStillRecords(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	provider := &fakeProvider{hook: cancel}
	ledger := &fakeLedger{}
	recorder := &fakeRecorder{}
	orch := newTestOrchestrator(provider, ledger, recorder, nil)

	outcome, err := orch.Submit(ctx, 1, validImageRequest())

	require.NoError(t, err)
	assert.NotNil(t, outcome)
	assert.Equal(t, 1, ledger.commits)
	require.Len(t, recorder.records, 1)
	// the usage write ran on a context detached from the dead request
	assert.NoError(t, recorder.lastCtxErr)
}

func TestSubmitStoreFailureFallsBackToLocalRef(t *testing.T) {
	provider := &fakeProvider{}
	ledger := &fakeLedger{}
	recorder := &fakeRecorder{}
	store := &fakeStore{err: errors.New("bucket unreachable")}
	orch := newTestOrchestrator(provider, ledger, recorder, store)

	outcome, err := orch.Submit(context.Background(), 1, validImageRequest())

	require.NoError(t, err)
	assert.Equal(t, outcome.Record.ID+".png", outcome.Record.OutputRef)
}
