package certificates

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"certscribe/event-portal/event-portal-backend/internal/notifications"
	ws "certscribe/event-portal/event-portal-backend/internal/notifications/websocket"
	"certscribe/event-portal/event-portal-backend/internal/render"
	"certscribe/event-portal/event-portal-backend/internal/roster"
	"certscribe/event-portal/event-portal-backend/internal/session"
)

// MockMailer is a mock implementation of the notifications.Mailer interface
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) Send(ctx context.Context, email *notifications.Email) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

// MockArchiver is a mock implementation of the storage.Archiver interface
type MockArchiver struct {
	mock.Mock
}

func (m *MockArchiver) Upload(ctx context.Context, key string, body io.Reader, contentType string) error {
	args := m.Called(ctx, key, contentType)
	return args.Error(0)
}

func (m *MockArchiver) PresignedURL(ctx context.Context, key string, expiration time.Duration) (string, error) {
	args := m.Called(ctx, key, expiration)
	return args.String(0), args.Error(1)
}

// progressRecorder collects broadcast events for assertions.
type progressRecorder struct {
	mu     sync.Mutex
	events []ws.ProgressEvent
}

func (r *progressRecorder) Broadcast(event ws.ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *progressRecorder) snapshot() []ws.ProgressEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := make([]ws.ProgressEvent, len(r.events))
	copy(copied, r.events)
	return copied
}

func newTestService(t *testing.T, mailer notifications.Mailer, opts ...Option) (*Service, *session.Store) {
	t.Helper()

	renderOpts := render.DefaultOptions()
	renderOpts.DefaultEventLabel = "Spring Hackathon"
	renderer := render.NewRenderer(renderOpts)

	store := session.NewStore("Spring Hackathon", time.Hour, zap.NewNop())
	service := NewService(renderer, store, mailer, zap.NewNop(), opts...)
	return service, store
}

func TestPreview(t *testing.T) {
	service, _ := newTestService(t, nil)

	doc, err := service.Preview(context.Background(), "Alice Smith")

	require.NoError(t, err)
	assert.NotEmpty(t, doc)
}

func TestPreviewEmptyName(t *testing.T) {
	service, _ := newTestService(t, nil)

	_, err := service.Preview(context.Background(), "   ")
	assert.ErrorIs(t, err, render.ErrEmptyRecipient)
}

func TestIssue(t *testing.T) {
	service, _ := newTestService(t, nil)

	cert, doc, err := service.Issue(context.Background(), "Alice Smith")

	require.NoError(t, err)
	require.NotNil(t, cert)
	assert.NotEmpty(t, doc)
	assert.Equal(t, "Alice_Smith.pdf", cert.Filename)
	assert.Equal(t, "Spring Hackathon", cert.EventLabel)
	assert.Len(t, cert.Digest, 64)
	assert.Empty(t, cert.ArchiveKey, "no archive key without an archiver")
}

func TestIssueArchives(t *testing.T) {
	archiver := new(MockArchiver)
	archiver.On("Upload", mock.Anything, "certificates/Spring_Hackathon/Alice_Smith.pdf", "application/pdf").Return(nil)
	archiver.On("PresignedURL", mock.Anything, "certificates/Spring_Hackathon/Alice_Smith.pdf", mock.Anything).
		Return("https://archive.example.com/Alice_Smith.pdf", nil)

	service, _ := newTestService(t, nil, WithArchiver(archiver))

	cert, _, err := service.Issue(context.Background(), "Alice Smith")

	require.NoError(t, err)
	assert.Equal(t, "certificates/Spring_Hackathon/Alice_Smith.pdf", cert.ArchiveKey)
	assert.Equal(t, "https://archive.example.com/Alice_Smith.pdf", cert.ArchiveURL)
	archiver.AssertExpectations(t)
}

func TestIssueToleratesArchiveFailure(t *testing.T) {
	archiver := new(MockArchiver)
	archiver.On("Upload", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("bucket unavailable"))

	service, _ := newTestService(t, nil, WithArchiver(archiver))

	cert, doc, err := service.Issue(context.Background(), "Alice Smith")

	require.NoError(t, err, "archive failure must not fail issuance")
	assert.NotEmpty(t, doc)
	assert.Empty(t, cert.ArchiveKey)
}

func TestDeriveFilename(t *testing.T) {
	assert.Equal(t, "Alice_Smith.pdf", DeriveFilename("Alice Smith"))
	assert.Equal(t, "Bob.pdf", DeriveFilename("Bob"))
	assert.Equal(t, "Mary_Jane_Watson.pdf", DeriveFilename("  Mary  Jane\tWatson "))
}

func TestStartBatchMailerNotConfigured(t *testing.T) {
	service, store := newTestService(t, nil)
	store.SetParticipants([]roster.Participant{
		{Name: "Alice Smith", Email: "alice@example.com"},
	})

	_, _, err := service.StartBatch(context.Background())
	assert.ErrorIs(t, err, ErrMailerNotConfigured)
}

func TestStartBatchNoRecipients(t *testing.T) {
	service, store := newTestService(t, new(MockMailer))
	store.SetParticipants([]roster.Participant{{Name: "Alice Smith"}})

	_, _, err := service.StartBatch(context.Background())
	assert.ErrorIs(t, err, ErrNoRecipients)
}

func TestStartBatchDeliversToAllRecipients(t *testing.T) {
	mailer := new(MockMailer)
	mailer.On("Send", mock.Anything, mock.AnythingOfType("*notifications.Email")).Return(nil)

	progress := &progressRecorder{}
	service, store := newTestService(t, mailer, WithProgress(progress), WithWorkers(2))
	store.SetParticipants([]roster.Participant{
		{Name: "Alice Smith", Email: "alice@example.com"},
		{Name: "Bob", Email: "bob@example.com"},
		{Name: "No Email"},
	})

	batchID, total, err := service.StartBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	require.Eventually(t, func() bool {
		batch, ok := store.GetBatch(batchID)
		return ok && batch.Status == session.BatchCompleted
	}, 5*time.Second, 10*time.Millisecond)

	batch, _ := store.GetBatch(batchID)
	assert.Equal(t, 2, batch.Sent)
	assert.Equal(t, 0, batch.Failed)
	require.Len(t, batch.Results, 2)
	for _, result := range batch.Results {
		assert.True(t, result.Delivered)
		assert.NotEmpty(t, result.Filename)
		assert.NotEmpty(t, result.Digest)
	}

	events := progress.snapshot()
	require.NotEmpty(t, events)
	final := events[len(events)-1]
	assert.True(t, final.Completed)
	assert.Equal(t, 2, final.Total)

	mailer.AssertNumberOfCalls(t, "Send", 2)
}

func TestStartBatchRecordsDeliveryFailures(t *testing.T) {
	mailer := new(MockMailer)
	mailer.On("Send", mock.Anything, mock.MatchedBy(func(e *notifications.Email) bool {
		return e.To == "bob@example.com"
	})).Return(errors.New("mailbox unavailable"))
	mailer.On("Send", mock.Anything, mock.MatchedBy(func(e *notifications.Email) bool {
		return e.To == "alice@example.com"
	})).Return(nil)

	service, store := newTestService(t, mailer)
	store.SetParticipants([]roster.Participant{
		{Name: "Alice Smith", Email: "alice@example.com"},
		{Name: "Bob", Email: "bob@example.com"},
	})

	batchID, _, err := service.StartBatch(context.Background())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		batch, ok := store.GetBatch(batchID)
		return ok && batch.Status == session.BatchCompleted
	}, 5*time.Second, 10*time.Millisecond)

	batch, _ := store.GetBatch(batchID)
	assert.Equal(t, 1, batch.Sent)
	assert.Equal(t, 1, batch.Failed)
}

func TestBatchEmailContent(t *testing.T) {
	var sent *notifications.Email
	var mu sync.Mutex

	mailer := new(MockMailer)
	mailer.On("Send", mock.Anything, mock.AnythingOfType("*notifications.Email")).
		Run(func(args mock.Arguments) {
			mu.Lock()
			sent = args.Get(1).(*notifications.Email)
			mu.Unlock()
		}).Return(nil)

	service, store := newTestService(t, mailer)
	store.SetParticipants([]roster.Participant{
		{Name: "Alice Smith", Email: "alice@example.com"},
	})

	batchID, _, err := service.StartBatch(context.Background())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		batch, ok := store.GetBatch(batchID)
		return ok && batch.Status == session.BatchCompleted
	}, 5*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.NotNil(t, sent)
	assert.Equal(t, "alice@example.com", sent.To)
	assert.Contains(t, sent.Subject, "Spring Hackathon")
	assert.Contains(t, sent.Body, "Alice Smith")
	require.Len(t, sent.Attachments, 1)
	assert.Equal(t, "Alice_Smith.pdf", sent.Attachments[0].Name)
	assert.Equal(t, "application/pdf", sent.Attachments[0].ContentType)
	assert.NotEmpty(t, sent.Attachments[0].Data)
}
