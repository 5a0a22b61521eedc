package certificates

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"certscribe/event-portal/event-portal-backend/internal/notifications"
	ws "certscribe/event-portal/event-portal-backend/internal/notifications/websocket"
	"certscribe/event-portal/event-portal-backend/internal/roster"
	"certscribe/event-portal/event-portal-backend/internal/session"
	"certscribe/event-portal/event-portal-backend/pkg/security"
	"certscribe/event-portal/event-portal-backend/pkg/storage"
)

// ErrNoRecipients is returned when a bulk email batch is started while no
// roster participant has an email address.
var ErrNoRecipients = errors.New("roster has no participants with an email address")

// ErrMailerNotConfigured is returned when a bulk email batch is started while
// no delivery backend is configured.
var ErrMailerNotConfigured = errors.New("email delivery is not configured")

// archiveLinkTTL bounds how long a presigned archive download link stays valid.
const archiveLinkTTL = 7 * 24 * time.Hour

// Renderer produces one certificate document per call.
type Renderer interface {
	Render(recipientName, eventLabel string, watermark bool) ([]byte, error)
}

// ProgressBroadcaster pushes batch progress to subscribed clients.
type ProgressBroadcaster interface {
	Broadcast(event ws.ProgressEvent)
}

// BatchAnnouncer publishes a summary when a batch finishes.
type BatchAnnouncer interface {
	AnnounceBatchCompleted(ctx context.Context, announcement notifications.BatchAnnouncement) error
}

// Service orchestrates certificate issuance: previews, downloads, and bulk
// email batches over the session roster.
type Service struct {
	renderer Renderer
	store    *session.Store
	mailer   notifications.Mailer
	logger   *zap.Logger

	archiver  storage.Archiver
	progress  ProgressBroadcaster
	announcer BatchAnnouncer
	workers   int
}

// Option configures optional service collaborators.
type Option func(*Service)

// WithArchiver stores every finalized certificate in the archive.
func WithArchiver(archiver storage.Archiver) Option {
	return func(s *Service) { s.archiver = archiver }
}

// WithProgress pushes batch progress events to the broadcaster.
func WithProgress(progress ProgressBroadcaster) Option {
	return func(s *Service) { s.progress = progress }
}

// WithAnnouncer publishes batch completion summaries.
func WithAnnouncer(announcer BatchAnnouncer) Option {
	return func(s *Service) { s.announcer = announcer }
}

// WithWorkers sets the bulk issuance concurrency.
func WithWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workers = n
		}
	}
}

// NewService creates a new issuance service
func NewService(renderer Renderer, store *session.Store, mailer notifications.Mailer, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		renderer: renderer,
		store:    store,
		mailer:   mailer,
		logger:   logger,
		workers:  4,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Preview renders a watermarked certificate for one participant using the
// current session event label.
func (s *Service) Preview(ctx context.Context, recipientName string) ([]byte, error) {
	snapshot := s.store.Snapshot()
	return s.renderer.Render(recipientName, snapshot.EventLabel, true)
}

// Issue renders the final certificate for one participant, records its
// digest, and archives it when an archiver is configured. The document bytes
// are returned alongside its metadata.
func (s *Service) Issue(ctx context.Context, recipientName string) (*IssuedCertificate, []byte, error) {
	snapshot := s.store.Snapshot()
	return s.issue(ctx, recipientName, snapshot.EventLabel)
}

func (s *Service) issue(ctx context.Context, recipientName, eventLabel string) (*IssuedCertificate, []byte, error) {
	doc, err := s.renderer.Render(recipientName, eventLabel, false)
	if err != nil {
		return nil, nil, err
	}

	cert := &IssuedCertificate{
		RecipientName: recipientName,
		EventLabel:    eventLabel,
		Filename:      DeriveFilename(recipientName),
		Digest:        security.DocumentDigest(doc),
		IssuedAt:      time.Now(),
	}

	if s.archiver != nil {
		key := fmt.Sprintf("certificates/%s/%s", DeriveFilename(eventLabel), cert.Filename)
		if err := s.archiver.Upload(ctx, key, bytes.NewReader(doc), "application/pdf"); err != nil {
			// Archiving is best effort; the caller still gets the document.
			s.logger.Warn("Failed to archive certificate",
				zap.Error(err),
				zap.String("recipient", recipientName))
		} else {
			cert.ArchiveKey = key
			if url, urlErr := s.archiver.PresignedURL(ctx, key, archiveLinkTTL); urlErr == nil {
				cert.ArchiveURL = url
			}
		}
	}

	return cert, doc, nil
}

// StartBatch begins emailing final certificates to every roster participant
// with an email address. The session state is snapshotted up front so
// concurrent roster uploads cannot race the run. The batch executes in the
// background; its ID can be polled or watched over the progress socket.
func (s *Service) StartBatch(ctx context.Context) (uuid.UUID, int, error) {
	if s.mailer == nil {
		return uuid.Nil, 0, ErrMailerNotConfigured
	}

	snapshot := s.store.Snapshot()

	recipients := make([]roster.Participant, 0, len(snapshot.Participants))
	for _, p := range snapshot.Participants {
		if p.Email != "" {
			recipients = append(recipients, p)
		}
	}
	if len(recipients) == 0 {
		return uuid.Nil, 0, ErrNoRecipients
	}

	batchID := s.store.CreateBatch(snapshot.EventLabel, len(recipients))

	go s.runBatch(batchID, snapshot.EventLabel, recipients)

	return batchID, len(recipients), nil
}

// BatchStatus returns a copy of a batch.
func (s *Service) BatchStatus(id uuid.UUID) (session.Batch, bool) {
	return s.store.GetBatch(id)
}

// runBatch renders and emails certificates with a bounded worker pool.
func (s *Service) runBatch(batchID uuid.UUID, eventLabel string, recipients []roster.Participant) {
	ctx := context.Background()

	s.store.MarkBatchRunning(batchID)
	s.logger.Info("Issuance batch started",
		zap.String("batch_id", batchID.String()),
		zap.String("event", eventLabel),
		zap.Int("recipients", len(recipients)))

	jobs := make(chan roster.Participant)
	var wg sync.WaitGroup
	var mu sync.Mutex
	done := 0

	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range jobs {
				result := s.deliverOne(ctx, eventLabel, p)
				s.store.RecordResult(batchID, result)

				mu.Lock()
				done++
				current := done
				mu.Unlock()

				if s.progress != nil {
					s.progress.Broadcast(ws.ProgressEvent{
						BatchID:   batchID.String(),
						Recipient: p.Name,
						Delivered: result.Delivered,
						Error:     result.Error,
						Done:      current,
						Total:     len(recipients),
					})
				}
			}
		}()
	}

	for _, p := range recipients {
		jobs <- p
	}
	close(jobs)
	wg.Wait()

	batch, _ := s.store.GetBatch(batchID)
	status := session.BatchCompleted
	if batch.Sent == 0 {
		status = session.BatchFailed
	}
	s.store.CompleteBatch(batchID, status)

	if s.progress != nil {
		s.progress.Broadcast(ws.ProgressEvent{
			BatchID:   batchID.String(),
			Done:      len(recipients),
			Total:     len(recipients),
			Completed: true,
		})
	}

	if s.announcer != nil {
		err := s.announcer.AnnounceBatchCompleted(ctx, notifications.BatchAnnouncement{
			BatchID:    batchID.String(),
			EventLabel: eventLabel,
			Total:      batch.Total,
			Sent:       batch.Sent,
			Failed:     batch.Failed,
		})
		if err != nil {
			s.logger.Warn("Failed to announce batch completion", zap.Error(err))
		}
	}

	s.logger.Info("Issuance batch finished",
		zap.String("batch_id", batchID.String()),
		zap.Int("sent", batch.Sent),
		zap.Int("failed", batch.Failed))
}

// deliverOne issues and emails a single certificate. A delivery failure is
// recorded against the recipient without aborting the batch; the rendered
// document and its digest are retained regardless of the email outcome.
func (s *Service) deliverOne(ctx context.Context, eventLabel string, p roster.Participant) session.RecipientResult {
	result := session.RecipientResult{
		Name:  p.Name,
		Email: p.Email,
	}

	cert, doc, err := s.issue(ctx, p.Name, eventLabel)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Filename = cert.Filename
	result.Digest = cert.Digest

	email := &notifications.Email{
		To:      p.Email,
		Subject: fmt.Sprintf("Your certificate for %s", cert.EventLabel),
		Body: fmt.Sprintf(
			"Dear %s,\n\nThank you for participating in %s. Your certificate of participation is attached.\n\nBest regards,\nThe Event Team\n",
			p.Name, cert.EventLabel),
		Attachments: []notifications.Attachment{
			{Name: cert.Filename, Data: doc, ContentType: "application/pdf"},
		},
	}

	if err := s.mailer.Send(ctx, email); err != nil {
		result.Error = err.Error()
		return result
	}

	result.Delivered = true
	return result
}
