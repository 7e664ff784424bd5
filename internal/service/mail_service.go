package service

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/learnpath-api/pkg/jobs"
	"github.com/noah-isme/learnpath-api/pkg/mailer"
)

// JobTypeMail is the job type handled by MailService.Handle.
const JobTypeMail = "mail.send"

// MailJob is the payload of a queued email.
type MailJob struct {
	Template string
	To       mail.Address
	Data     map[string]string
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// MailService renders and delivers transactional email on the job queue.
type MailService struct {
	queue    jobEnqueuer
	renderer *mailer.Renderer
	sender   mailer.Sender
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewMailService constructs the mail service. With a nil queue, Notify
// delivers synchronously.
func NewMailService(queue jobEnqueuer, renderer *mailer.Renderer, sender mailer.Sender, metrics *MetricsService, logger *zap.Logger) *MailService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if renderer == nil {
		renderer = mailer.NewRenderer()
	}
	return &MailService{queue: queue, renderer: renderer, sender: sender, metrics: metrics, logger: logger}
}

// SetQueue attaches the queue once it has been built around Handle.
func (s *MailService) SetQueue(queue jobEnqueuer) {
	s.queue = queue
}

// Notify queues template for delivery to one recipient.
func (s *MailService) Notify(ctx context.Context, template string, to mail.Address, data map[string]string) error {
	job := MailJob{Template: template, To: to, Data: data}
	if s.queue == nil {
		return s.deliver(ctx, job)
	}
	return s.queue.Enqueue(jobs.Job{ID: uuid.NewString(), Type: JobTypeMail, Payload: job})
}

// Handle is the queue handler for JobTypeMail.
func (s *MailService) Handle(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(MailJob)
	if !ok {
		return fmt.Errorf("%w: unexpected mail payload %T", jobs.ErrPermanent, job.Payload)
	}
	return s.deliver(ctx, payload)
}

func (s *MailService) deliver(ctx context.Context, job MailJob) error {
	msg, err := s.renderer.Render(job.Template, job.To, job.Data)
	if err != nil {
		s.metrics.RecordMail(job.Template, err)
		return fmt.Errorf("%w: %v", jobs.ErrPermanent, err)
	}
	err = s.sender.Send(ctx, msg)
	s.metrics.RecordMail(job.Template, err)
	if err != nil {
		s.logger.Warn("mail delivery failed", zap.String("template", job.Template), zap.String("to", job.To.Address), zap.Error(err))
		return err
	}
	return nil
}
