package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexus-chapter/backend/pkg/queue"
)

type fakeSender struct {
	sent []queue.EmailPayload
	err  error
}

func (s *fakeSender) Send(to, subject, htmlBody, textBody string) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, queue.EmailPayload{
		RecipientEmail: to,
		Subject:        subject,
		BodyHTML:       htmlBody,
		BodyText:       textBody,
	})
	return nil
}

func emailJob(t *testing.T, payload queue.EmailPayload) *queue.Job {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return &queue.Job{ID: "job-1", Type: queue.JobTypeEmail, Payload: raw}
}

func TestProcessSendsEmail(t *testing.T) {
	sender := &fakeSender{}
	p := NewEmailProcessor(sender, nil, nil)

	job := emailJob(t, queue.EmailPayload{
		RecipientEmail: "student@example.com",
		Subject:        "Your verification code",
		BodyHTML:       "<p>123456</p>",
		BodyText:       "123456",
	})
	require.NoError(t, p.Process(context.Background(), job))

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "student@example.com", sender.sent[0].RecipientEmail)
	assert.Equal(t, "Your verification code", sender.sent[0].Subject)
}

func TestProcessRejectsUnknownJobType(t *testing.T) {
	sender := &fakeSender{}
	p := NewEmailProcessor(sender, nil, nil)

	err := p.Process(context.Background(), &queue.Job{ID: "job-2", Type: "video-transcode"})
	require.Error(t, err)
	assert.Empty(t, sender.sent)
}

func TestProcessRejectsMalformedPayload(t *testing.T) {
	sender := &fakeSender{}
	p := NewEmailProcessor(sender, nil, nil)

	err := p.Process(context.Background(), &queue.Job{ID: "job-3", Type: queue.JobTypeEmail, Payload: []byte("{")})
	require.Error(t, err)
	assert.Empty(t, sender.sent)
}

func TestProcessPropagatesSendFailure(t *testing.T) {
	sender := &fakeSender{err: errors.New("smtp down")}
	p := NewEmailProcessor(sender, nil, nil)

	job := emailJob(t, queue.EmailPayload{RecipientEmail: "x@example.com"})
	err := p.Process(context.Background(), job)
	require.ErrorContains(t, err, "smtp down")
}
