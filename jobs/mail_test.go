package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/flaelle/flaelle/internal/jobs"
)

type recordingMailer struct {
	sent []SendEmailPayload
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg SendEmailPayload) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func samplePayload() SendEmailPayload {
	return SendEmailPayload{
		To:      []string{"commandes@flaelle.test"},
		Subject: "Bon de commande BC-1",
		Body:    "total 17 500 FCFA",
		HTML:    "<p>total</p>",
		Attachments: []Attachment{{
			Filename:    "bon-de-commande-BC-1.pdf",
			ContentType: "application/pdf",
			Content:     []byte("%PDF-1.7"),
		}},
	}
}

func TestNewSendEmailTask(t *testing.T) {
	task, err := NewSendEmailTask(samplePayload())
	require.NoError(t, err)
	require.Equal(t, TaskTypeSendEmail, task.Type())

	var decoded SendEmailPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &decoded))
	require.Equal(t, []byte("%PDF-1.7"), decoded.Attachments[0].Content)

	_, err = NewSendEmailTask(SendEmailPayload{Subject: "x"})
	require.Error(t, err)
	_, err = NewSendEmailTask(SendEmailPayload{To: []string{" "}})
	require.Error(t, err)
}

func TestBuildEmail(t *testing.T) {
	e, err := buildEmail("Flaelle <no-reply@flaelle.test>", samplePayload())
	require.NoError(t, err)
	require.Equal(t, "Flaelle <no-reply@flaelle.test>", e.From)
	require.Equal(t, []string{"commandes@flaelle.test"}, e.To)
	require.Equal(t, []byte("<p>total</p>"), e.HTML)
	require.Len(t, e.Attachments, 1)
	require.Equal(t, "bon-de-commande-BC-1.pdf", e.Attachments[0].Filename)

	raw, err := e.Bytes()
	require.NoError(t, err)
	require.Contains(t, string(raw), "Subject: Bon de commande BC-1")
}

func TestMailJobHandle(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(reg)
	mailer := &recordingMailer{}
	job := NewMailJob(mailer, nil, metrics)

	task, err := NewSendEmailTask(samplePayload())
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.Len(t, mailer.sent, 1)
	require.Equal(t, "Bon de commande BC-1", mailer.sent[0].Subject)

	mailer.err = errors.New("smtp down")
	err = job.Handle(context.Background(), task)
	require.ErrorContains(t, err, "smtp down")
	require.False(t, errors.Is(err, asynq.SkipRetry))

	err = job.Handle(context.Background(), asynq.NewTask(TaskTypeSendEmail, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)

	count, err := testutil.GatherAndCount(reg, "flaelle_jobs_failures_total")
	require.NoError(t, err)
	require.Equal(t, 1, count)
}
