package purchasing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/flaelle/flaelle/internal/inventory"
	"github.com/flaelle/flaelle/internal/shared"
	"github.com/flaelle/flaelle/jobs"
)

const (
	robeID  = "0b4b2c56-7f53-4d43-9a43-2f1f3c1e0001"
	jupeID  = "0b4b2c56-7f53-4d43-9a43-2f1f3c1e0002"
	ghostID = "0b4b2c56-7f53-4d43-9a43-2f1f3c1e0009"
)

type memoryRepo struct {
	items map[string]CatalogItem
	calls [][]string
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{items: map[string]CatalogItem{
		robeID: {ID: robeID, Name: "Robe", UnitAcquisitionCost: decimal.NewFromInt(3500)},
		jupeID: {ID: jupeID, Name: "Jupe", UnitAcquisitionCost: decimal.NewFromInt(1039)},
	}}
}

func (m *memoryRepo) CatalogItems(_ context.Context, ids []string) ([]CatalogItem, error) {
	m.calls = append(m.calls, ids)
	var out []CatalogItem
	for _, id := range ids {
		if it, ok := m.items[id]; ok {
			out = append(out, it)
		}
	}
	return out, nil
}

type fakeRenderer struct {
	html string
	err  error
}

func (f *fakeRenderer) RenderHTML(_ context.Context, html string) ([]byte, error) {
	f.html = html
	if f.err != nil {
		return nil, f.err
	}
	return []byte("%PDF-fake"), nil
}

type fakeQueue struct {
	payloads []jobs.SendEmailPayload
	err      error
}

func (f *fakeQueue) EnqueueSendEmail(_ context.Context, p jobs.SendEmailPayload) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.payloads = append(f.payloads, p)
	return &asynq.TaskInfo{ID: "task-1"}, nil
}

func fixedNow() time.Time {
	return time.Date(2026, 10, 19, 10, 15, 0, 0, time.UTC)
}

func newTestService(renderer Renderer, queue MailQueue, recipients ...string) (*Service, *memoryRepo) {
	repo := newMemoryRepo()
	return NewService(repo, ServiceConfig{
		Renderer:   renderer,
		Mail:       queue,
		Recipients: recipients,
		Now:        fixedNow,
	}), repo
}

func TestBuildPricesLinesAtCurrentCost(t *testing.T) {
	svc, repo := newTestService(nil, nil)

	order, err := svc.Build(context.Background(), OrderInput{
		Supplier: "  Friperie Lomé ",
		Lines: []LineInput{
			{ProductID: robeID, Quantity: 5},
			{ProductID: jupeID, Quantity: 154},
			{ProductID: robeID, Quantity: 1},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "BC-20261019-101500", order.Number)
	require.Equal(t, "Friperie Lomé", order.Supplier)
	require.Len(t, order.Lines, 3)
	require.True(t, order.Lines[0].Total.Equal(decimal.NewFromInt(17500)))
	require.True(t, order.Lines[1].Total.Equal(decimal.NewFromInt(160006)))
	require.True(t, order.Total.Equal(decimal.NewFromInt(17500+160006+3500)))
	require.Equal(t, 160, order.Units())
	require.Equal(t, [][]string{{robeID, jupeID}}, repo.calls)
}

func TestBuildRejectsInvalidInput(t *testing.T) {
	svc, repo := newTestService(nil, nil)

	_, err := svc.Build(context.Background(), OrderInput{})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Build(context.Background(), OrderInput{Lines: []LineInput{{ProductID: "nope", Quantity: 0}}})
	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Fields, "productId")
	require.Contains(t, verr.Fields, "quantity")
	require.Empty(t, repo.calls)
}

func TestBuildUnknownProduct(t *testing.T) {
	svc, _ := newTestService(nil, nil)

	_, err := svc.Build(context.Background(), OrderInput{Lines: []LineInput{{ProductID: ghostID, Quantity: 1}}})
	require.ErrorIs(t, err, inventory.ErrProductNotFound)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestRenderPDF(t *testing.T) {
	renderer := &fakeRenderer{}
	svc, _ := newTestService(renderer, nil)

	order, pdf, err := svc.RenderPDF(context.Background(), OrderInput{Lines: []LineInput{{ProductID: jupeID, Quantity: 154}}})
	require.NoError(t, err)
	require.Equal(t, "%PDF-fake", string(pdf))
	require.Equal(t, "bon-de-commande-BC-20261019-101500.pdf", order.Filename())
	require.Contains(t, renderer.html, "160 006 FCFA")
}

func TestRenderPDFWithoutRenderer(t *testing.T) {
	svc, _ := newTestService(nil, nil)

	_, _, err := svc.RenderPDF(context.Background(), OrderInput{Lines: []LineInput{{ProductID: jupeID, Quantity: 1}}})
	require.ErrorIs(t, err, ErrRendererUnavailable)
	require.ErrorIs(t, err, shared.ErrUnavailable)
}

func TestRenderPDFPropagatesRendererFailure(t *testing.T) {
	svc, _ := newTestService(&fakeRenderer{err: errors.New("gotenberg down")}, nil)

	_, _, err := svc.RenderPDF(context.Background(), OrderInput{Lines: []LineInput{{ProductID: jupeID, Quantity: 1}}})
	require.ErrorContains(t, err, "gotenberg down")
}

func TestEmailQueuesPDFAttachment(t *testing.T) {
	queue := &fakeQueue{}
	svc, _ := newTestService(&fakeRenderer{}, queue, "commandes@flaelle.test")

	order, err := svc.Email(context.Background(), EmailInput{
		OrderInput: OrderInput{Lines: []LineInput{{ProductID: robeID, Quantity: 5}}},
	})
	require.NoError(t, err)
	require.Len(t, queue.payloads, 1)

	p := queue.payloads[0]
	require.Equal(t, []string{"commandes@flaelle.test"}, p.To)
	require.Equal(t, "Bon de commande "+order.Number, p.Subject)
	require.Contains(t, p.Body, "17 500 FCFA")
	require.Contains(t, p.HTML, "Robe")
	require.Len(t, p.Attachments, 1)
	require.Equal(t, order.Filename(), p.Attachments[0].Filename)
	require.Equal(t, "application/pdf", p.Attachments[0].ContentType)
	require.Equal(t, []byte("%PDF-fake"), p.Attachments[0].Content)
}

func TestEmailExplicitRecipientsOverrideDefault(t *testing.T) {
	queue := &fakeQueue{}
	svc, _ := newTestService(&fakeRenderer{}, queue, "commandes@flaelle.test")

	_, err := svc.Email(context.Background(), EmailInput{
		OrderInput: OrderInput{Lines: []LineInput{{ProductID: robeID, Quantity: 1}}},
		To:         []string{"fournisseur@example.com"},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"fournisseur@example.com"}, queue.payloads[0].To)

	_, err = svc.Email(context.Background(), EmailInput{
		OrderInput: OrderInput{Lines: []LineInput{{ProductID: robeID, Quantity: 1}}},
		To:         []string{"not-an-address"},
	})
	require.ErrorIs(t, err, shared.ErrValidation)
	require.Len(t, queue.payloads, 1)
}

func TestEmailUnavailable(t *testing.T) {
	in := EmailInput{OrderInput: OrderInput{Lines: []LineInput{{ProductID: robeID, Quantity: 1}}}}

	svc, _ := newTestService(&fakeRenderer{}, nil, "commandes@flaelle.test")
	_, err := svc.Email(context.Background(), in)
	require.ErrorIs(t, err, ErrMailUnavailable)

	queue := &fakeQueue{}
	svc, _ = newTestService(&fakeRenderer{}, queue)
	_, err = svc.Email(context.Background(), in)
	require.ErrorIs(t, err, ErrMailUnavailable)
	require.Empty(t, queue.payloads)
}
