package purchasing

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"

	"github.com/flaelle/flaelle/internal/inventory"
	"github.com/flaelle/flaelle/internal/platform/validation"
	"github.com/flaelle/flaelle/internal/shared"
	"github.com/flaelle/flaelle/jobs"
)

var (
	// ErrRendererUnavailable is returned when no PDF renderer is configured.
	ErrRendererUnavailable = fmt.Errorf("pdf renderer not configured: %w", shared.ErrUnavailable)
	// ErrMailUnavailable is returned when orders cannot be e-mailed.
	ErrMailUnavailable = fmt.Errorf("order e-mail not configured: %w", shared.ErrUnavailable)
)

var validate = validation.New()

// RepositoryPort reads product pricing.
type RepositoryPort interface {
	CatalogItems(ctx context.Context, ids []string) ([]CatalogItem, error)
}

// Renderer converts HTML into PDF.
type Renderer interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

// MailQueue enqueues outgoing e-mail.
type MailQueue interface {
	EnqueueSendEmail(ctx context.Context, payload jobs.SendEmailPayload) (*asynq.TaskInfo, error)
}

// ServiceConfig carries optional collaborators.
type ServiceConfig struct {
	Renderer   Renderer
	Mail       MailQueue
	Recipients []string
	Logger     *slog.Logger
	Now        func() time.Time
}

// Service prices and delivers purchase orders.
type Service struct {
	repo       RepositoryPort
	renderer   Renderer
	mail       MailQueue
	recipients []string
	logger     *slog.Logger
	now        func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, cfg ServiceConfig) *Service {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{
		repo:       repo,
		renderer:   cfg.Renderer,
		mail:       cfg.Mail,
		recipients: cfg.Recipients,
		logger:     cfg.Logger,
		now:        cfg.Now,
	}
}

// Build prices every line at the product's current unit acquisition cost.
func (s *Service) Build(ctx context.Context, in OrderInput) (Order, error) {
	if err := validate.Struct(in); err != nil {
		return Order{}, err
	}
	ids := make([]string, 0, len(in.Lines))
	seen := make(map[string]struct{}, len(in.Lines))
	for _, l := range in.Lines {
		if _, ok := seen[l.ProductID]; ok {
			continue
		}
		seen[l.ProductID] = struct{}{}
		ids = append(ids, l.ProductID)
	}
	items, err := s.repo.CatalogItems(ctx, ids)
	if err != nil {
		return Order{}, fmt.Errorf("load products: %w", err)
	}
	byID := make(map[string]CatalogItem, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}

	issued := s.now()
	order := Order{
		Number:   "BC-" + issued.Format("20060102-150405"),
		IssuedAt: issued,
		Supplier: strings.TrimSpace(in.Supplier),
		Note:     strings.TrimSpace(in.Note),
		Lines:    make([]Line, 0, len(in.Lines)),
		Total:    decimal.Zero,
	}
	for _, l := range in.Lines {
		item, ok := byID[l.ProductID]
		if !ok {
			return Order{}, fmt.Errorf("product %s: %w", l.ProductID, inventory.ErrProductNotFound)
		}
		total := item.UnitAcquisitionCost.Mul(decimal.NewFromInt(int64(l.Quantity)))
		order.Lines = append(order.Lines, Line{
			ProductID: item.ID,
			Name:      item.Name,
			Quantity:  l.Quantity,
			UnitCost:  item.UnitAcquisitionCost,
			Total:     total,
		})
		order.Total = order.Total.Add(total)
	}
	return order, nil
}

// RenderPDF builds the order and renders it.
func (s *Service) RenderPDF(ctx context.Context, in OrderInput) (Order, []byte, error) {
	if s.renderer == nil {
		return Order{}, nil, ErrRendererUnavailable
	}
	order, err := s.Build(ctx, in)
	if err != nil {
		return Order{}, nil, err
	}
	html, err := RenderHTML(order)
	if err != nil {
		return Order{}, nil, fmt.Errorf("render order html: %w", err)
	}
	pdf, err := s.renderer.RenderHTML(ctx, html)
	if err != nil {
		return Order{}, nil, fmt.Errorf("render order pdf: %w", err)
	}
	return order, pdf, nil
}

// Email renders the order and queues it for delivery with the PDF attached.
func (s *Service) Email(ctx context.Context, in EmailInput) (Order, error) {
	if err := validate.Struct(in); err != nil {
		return Order{}, err
	}
	to := in.To
	if len(to) == 0 {
		to = s.recipients
	}
	if s.mail == nil || len(to) == 0 {
		return Order{}, ErrMailUnavailable
	}
	order, pdf, err := s.RenderPDF(ctx, in.OrderInput)
	if err != nil {
		return Order{}, err
	}
	html, err := RenderHTML(order)
	if err != nil {
		return Order{}, fmt.Errorf("render order html: %w", err)
	}
	payload := jobs.SendEmailPayload{
		To:      to,
		Subject: "Bon de commande " + order.Number,
		Body: fmt.Sprintf("Bon de commande %s: %d articles, total %s.",
			order.Number, order.Units(), FormatAmount(order.Total)),
		HTML: html,
		Attachments: []jobs.Attachment{{
			Filename:    order.Filename(),
			ContentType: "application/pdf",
			Content:     pdf,
		}},
	}
	info, err := s.mail.EnqueueSendEmail(ctx, payload)
	if err != nil {
		return Order{}, fmt.Errorf("enqueue order e-mail: %w", err)
	}
	attrs := []any{slog.String("order", order.Number), slog.Int("recipients", len(to))}
	if info != nil {
		attrs = append(attrs, slog.String("task_id", info.ID))
	}
	s.logger.Info("purchase order queued", attrs...)
	return order, nil
}
