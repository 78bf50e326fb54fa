package observability

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	ordersdomain "github.com/averos/fleamarket/internal/domains/orders/domain"
	ordersports "github.com/averos/fleamarket/internal/domains/orders/ports"
)

const tracerName = "github.com/averos/fleamarket/internal/domains/orders/adapters/observability/service"

// Service decorates the order lifecycle service with tracing, logging, and
// metrics. The expiry engine runs through this same decorator, so automatic
// cancellations are observed with the interactive ones.
type Service struct {
	inner   ordersports.Service
	tracer  trace.Tracer
	logger  *slog.Logger
	metrics serviceMetrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithTracer(tr trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tr
	}
}

func WithMeter(m metric.Meter) Option {
	return func(s *Service) {
		s.metrics = newServiceMetrics(m)
	}
}

// New wraps the core order service.
func New(inner ordersports.Service, opts ...Option) ordersports.Service {
	s := &Service{
		inner:   inner,
		tracer:  nooptrace.NewTracerProvider().Tracer(tracerName),
		metrics: newServiceMetrics(nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.tracer == nil {
		s.tracer = nooptrace.NewTracerProvider().Tracer(tracerName)
	}
	return s
}

func (s *Service) Create(ctx context.Context, input ordersports.CreateOrderInput) (*ordersdomain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.Create", trace.WithAttributes(
		attribute.Int64("order.user_id", input.UserID),
		attribute.Int64("order.product_id", input.ProductID),
		attribute.Int("order.quantity", int(input.Quantity)),
	))
	defer span.End()

	result, err := s.inner.Create(ctx, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to create order",
			slog.Int64("product.id", input.ProductID))
	}
	s.metrics.recordCreated(ctx)
	s.logInfo(ctx, "order created",
		slog.Int64("order.id", result.ID),
		slog.String("order.no", result.OrderNo),
		slog.String("total", result.TotalPrice.String()))
	return result, nil
}

func (s *Service) Cancel(ctx context.Context, id int64) (*ordersdomain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.Cancel",
		trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	result, err := s.inner.Cancel(ctx, id)
	if err != nil {
		// Losing the race against payment confirmation is expected for
		// automated callers; keep it off the error log.
		if errors.Is(err, ordersdomain.ErrInvalidState) {
			s.logInfo(ctx, "cancel skipped, order already finalized", slog.Int64("order.id", id))
			return nil, err
		}
		return nil, s.handleError(ctx, span, err, "failed to cancel order", slog.Int64("order.id", id))
	}
	s.metrics.recordCancelled(ctx)
	s.logInfo(ctx, "order cancelled", slog.Int64("order.id", result.ID))
	return result, nil
}

func (s *Service) ConfirmPayment(ctx context.Context, id int64) (*ordersdomain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.ConfirmPayment",
		trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	result, err := s.inner.ConfirmPayment(ctx, id)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to confirm payment", slog.Int64("order.id", id))
	}
	s.metrics.recordPaid(ctx)
	s.logInfo(ctx, "payment confirmed", slog.Int64("order.id", result.ID))
	return result, nil
}

func (s *Service) Ship(ctx context.Context, id int64) (*ordersdomain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.Ship",
		trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	result, err := s.inner.Ship(ctx, id)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to ship order", slog.Int64("order.id", id))
	}
	return result, nil
}

func (s *Service) Complete(ctx context.Context, id int64) (*ordersdomain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.Complete",
		trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	result, err := s.inner.Complete(ctx, id)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to complete order", slog.Int64("order.id", id))
	}
	return result, nil
}

func (s *Service) GetByID(ctx context.Context, id int64) (*ordersdomain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.GetByID",
		trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	result, err := s.inner.GetByID(ctx, id)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to load order", slog.Int64("order.id", id))
	}
	return result, nil
}

func (s *Service) GetByOrderNo(ctx context.Context, orderNo string) (*ordersdomain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.GetByOrderNo",
		trace.WithAttributes(attribute.String("order.no", orderNo)))
	defer span.End()

	result, err := s.inner.GetByOrderNo(ctx, orderNo)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to load order", slog.String("order.no", orderNo))
	}
	return result, nil
}

func (s *Service) ListByUser(ctx context.Context, userID int64) ([]*ordersdomain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.ListByUser",
		trace.WithAttributes(attribute.Int64("user.id", userID)))
	defer span.End()

	result, err := s.inner.ListByUser(ctx, userID)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to list orders", slog.Int64("user.id", userID))
	}
	span.SetAttributes(attribute.Int("orders.count", len(result)))
	return result, nil
}

func (s *Service) logInfo(ctx context.Context, msg string, attrs ...slog.Attr) {
	if s.logger == nil {
		return
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, msg, attrs...)
}

func (s *Service) handleError(ctx context.Context, span trace.Span, err error, msg string, attrs ...slog.Attr) error {
	if span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	if s.logger != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
		s.logger.LogAttrs(ctx, slog.LevelError, msg, attrs...)
	}
	return err
}

type serviceMetrics struct {
	ordersCreated   metric.Int64Counter
	ordersCancelled metric.Int64Counter
	ordersPaid      metric.Int64Counter
}

func newServiceMetrics(m metric.Meter) serviceMetrics {
	if m == nil {
		return serviceMetrics{}
	}
	created, _ := m.Int64Counter("orders.service.orders_created",
		metric.WithDescription("Number of orders created with stock reserved"))
	cancelled, _ := m.Int64Counter("orders.service.orders_cancelled",
		metric.WithDescription("Number of orders cancelled with stock restored"))
	paid, _ := m.Int64Counter("orders.service.orders_paid",
		metric.WithDescription("Number of orders confirmed as paid"))
	return serviceMetrics{ordersCreated: created, ordersCancelled: cancelled, ordersPaid: paid}
}

func (m serviceMetrics) recordCreated(ctx context.Context) {
	if m.ordersCreated != nil {
		m.ordersCreated.Add(ctx, 1)
	}
}

func (m serviceMetrics) recordCancelled(ctx context.Context) {
	if m.ordersCancelled != nil {
		m.ordersCancelled.Add(ctx, 1)
	}
}

func (m serviceMetrics) recordPaid(ctx context.Context) {
	if m.ordersPaid != nil {
		m.ordersPaid.Add(ctx, 1)
	}
}

var _ ordersports.Service = (*Service)(nil)
