package payments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/internal/repo"
	pkgauth "github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/mercadopago"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
)

// Service coordinates local orders and payments with the external gateways.
type Service interface {
	CreatePayment(ctx context.Context, actor pkgauth.Actor, req CreatePaymentRequest, idempotencyKey string) (*CreatePaymentResult, error)
	HandleWebhook(ctx context.Context, in WebhookInput) (*ReconcileResult, error)
	Reconcile(ctx context.Context, gateway enums.PaymentGateway, gatewayPaymentID, source string) (*ReconcileResult, error)
	SyncPending(ctx context.Context, cutoff time.Time, limit int) (SyncSummary, error)
	ListGatewayMethods(ctx context.Context) ([]mercadopago.PaymentMethod, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type userLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type addressLoader interface {
	FindPrimaryByUser(ctx context.Context, userID uuid.UUID) (*models.PrimaryAddress, error)
}

type methodLister interface {
	ListMethods(ctx context.Context) ([]mercadopago.PaymentMethod, error)
}

type eventGuard interface {
	CheckAndMark(ctx context.Context, scope, eventID string) (bool, error)
	Release(ctx context.Context, scope, eventID string) error
}

type ServiceParams struct {
	DB                 txRunner
	Repo               *Repository
	Orders             *orders.Repository
	Products           *products.Repository
	Users              userLoader
	Addresses          addressLoader
	Outbox             outbox.Emitter
	Gateways           []Gateway
	Methods            methodLister
	Guard              eventGuard
	Metrics            *metrics.PaymentMetrics
	Logger             *logger.Logger
	DefaultShippingFee decimal.Decimal
	SquareSignatureKey string
	SquareWebhookURL   string
	Now                func() time.Time
}

type service struct {
	db          txRunner
	repo        *Repository
	orders      *orders.Repository
	products    *products.Repository
	users       userLoader
	addresses   addressLoader
	outbox      outbox.Emitter
	gateways    map[enums.PaymentGateway]Gateway
	methods     methodLister
	guard       eventGuard
	metrics     *metrics.PaymentMetrics
	logg        *logger.Logger
	shippingFee decimal.Decimal
	squareKey   string
	squareURL   string
	now         func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.DB == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Repo == nil:
		return nil, fmt.Errorf("payment repository required")
	case params.Orders == nil:
		return nil, fmt.Errorf("order repository required")
	case params.Products == nil:
		return nil, fmt.Errorf("product repository required")
	case params.Users == nil:
		return nil, fmt.Errorf("user loader required")
	case params.Addresses == nil:
		return nil, fmt.Errorf("address loader required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox emitter required")
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	gateways := make(map[enums.PaymentGateway]Gateway, len(params.Gateways))
	for _, gw := range params.Gateways {
		if gw != nil {
			gateways[gw.Name()] = gw
		}
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		db:          params.DB,
		repo:        params.Repo,
		orders:      params.Orders,
		products:    params.Products,
		users:       params.Users,
		addresses:   params.Addresses,
		outbox:      params.Outbox,
		gateways:    gateways,
		methods:     params.Methods,
		guard:       params.Guard,
		metrics:     params.Metrics,
		logg:        params.Logger,
		shippingFee: params.DefaultShippingFee,
		squareKey:   params.SquareSignatureKey,
		squareURL:   params.SquareWebhookURL,
		now:         now,
	}, nil
}

// CreatePayment persists the order and a pending payment in one transaction,
// then asks the gateway to collect. A gateway failure leaves both rows
// pending without a gateway id.
func (s *service) CreatePayment(ctx context.Context, actor pkgauth.Actor, req CreatePaymentRequest, idempotencyKey string) (*CreatePaymentResult, error) {
	userID := actor.UserID
	if req.UserID != nil && *req.UserID != uuid.Nil {
		userID = *req.UserID
	}
	if !actor.CanActOn(userID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot pay for another user")
	}
	if !req.Method.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "unsupported payment method %q", req.Method)
	}
	if req.Method.RequiresCardToken() && strings.TrimSpace(req.CardToken) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "token_cartao is required for card payments")
	}
	if req.Method.RequiresCardBrand() && strings.TrimSpace(req.CardBrand) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bandeira is required for card payments")
	}
	gateway, ok := s.gateways[req.Method.Gateway()]
	if !ok {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "gateway %s is not configured", req.Method.Gateway())
	}
	shippingFee := s.shippingFee
	if req.ShippingFee != nil {
		shippingFee = *req.ShippingFee
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	first, last := splitName(user.Name)

	var billing *PayerAddress
	if req.Method == enums.PaymentMethodTypeBoleto {
		if last == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "boleto requires the payer's full name")
		}
		if billing, err = s.billingAddress(ctx, userID); err != nil {
			return nil, err
		}
	}

	var (
		order   *models.Order
		payment *models.Payment
	)
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := ensurePaymentMethod(ctx, tx, req.PaymentMethodID); err != nil {
			return err
		}

		var err error
		order, err = orders.Assemble(ctx, s.products.WithTx(tx), userID, req.Products, shippingFee)
		if err != nil {
			return err
		}
		if err := s.orders.WithTx(tx).Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		payment = &models.Payment{
			OrderID:         order.ID,
			UserID:          userID,
			Gateway:         gateway.Name(),
			Status:          enums.PaymentStatusPending,
			Method:          req.Method,
			PaymentMethodID: req.PaymentMethodID,
			Amount:          order.Total,
			IsActive:        true,
			Products:        make([]models.PaymentProduct, 0, len(order.Lines)),
		}
		for _, line := range order.Lines {
			payment.Products = append(payment.Products, models.PaymentProduct{ProductID: line.ProductID, Quantity: line.Quantity})
		}
		if err := s.repo.WithTx(tx).Create(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Source: "api"},
			Data:          orderCreatedPayload(order, payment),
		})
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"order_id":   order.ID.String(),
		"payment_id": payment.ID.String(),
		"gateway":    gateway.Name().String(),
	})

	key := strings.TrimSpace(idempotencyKey)
	if key == "" {
		key = payment.ID.String()
	}
	payerEmail := user.Email
	if strings.TrimSpace(req.PayerEmail) != "" {
		payerEmail = strings.TrimSpace(req.PayerEmail)
	}
	payerCPF := req.PayerCPF
	if payerCPF == "" && user.CPF != nil {
		payerCPF = *user.CPF
	}

	remote, err := gateway.Charge(ctx, Charge{
		Amount:            order.Total,
		Description:       "Pagamento ordem " + order.ID.String(),
		ExternalReference: payment.ID.String(),
		Method:            req.Method,
		CardToken:         req.CardToken,
		CardBrand:         strings.ToLower(strings.TrimSpace(req.CardBrand)),
		Installments:      req.Installments,
		IssuerID:          req.IssuerID,
		IdempotencyKey:    key,
		Payer:             Payer{Email: payerEmail, FirstName: first, LastName: last, CPF: payerCPF, Address: billing},
	})
	if err != nil {
		s.metrics.IncGatewayFailure(gateway.Name().String())
		s.logg.Error(ctx, "payment.gateway_charge_failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "gateway rejected payment").
			WithDetails(map[string]any{"ordem_id": order.ID, "pagamento_id": payment.ID})
	}
	s.metrics.IncCreated(gateway.Name().String(), req.Method.String())

	if _, err := s.apply(ctx, gateway.Name(), payment.ID, remote, SourceCheckout); err != nil {
		return nil, err
	}

	stored, err := s.repo.FindByID(ctx, payment.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload payment")
	}
	storedOrder, err := s.orders.FindByID(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
	}
	s.logg.Info(ctx, "payment.created")
	return &CreatePaymentResult{Order: storedOrder, Payment: stored, Gateway: remote}, nil
}

// Reconcile fetches the gateway payment and mirrors its status locally.
// Payments the gateway does not know, or whose reference is not a local
// payment, are ignored.
func (s *service) Reconcile(ctx context.Context, gatewayName enums.PaymentGateway, gatewayPaymentID, source string) (*ReconcileResult, error) {
	gateway, ok := s.gateways[gatewayName]
	if !ok {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "gateway %s is not configured", gatewayName)
	}
	ctx = s.logg.WithGateway(ctx, gatewayName.String())

	remote, err := gateway.Fetch(ctx, gatewayPaymentID)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) || pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			return s.ignored(ctx, gatewayName, source, "gateway payment not found"), nil
		}
		s.metrics.IncReconcile(gatewayName.String(), source, metrics.WebhookFailed)
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "fetch gateway payment")
	}

	localID, err := uuid.Parse(strings.TrimSpace(remote.ExternalReference))
	if err != nil {
		return s.ignored(ctx, gatewayName, source, "external reference is not a local payment"), nil
	}
	return s.apply(ctx, gatewayName, localID, remote, source)
}

func (s *service) SyncPending(ctx context.Context, cutoff time.Time, limit int) (SyncSummary, error) {
	var summary SyncSummary
	pending, err := s.repo.ListStalePending(ctx, cutoff, limit)
	if err != nil {
		return summary, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pending payments")
	}

	var errs error
	for _, payment := range pending {
		summary.Checked++
		if payment.GatewayPaymentID == nil {
			continue
		}
		result, err := s.Reconcile(ctx, payment.Gateway, *payment.GatewayPaymentID, SourceSync)
		if err != nil {
			summary.Failed++
			errs = multierr.Append(errs, fmt.Errorf("payment %s: %w", payment.ID, err))
			continue
		}
		switch result.Outcome {
		case metrics.WebhookApplied:
			summary.Applied++
		case metrics.WebhookUnchanged:
			summary.Unchanged++
		default:
			summary.Ignored++
		}
	}
	return summary, errs
}

func (s *service) ListGatewayMethods(ctx context.Context) ([]mercadopago.PaymentMethod, error) {
	if s.methods == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "mercado pago is not configured")
	}
	methods, err := s.methods.ListMethods(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "list gateway payment methods")
	}
	return methods, nil
}

// apply overwrites the local payment with the gateway view. Events are
// queued only when the status actually changes, so replays are no-ops.
func (s *service) apply(ctx context.Context, gatewayName enums.PaymentGateway, paymentID uuid.UUID, remote *GatewayPayment, source string) (*ReconcileResult, error) {
	ctx = s.logg.WithPaymentID(ctx, paymentID.String())
	if remote == nil || remote.Status == "" {
		return s.ignored(ctx, gatewayName, source, "gateway returned no status"), nil
	}

	result := &ReconcileResult{Outcome: metrics.WebhookUnchanged, PaymentID: &paymentID, Status: remote.Status}
	ignored := false
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		paymentRepo := s.repo.WithTx(tx)
		payment, err := paymentRepo.FindByIDForUpdate(ctx, paymentID)
		if err != nil {
			if repo.IsNotFound(err) {
				ignored = true
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock payment")
		}
		if payment.Gateway != gatewayName {
			ignored = true
			return nil
		}

		previous := payment.Status
		statusChanged := previous != remote.Status
		idChanged := remote.ID != "" && (payment.GatewayPaymentID == nil || *payment.GatewayPaymentID != remote.ID)
		if !statusChanged && !idChanged {
			return nil
		}

		if idChanged {
			id := remote.ID
			payment.GatewayPaymentID = &id
		}
		payment.Status = remote.Status
		if detail := strings.TrimSpace(remote.StatusDetail); detail != "" {
			payment.StatusDetail = &detail
		}
		approved := remote.Status.IsApprovedFor(gatewayName)
		if approved && payment.PaidAt == nil {
			paidAt := s.now().UTC()
			if remote.ApprovedAt != nil {
				paidAt = remote.ApprovedAt.UTC()
			}
			payment.PaidAt = &paidAt
		}
		if err := paymentRepo.UpdateGatewayState(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment")
		}
		result.Outcome = metrics.WebhookApplied

		if statusChanged {
			err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventPaymentStatusChanged,
				AggregateType: enums.AggregatePayment,
				AggregateID:   payment.ID,
				Data: payloads.PaymentStatusChangedEvent{
					PaymentID:        payment.ID,
					OrderID:          payment.OrderID,
					Gateway:          gatewayName,
					GatewayPaymentID: remote.ID,
					PreviousStatus:   previous,
					Status:           remote.Status,
				},
			})
			if err != nil {
				return err
			}
		}

		if approved {
			return s.finalizeOrder(ctx, tx, payment)
		}
		return nil
	})
	if err != nil {
		s.metrics.IncReconcile(gatewayName.String(), source, metrics.WebhookFailed)
		s.logg.Error(ctx, "payment.reconcile_failed", err)
		return nil, err
	}
	if ignored {
		return s.ignored(ctx, gatewayName, source, "payment not found locally"), nil
	}

	s.metrics.IncReconcile(gatewayName.String(), source, result.Outcome)
	if result.Outcome == metrics.WebhookApplied {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{"status": remote.Status.String(), "source": source}), "payment.reconciled")
	}
	return result, nil
}

func (s *service) finalizeOrder(ctx context.Context, tx *gorm.DB, payment *models.Payment) error {
	orderRepo := s.orders.WithTx(tx)
	finalizedAt := s.now().UTC()
	if payment.PaidAt != nil {
		finalizedAt = *payment.PaidAt
	}
	changed, err := orderRepo.Finalize(ctx, payment.OrderID, finalizedAt)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "finalize order")
	}
	if !changed {
		return nil
	}
	order, err := orderRepo.FindByID(ctx, payment.OrderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderFinalized,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Data: payloads.OrderFinalizedEvent{
			OrderID:     order.ID,
			PaymentID:   payment.ID,
			UserID:      order.UserID,
			Total:       order.Total,
			FinalizedAt: finalizedAt,
		},
	})
}

func (s *service) ignored(ctx context.Context, gateway enums.PaymentGateway, source, reason string) *ReconcileResult {
	s.metrics.IncReconcile(gateway.String(), source, metrics.WebhookIgnored)
	s.logg.Warn(s.logg.WithField(ctx, "reason", reason), "payment.reconcile_ignored")
	return &ReconcileResult{Outcome: metrics.WebhookIgnored}
}

func ensurePaymentMethod(ctx context.Context, tx *gorm.DB, id *uuid.UUID) error {
	if id == nil || *id == uuid.Nil {
		return nil
	}
	var method models.PaymentMethod
	if err := tx.WithContext(ctx).First(&method, "id = ?", *id).Error; err != nil {
		if repo.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "payment method not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment method")
	}
	if !method.IsActive {
		return pkgerrors.New(pkgerrors.CodeInvalidState, "payment method is inactive")
	}
	return nil
}

func orderCreatedPayload(order *models.Order, payment *models.Payment) payloads.OrderCreatedEvent {
	lines := make([]payloads.OrderLine, 0, len(order.Lines))
	for _, line := range order.Lines {
		lines = append(lines, payloads.OrderLine{ProductID: line.ProductID, Quantity: line.Quantity, UnitPrice: line.UnitPrice})
	}
	return payloads.OrderCreatedEvent{
		OrderID:   order.ID,
		PaymentID: payment.ID,
		UserID:    order.UserID,
		Total:     order.Total,
		Method:    payment.Method,
		Lines:     lines,
	}
}

// billingAddress resolves the user's primary address for boleto slips.
func (s *service) billingAddress(ctx context.Context, userID uuid.UUID) (*PayerAddress, error) {
	primary, err := s.addresses.FindPrimaryByUser(ctx, userID)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "boleto requires a primary address")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load primary address")
	}
	if primary.Address == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "boleto requires a primary address")
	}
	a := primary.Address
	return &PayerAddress{
		PostalCode:   a.PostalCode,
		Street:       a.Street,
		Number:       a.Number,
		Neighborhood: a.Neighborhood,
		City:         a.City,
		State:        a.State,
	}, nil
}

func splitName(name string) (string, string) {
	parts := strings.Fields(name)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}
