package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"delegate-portal/internal/models"
	"delegate-portal/internal/payment"
	"delegate-portal/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const (
	ActorPayHereWebhook = "payhere-webhook"
	ActorGatewayWebhook = "gateway-webhook"
)

// PaymentOutcome describes what a gateway notification did. Applied is false
// when the order already had the mapped status or the transition was refused.
type PaymentOutcome struct {
	Record  *models.PaymentRecord
	Order   *models.Order
	From    models.OrderStatus
	Applied bool
}

type PaymentService interface {
	HandlePayHere(ctx context.Context, n payment.PayHereNotification) (*PaymentOutcome, error)
	HandleCyberSource(ctx context.Context, fields map[string]string) (*PaymentOutcome, error)
}

// DelegateFee is the flat registration charge a PayHere notification must
// carry before it marks a delegate as paid. A zero Amount means no
// notification is ever accepted as the fee.
type DelegateFee struct {
	Amount   decimal.Decimal
	Currency string
}

type PaymentOptions struct {
	DelegateFee DelegateFee
}

type paymentService struct {
	repo        *repository.Repository
	payhere     *payment.PayHere
	cybersource *payment.CyberSource
	events      EventBus
	log         *zap.Logger
	fee         DelegateFee
	now         func() time.Time
}

func NewPaymentService(repo *repository.Repository, payhere *payment.PayHere, cybersource *payment.CyberSource, events EventBus, log *zap.Logger, opts PaymentOptions) PaymentService {
	return &paymentService{
		repo:        repo,
		payhere:     payhere,
		cybersource: cybersource,
		events:      events,
		log:         log,
		fee:         opts.DelegateFee,
		now:         time.Now,
	}
}

func (s *paymentService) HandlePayHere(ctx context.Context, n payment.PayHereNotification) (*PaymentOutcome, error) {
	if err := s.payhere.Verify(n); err != nil {
		s.log.Warn("payhere notification rejected", zap.String("order_id", n.OrderID), zap.Error(err))
		return nil, ErrSignatureMismatch
	}

	amount, err := parseAmount(n.Amount)
	if err != nil {
		return nil, err
	}

	record := &models.PaymentRecord{
		Gateway:          models.GatewayPayHere,
		Purpose:          models.PurposeOrder,
		GatewayPaymentID: n.PaymentID,
		Amount:           amount,
		Currency:         n.Currency,
		StatusCode:       n.StatusCode,
		Method:           optString(n.Method),
		StatusMessage:    optString(n.StatusMessage),
		Custom1:          optString(n.Custom1),
		Custom2:          optString(n.Custom2),
		RawPayload:       rawPayload(n.Fields()),
	}

	if email, ok := payment.DelegateFeeEmail(n.Custom1); ok {
		return s.settleDelegateFee(ctx, record, n.OrderID, email)
	}

	orderID, err := uuid.Parse(n.OrderID)
	if err != nil {
		return nil, ErrOrderNotFound
	}
	return s.settleOrder(ctx, orderID, payment.MapPayHereStatus(n.StatusCode), ActorPayHereWebhook, record)
}

func (s *paymentService) HandleCyberSource(ctx context.Context, fields map[string]string) (*PaymentOutcome, error) {
	if err := s.cybersource.Verify(fields); err != nil {
		s.log.Warn("cybersource notification rejected", zap.String("reference_number", fields["reference_number"]), zap.Error(err))
		return nil, ErrSignatureMismatch
	}

	amount, err := parseAmount(fields["amount"])
	if err != nil {
		return nil, err
	}

	orderID, err := uuid.Parse(fields["reference_number"])
	if err != nil {
		return nil, ErrOrderNotFound
	}

	record := &models.PaymentRecord{
		Gateway:          models.GatewayCyberSource,
		Purpose:          models.PurposeOrder,
		GatewayPaymentID: fields["request_id"],
		Amount:           amount,
		Currency:         fields["currency"],
		StatusCode:       fields["decision"],
		ReasonCode:       optString(fields["reason_code"]),
		RawPayload:       rawPayload(fields),
	}
	if msg := fields["message"]; msg != "" {
		record.StatusMessage = optString(msg)
	}
	if method := fields["card_type_name"]; method != "" {
		record.Method = optString(method)
	}

	return s.settleOrder(ctx, orderID, payment.MapCyberSourceDecision(fields["decision"]), ActorGatewayWebhook, record)
}

// settleOrder applies the mapped status and appends the record in one
// transaction. A transition the graph refuses is acknowledged: the record is
// still stored and the order keeps its status.
func (s *paymentService) settleOrder(ctx context.Context, orderID uuid.UUID, to models.OrderStatus, actor string, record *models.PaymentRecord) (*PaymentOutcome, error) {
	now := s.now()
	out := &PaymentOutcome{Record: record}

	err := s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		ord, err := tx.Orders.GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		if ord == nil {
			return ErrOrderNotFound
		}

		from, changed, err := applyStatus(ctx, tx.Orders, ord, to, TriggerGateway, actor, now, false)
		switch {
		case errors.Is(err, ErrInvalidTransition):
			s.log.Warn("gateway transition refused",
				zap.String("order_id", orderID.String()),
				zap.String("from", string(from)),
				zap.String("to", string(to)),
				zap.String("actor", actor),
			)
		case err != nil:
			return err
		}

		id := ord.ID
		uid := ord.UserID
		record.OrderID = &id
		record.UserID = &uid
		record.CreatedAt = now
		if err := tx.Payments.Create(ctx, record); err != nil {
			return fmt.Errorf("append payment record: %w", err)
		}

		out.Order = ord
		out.From = from
		out.Applied = changed
		return nil
	})
	if err != nil {
		s.log.Error("payment settlement failed",
			zap.String("gateway", string(record.Gateway)),
			zap.String("order_id", orderID.String()),
			zap.Error(err),
		)
		return nil, err
	}

	s.log.Info("payment recorded",
		zap.String("gateway", string(record.Gateway)),
		zap.String("order_id", orderID.String()),
		zap.String("status_code", record.StatusCode),
		zap.String("status", string(out.Order.Status)),
		zap.Bool("applied", out.Applied),
	)

	if out.Applied {
		publishStatusChanged(ctx, s.events, s.log, out.Order, out.From, now)
	}
	s.publishRecorded(ctx, record)
	return out, nil
}

func (s *paymentService) settleDelegateFee(ctx context.Context, record *models.PaymentRecord, orderRef, email string) (*PaymentOutcome, error) {
	now := s.now()
	record.Purpose = models.PurposeDelegateFee
	applied := false

	err := s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		user, err := tx.Users.GetByEmail(ctx, email)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrUserNotFound
		}

		reason := ""
		if record.StatusCode == payment.PayHereSuccess {
			// custom_1 is not covered by md5sig, so the signed fields must
			// stand on their own as a fee payment
			if reason, err = s.refuseFee(ctx, tx, record, orderRef, user.ID); err != nil {
				return err
			}
		}

		uid := user.ID
		record.UserID = &uid
		record.CreatedAt = now
		if err := tx.Payments.Create(ctx, record); err != nil {
			return fmt.Errorf("append payment record: %w", err)
		}

		if record.StatusCode != payment.PayHereSuccess {
			return nil
		}
		if reason != "" {
			s.log.Warn("delegate fee notification not applied",
				zap.String("reason", reason),
				zap.String("order_id", orderRef),
				zap.String("payment_id", record.GatewayPaymentID),
				zap.String("email", email),
			)
			return nil
		}
		applied = true
		return tx.Users.MarkDelegateFeePaid(ctx, user.ID, now)
	})
	if err != nil {
		s.log.Error("delegate fee settlement failed", zap.String("email", email), zap.Error(err))
		return nil, err
	}

	s.log.Info("delegate fee recorded",
		zap.String("user_id", record.UserID.String()),
		zap.String("status_code", record.StatusCode),
	)
	s.publishRecorded(ctx, record)
	return &PaymentOutcome{Record: record, Applied: applied}, nil
}

// refuseFee returns why a successful notification cannot settle userID's
// fee, or "" when it can. It runs before record is appended.
func (s *paymentService) refuseFee(ctx context.Context, tx *repository.Repository, record *models.PaymentRecord, orderRef string, userID uuid.UUID) (string, error) {
	if !s.fee.Amount.IsPositive() {
		return "fee amount not configured", nil
	}
	if !record.Amount.Equal(s.fee.Amount) {
		return "amount does not match fee", nil
	}
	if s.fee.Currency != "" && !strings.EqualFold(record.Currency, s.fee.Currency) {
		return "currency does not match fee", nil
	}

	if oid, err := uuid.Parse(orderRef); err == nil {
		isOrder, err := tx.Orders.Exists(ctx, oid)
		if err != nil {
			return "", err
		}
		if isOrder {
			return "order_id belongs to a merchandise order", nil
		}
	}

	prior, err := tx.Payments.ListByGatewayPaymentID(ctx, models.GatewayPayHere, record.GatewayPaymentID)
	if err != nil {
		return "", err
	}
	// the first successful fee record for a payment id owns it
	for _, p := range prior {
		if p.Purpose != models.PurposeDelegateFee || p.StatusCode != payment.PayHereSuccess || p.UserID == nil {
			continue
		}
		if *p.UserID != userID {
			return "payment already settled another delegate", nil
		}
		break
	}
	return "", nil
}

func (s *paymentService) publishRecorded(ctx context.Context, r *models.PaymentRecord) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishPaymentRecorded(ctx, PaymentRecordedEvent{
		RecordID:   r.ID,
		Gateway:    r.Gateway,
		Purpose:    r.Purpose,
		OrderID:    r.OrderID,
		UserID:     r.UserID,
		Amount:     r.Amount,
		Currency:   r.Currency,
		StatusCode: r.StatusCode,
		RecordedAt: r.CreatedAt,
	}); err != nil {
		s.log.Warn("publish payment recorded failed", zap.String("record_id", r.ID.String()), zap.Error(err))
	}
}

// parseAmount accepts an empty amount as zero; gateways omit it on some
// declines.
func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return d, nil
}

func rawPayload(fields map[string]string) datatypes.JSONMap {
	out := make(datatypes.JSONMap, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}
