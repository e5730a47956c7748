package service

import (
	"errors"
	"testing"

	"delegate-portal/internal/cart"
	"delegate-portal/internal/models"
	"delegate-portal/internal/payment"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testMerchant   = "1211149"
	testPHSecret   = "payhere-secret"
	testCSSecret   = "cybersource-secret"
	csSignedFields = "transaction_id,decision,req_amount,req_currency,reference_number,reason_code,signed_field_names"
)

func newTestPaymentService(db *memDB, bus EventBus) *paymentService {
	svc := NewPaymentService(
		newFakeRepo(db),
		payment.NewPayHere(testMerchant, testPHSecret),
		payment.NewCyberSource(testCSSecret),
		bus,
		zap.NewNop(),
		PaymentOptions{DelegateFee: DelegateFee{Amount: decimal.RequireFromString("50.00"), Currency: "LKR"}},
	).(*paymentService)
	svc.now = fixedNow
	return svc
}

func payHereNote(orderID, amount, code, custom1 string) payment.PayHereNotification {
	return payment.PayHereNotification{
		MerchantID: testMerchant,
		OrderID:    orderID,
		PaymentID:  "320025071278",
		Amount:     amount,
		Currency:   "LKR",
		StatusCode: code,
		MD5Sig:     payment.PayHereSignature(testMerchant, orderID, amount, "LKR", code, testPHSecret),
		Method:     "VISA",
		Custom1:    custom1,
	}
}

func cyberSourceFields(orderID, decision, amount string) map[string]string {
	f := map[string]string{
		"transaction_id":     "6461231241234567890123",
		"request_id":         "6461231241234567890123",
		"decision":           decision,
		"req_amount":         amount,
		"amount":             amount,
		"req_currency":       "USD",
		"currency":           "USD",
		"reference_number":   orderID,
		"reason_code":        "100",
		"signed_field_names": csSignedFields,
		"card_type_name":     "Visa",
	}
	f["signature"] = payment.NewCyberSource(testCSSecret).Sign(f, payment.SignedFieldNames(f))
	return f
}

func TestHandlePayHere_SuccessMarksOrderPaid(t *testing.T) {
	db := newMemDB()
	bus := &recordingBus{}
	svc := newTestPaymentService(db, bus)
	owner := uuid.New()
	ord := db.addOrder(owner, models.OrderStatusPending, "1500.00")

	out, err := svc.HandlePayHere(t.Context(), payHereNote(ord.ID.String(), "1500.00", payment.PayHereSuccess, ""))
	require.NoError(t, err)
	assert.True(t, out.Applied)
	assert.Equal(t, models.OrderStatusPending, out.From)

	stored := db.order(ord.ID)
	assert.Equal(t, models.OrderStatusPaid, stored.Status)
	assert.Equal(t, ActorPayHereWebhook, stored.UpdatedBy)
	assert.Equal(t, fixedNow(), stored.LastStatusChange)

	require.Len(t, db.payments, 1)
	rec := db.payments[0]
	assert.Equal(t, models.GatewayPayHere, rec.Gateway)
	assert.Equal(t, models.PurposeOrder, rec.Purpose)
	require.NotNil(t, rec.OrderID)
	assert.Equal(t, ord.ID, *rec.OrderID)
	require.NotNil(t, rec.UserID)
	assert.Equal(t, owner, *rec.UserID)
	assert.Equal(t, "320025071278", rec.GatewayPaymentID)
	assert.True(t, rec.Amount.Equal(decimal.RequireFromString("1500")))
	assert.Equal(t, "2", rec.StatusCode)
	assert.Equal(t, "VISA", rec.RawPayload["method"])

	require.Len(t, bus.changed, 1)
	assert.Equal(t, models.OrderStatusPaid, bus.changed[0].To)
	assert.Len(t, bus.recorded, 1)
}

func TestHandlePayHere_StatusMapping(t *testing.T) {
	cases := map[string]models.OrderStatus{
		"2":  models.OrderStatusPaid,
		"0":  models.OrderStatusPaymentPending,
		"-1": models.OrderStatusPaymentCancelled,
		"-2": models.OrderStatusPaymentFailed,
		"-3": models.OrderStatusChargedBack,
		"9":  models.OrderStatusFailed,
	}
	for code, want := range cases {
		t.Run(code, func(t *testing.T) {
			db := newMemDB()
			svc := newTestPaymentService(db, nil)
			ord := db.addOrder(uuid.New(), models.OrderStatusPending, "10.00")

			_, err := svc.HandlePayHere(t.Context(), payHereNote(ord.ID.String(), "10.00", code, ""))
			require.NoError(t, err)
			assert.Equal(t, want, db.order(ord.ID).Status)
		})
	}
}

func TestHandlePayHere_TamperedAmountRejected(t *testing.T) {
	db := newMemDB()
	svc := newTestPaymentService(db, nil)
	ord := db.addOrder(uuid.New(), models.OrderStatusPending, "1500.00")

	n := payHereNote(ord.ID.String(), "1500.00", payment.PayHereSuccess, "")
	n.Amount = "1.00"

	_, err := svc.HandlePayHere(t.Context(), n)
	assert.ErrorIs(t, err, ErrSignatureMismatch)
	assert.Empty(t, db.payments)
	assert.Equal(t, models.OrderStatusPending, db.order(ord.ID).Status)
}

func TestHandlePayHere_UnknownOrder(t *testing.T) {
	db := newMemDB()
	svc := newTestPaymentService(db, nil)

	for _, id := range []string{uuid.NewString(), "ORD-42"} {
		_, err := svc.HandlePayHere(t.Context(), payHereNote(id, "5.00", payment.PayHereSuccess, ""))
		assert.ErrorIs(t, err, ErrOrderNotFound)
	}
	assert.Empty(t, db.payments)
}

func TestHandlePayHere_InvalidAmount(t *testing.T) {
	db := newMemDB()
	svc := newTestPaymentService(db, nil)
	ord := db.addOrder(uuid.New(), models.OrderStatusPending, "5.00")

	_, err := svc.HandlePayHere(t.Context(), payHereNote(ord.ID.String(), "five", payment.PayHereSuccess, ""))
	assert.ErrorIs(t, err, ErrInvalidAmount)
	assert.Empty(t, db.payments)
}

func TestHandlePayHere_RepeatedCallbackAppendsRecord(t *testing.T) {
	db := newMemDB()
	bus := &recordingBus{}
	svc := newTestPaymentService(db, bus)
	ord := db.addOrder(uuid.New(), models.OrderStatusPending, "10.00")
	n := payHereNote(ord.ID.String(), "10.00", payment.PayHereSuccess, "")

	first, err := svc.HandlePayHere(t.Context(), n)
	require.NoError(t, err)
	second, err := svc.HandlePayHere(t.Context(), n)
	require.NoError(t, err)

	assert.True(t, first.Applied)
	assert.False(t, second.Applied)
	assert.Len(t, db.payments, 2)
	assert.Len(t, bus.changed, 1)
	assert.Equal(t, models.OrderStatusPaid, db.order(ord.ID).Status)
}

func TestHandlePayHere_OutOfOrderCallbackIsAcknowledged(t *testing.T) {
	db := newMemDB()
	svc := newTestPaymentService(db, nil)
	ord := db.addOrder(uuid.New(), models.OrderStatusPaid, "10.00")

	out, err := svc.HandlePayHere(t.Context(), payHereNote(ord.ID.String(), "10.00", payment.PayHereFailed, ""))
	require.NoError(t, err)
	assert.False(t, out.Applied)
	assert.Equal(t, models.OrderStatusPaid, db.order(ord.ID).Status)
	assert.Len(t, db.payments, 1)
}

func TestHandlePayHere_RecordFailureRollsBackStatus(t *testing.T) {
	db := newMemDB()
	db.failPayment = errors.New("connection reset")
	svc := newTestPaymentService(db, nil)
	ord := db.addOrder(uuid.New(), models.OrderStatusPending, "10.00")

	_, err := svc.HandlePayHere(t.Context(), payHereNote(ord.ID.String(), "10.00", payment.PayHereSuccess, ""))
	require.Error(t, err)
	assert.Equal(t, models.OrderStatusPending, db.order(ord.ID).Status)
}

func TestHandlePayHere_DelegateFee(t *testing.T) {
	t.Run("success marks the fee paid", func(t *testing.T) {
		db := newMemDB()
		svc := newTestPaymentService(db, nil)
		u := db.addUser("delegate@example.org")

		out, err := svc.HandlePayHere(t.Context(), payHereNote("FEE-1", "50.00", payment.PayHereSuccess, "delegate_fee|delegate@example.org"))
		require.NoError(t, err)
		assert.True(t, out.Applied)
		assert.Nil(t, out.Order)

		require.Len(t, db.payments, 1)
		assert.Equal(t, models.PurposeDelegateFee, db.payments[0].Purpose)
		assert.Nil(t, db.payments[0].OrderID)
		require.NotNil(t, db.payments[0].UserID)
		assert.Equal(t, u.ID, *db.payments[0].UserID)

		assert.True(t, db.users[u.ID].DelegateFeePaid)
		require.NotNil(t, db.users[u.ID].DelegateFeePaidAt)
		assert.Equal(t, fixedNow(), *db.users[u.ID].DelegateFeePaidAt)
	})

	t.Run("non-success only records", func(t *testing.T) {
		db := newMemDB()
		svc := newTestPaymentService(db, nil)
		u := db.addUser("delegate@example.org")

		out, err := svc.HandlePayHere(t.Context(), payHereNote("FEE-1", "50.00", payment.PayHereCancelled, "delegate_fee|delegate@example.org"))
		require.NoError(t, err)
		assert.False(t, out.Applied)
		assert.Len(t, db.payments, 1)
		assert.False(t, db.users[u.ID].DelegateFeePaid)
	})

	t.Run("unknown email", func(t *testing.T) {
		db := newMemDB()
		svc := newTestPaymentService(db, nil)

		_, err := svc.HandlePayHere(t.Context(), payHereNote("FEE-1", "50.00", payment.PayHereSuccess, "delegate_fee|nobody@example.org"))
		assert.ErrorIs(t, err, ErrUserNotFound)
		assert.Empty(t, db.payments)
	})
}

func TestHandlePayHere_DelegateFeeRefusals(t *testing.T) {
	t.Run("amount other than the fee", func(t *testing.T) {
		db := newMemDB()
		svc := newTestPaymentService(db, nil)
		u := db.addUser("delegate@example.org")

		out, err := svc.HandlePayHere(t.Context(), payHereNote("FEE-1", "1.00", payment.PayHereSuccess, "delegate_fee|delegate@example.org"))
		require.NoError(t, err)
		assert.False(t, out.Applied)
		assert.Len(t, db.payments, 1)
		assert.False(t, db.users[u.ID].DelegateFeePaid)
	})

	t.Run("currency other than the fee", func(t *testing.T) {
		db := newMemDB()
		svc := newTestPaymentService(db, nil)
		u := db.addUser("delegate@example.org")

		n := payHereNote("FEE-1", "50.00", payment.PayHereSuccess, "delegate_fee|delegate@example.org")
		n.Currency = "USD"
		n.MD5Sig = payment.PayHereSignature(testMerchant, "FEE-1", "50.00", "USD", payment.PayHereSuccess, testPHSecret)
		out, err := svc.HandlePayHere(t.Context(), n)
		require.NoError(t, err)
		assert.False(t, out.Applied)
		assert.False(t, db.users[u.ID].DelegateFeePaid)
	})

	t.Run("merchandise order payment with rewritten custom_1", func(t *testing.T) {
		db := newMemDB()
		svc := newTestPaymentService(db, nil)
		u := db.addUser("delegate@example.org")
		ord := db.addOrder(uuid.New(), models.OrderStatusPending, "50.00")

		out, err := svc.HandlePayHere(t.Context(), payHereNote(ord.ID.String(), "50.00", payment.PayHereSuccess, "delegate_fee|delegate@example.org"))
		require.NoError(t, err)
		assert.False(t, out.Applied)
		assert.False(t, db.users[u.ID].DelegateFeePaid)
		assert.Equal(t, models.OrderStatusPending, db.order(ord.ID).Status)
	})

	t.Run("replay for another delegate", func(t *testing.T) {
		db := newMemDB()
		svc := newTestPaymentService(db, nil)
		payer := db.addUser("payer@example.org")
		other := db.addUser("other@example.org")

		out, err := svc.HandlePayHere(t.Context(), payHereNote("FEE-1", "50.00", payment.PayHereSuccess, "delegate_fee|payer@example.org"))
		require.NoError(t, err)
		require.True(t, out.Applied)

		out, err = svc.HandlePayHere(t.Context(), payHereNote("FEE-1", "50.00", payment.PayHereSuccess, "delegate_fee|other@example.org"))
		require.NoError(t, err)
		assert.False(t, out.Applied)
		assert.True(t, db.users[payer.ID].DelegateFeePaid)
		assert.False(t, db.users[other.ID].DelegateFeePaid)
		assert.Len(t, db.payments, 2)

		// the payer's own retry still goes through
		out, err = svc.HandlePayHere(t.Context(), payHereNote("FEE-1", "50.00", payment.PayHereSuccess, "delegate_fee|payer@example.org"))
		require.NoError(t, err)
		assert.True(t, out.Applied)
	})

	t.Run("fee not configured", func(t *testing.T) {
		db := newMemDB()
		svc := newTestPaymentService(db, nil)
		svc.fee = DelegateFee{}
		u := db.addUser("delegate@example.org")

		out, err := svc.HandlePayHere(t.Context(), payHereNote("FEE-1", "50.00", payment.PayHereSuccess, "delegate_fee|delegate@example.org"))
		require.NoError(t, err)
		assert.False(t, out.Applied)
		assert.False(t, db.users[u.ID].DelegateFeePaid)
	})
}

func TestHandleCyberSource_Decisions(t *testing.T) {
	cases := map[string]models.OrderStatus{
		payment.DecisionAccept: models.OrderStatusPaid,
		payment.DecisionReject: models.OrderStatusPaymentFailed,
		"REVIEW":               models.OrderStatusPaymentPending,
	}
	for decision, want := range cases {
		t.Run(decision, func(t *testing.T) {
			db := newMemDB()
			svc := newTestPaymentService(db, nil)
			ord := db.addOrder(uuid.New(), models.OrderStatusPending, "99.00")

			_, err := svc.HandleCyberSource(t.Context(), cyberSourceFields(ord.ID.String(), decision, "99.00"))
			require.NoError(t, err)
			assert.Equal(t, want, db.order(ord.ID).Status)
			assert.Equal(t, ActorGatewayWebhook, db.order(ord.ID).UpdatedBy)

			require.Len(t, db.payments, 1)
			rec := db.payments[0]
			assert.Equal(t, models.GatewayCyberSource, rec.Gateway)
			assert.Equal(t, decision, rec.StatusCode)
			assert.Equal(t, "6461231241234567890123", rec.GatewayPaymentID)
			require.NotNil(t, rec.ReasonCode)
			assert.Equal(t, "100", *rec.ReasonCode)
			assert.Equal(t, "Visa", rec.RawPayload["card_type_name"])
		})
	}
}

func TestHandleCyberSource_Rejections(t *testing.T) {
	db := newMemDB()
	svc := newTestPaymentService(db, nil)
	ord := db.addOrder(uuid.New(), models.OrderStatusPending, "99.00")

	t.Run("dropped signed field", func(t *testing.T) {
		f := cyberSourceFields(ord.ID.String(), payment.DecisionAccept, "99.00")
		delete(f, "req_amount")
		_, err := svc.HandleCyberSource(t.Context(), f)
		assert.ErrorIs(t, err, ErrSignatureMismatch)
	})

	t.Run("tampered decision", func(t *testing.T) {
		f := cyberSourceFields(ord.ID.String(), payment.DecisionReject, "99.00")
		f["decision"] = payment.DecisionAccept
		_, err := svc.HandleCyberSource(t.Context(), f)
		assert.ErrorIs(t, err, ErrSignatureMismatch)
	})

	t.Run("decision not signed", func(t *testing.T) {
		f := cyberSourceFields(ord.ID.String(), payment.DecisionAccept, "99.00")
		f["signed_field_names"] = "transaction_id,req_amount,reference_number,signed_field_names"
		f["signature"] = payment.NewCyberSource(testCSSecret).Sign(f, payment.SignedFieldNames(f))
		_, err := svc.HandleCyberSource(t.Context(), f)
		assert.ErrorIs(t, err, ErrSignatureMismatch)
	})

	t.Run("unknown order", func(t *testing.T) {
		_, err := svc.HandleCyberSource(t.Context(), cyberSourceFields(uuid.NewString(), payment.DecisionAccept, "99.00"))
		assert.ErrorIs(t, err, ErrOrderNotFound)
	})

	assert.Empty(t, db.payments)
	assert.Equal(t, models.OrderStatusPending, db.order(ord.ID).Status)
}

func TestCartCheckoutThenGatewayAccept(t *testing.T) {
	db := newMemDB()
	seedCatalog(db)
	bus := &recordingBus{}
	repo := newFakeRepo(db)

	orders := NewOrderService(repo, repo.Catalog, bus, zap.NewNop(), OrderOptions{})
	payments := newTestPaymentService(db, bus)

	user := uuid.New()
	ctx := delegateCtx(user)

	c := cart.New(user.String(), cart.NewMemoryStore(), zap.NewNop())
	require.NoError(t, c.Add(ctx, cart.NewSimple(cart.SimpleLine{ID: "tee", ItemCode: "TEE", UnitPrice: decimal.RequireFromString("12.50"), Quantity: 1})))
	require.NoError(t, c.Add(ctx, cart.NewSimple(cart.SimpleLine{ID: "tee", ItemCode: "TEE", UnitPrice: decimal.RequireFromString("12.50"), Quantity: 1})))
	require.Equal(t, 1, c.Len())

	ord, err := orders.Checkout(ctx, c)
	require.NoError(t, err)
	require.Equal(t, models.OrderStatusPending, ord.Status)
	require.Len(t, ord.Items, 1)
	assert.Equal(t, 2, ord.Items[0].Quantity)

	_, err = payments.HandleCyberSource(t.Context(), cyberSourceFields(ord.ID.String(), payment.DecisionAccept, ord.TotalAmount.StringFixed(2)))
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusPaid, db.order(ord.ID).Status)
	recs, err := repo.Payments.ListByOrder(t.Context(), ord.ID)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
	assert.Len(t, bus.created, 1)
	assert.Len(t, bus.changed, 1)
}
