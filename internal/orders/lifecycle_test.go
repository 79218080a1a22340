package orders

import (
	"context"
	"sync"
	"testing"

	"github.com/dinehall/orderdesk/internal/apperr"
	"github.com/dinehall/orderdesk/pkg/models"
)

func createPending(t *testing.T, svc *Service) *models.Order {
	t.Helper()
	order, err := svc.Create(context.Background(), customer, validDeliveryRequest())
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	return order
}

func TestStrictTransitionGraph(t *testing.T) {
	// Every edge of the linear graph, enumerated.
	edges := map[models.OrderStatus]map[models.OrderStatus]bool{
		models.StatusPending:        {models.StatusConfirmed: true, models.StatusCancelled: true},
		models.StatusConfirmed:      {models.StatusPreparing: true, models.StatusCancelled: true},
		models.StatusPreparing:      {models.StatusReady: true, models.StatusCancelled: true},
		models.StatusReady:          {models.StatusOutForDelivery: true, models.StatusCancelled: true},
		models.StatusOutForDelivery: {models.StatusDelivered: true, models.StatusCancelled: true},
		models.StatusDelivered:      {},
		models.StatusCancelled:      {},
	}

	for _, from := range models.OrderStatuses {
		for _, to := range models.OrderStatuses {
			want := edges[from][to]
			if got := StrictTransition(from, to); got != want {
				t.Errorf("StrictTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestSetStatusHappyPath(t *testing.T) {
	svc, _, _, pub := newTestService()
	ctx := context.Background()
	order := createPending(t, svc)

	updated, err := svc.SetStatus(ctx, chef, order.ID, models.StatusConfirmed, "")
	if err != nil {
		t.Fatalf("SetStatus returned error: %v", err)
	}
	if updated.OrderStatus != models.StatusConfirmed {
		t.Errorf("status = %s, want confirmed", updated.OrderStatus)
	}

	events := pub.all()
	last := events[len(events)-1]
	if last.name != EventOrderStatusUpdated {
		t.Fatalf("last event = %s, want %s", last.name, EventOrderStatusUpdated)
	}
	payload := last.data.(StatusEvent)
	if payload.OrderID != order.ID || payload.OrderNumber != order.OrderNumber ||
		payload.OrderStatus != models.StatusConfirmed || payload.UserID != customer.ID {
		t.Errorf("event payload = %+v", payload)
	}
}

func TestSetStatusPermissiveSkip(t *testing.T) {
	// The engine does not force the linear path on staff: pending -> delivered
	// is accepted and stamps the delivery timestamp.
	svc, _, _, _ := newTestService()
	ctx := context.Background()
	order := createPending(t, svc)

	updated, err := svc.SetStatus(ctx, admin, order.ID, models.StatusDelivered, "")
	if err != nil {
		t.Fatalf("SetStatus returned error: %v", err)
	}
	if updated.DeliveredAt == nil {
		t.Error("delivered order missing DeliveredAt")
	}
}

func TestSetStatusTerminalRejected(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	for _, terminal := range []models.OrderStatus{models.StatusDelivered, models.StatusCancelled} {
		order := createPending(t, svc)
		if _, err := svc.SetStatus(ctx, admin, order.ID, terminal, ""); err != nil {
			t.Fatalf("SetStatus(%s) returned error: %v", terminal, err)
		}

		for _, target := range models.OrderStatuses {
			_, err := svc.SetStatus(ctx, admin, order.ID, target, "")
			if apperr.KindOf(err) != apperr.InvalidState {
				t.Errorf("transition %s -> %s: err = %v, want invalid-state", terminal, target, err)
			}
		}
	}
}

func TestSetStatusInvalidTarget(t *testing.T) {
	svc, _, _, pub := newTestService()
	order := createPending(t, svc)
	before := len(pub.all())

	_, err := svc.SetStatus(context.Background(), admin, order.ID, "shipped", "")
	if apperr.KindOf(err) != apperr.InvalidStatus {
		t.Fatalf("err = %v, want invalid-status", err)
	}
	if len(pub.all()) != before {
		t.Error("event fired for rejected transition")
	}
}

func TestSetStatusUnknownOrder(t *testing.T) {
	svc, _, _, _ := newTestService()
	_, err := svc.SetStatus(context.Background(), admin, "missing", models.StatusConfirmed, "")
	if apperr.KindOf(err) != apperr.NotFound {
		t.Fatalf("err = %v, want not-found", err)
	}
}

func TestSetStatusForbiddenForCustomers(t *testing.T) {
	svc, _, _, _ := newTestService()
	order := createPending(t, svc)

	_, err := svc.SetStatus(context.Background(), customer, order.ID, models.StatusConfirmed, "")
	if apperr.KindOf(err) != apperr.Forbidden {
		t.Fatalf("err = %v, want forbidden", err)
	}
}

func TestConfirmThenCancelWithReason(t *testing.T) {
	svc, _, _, pub := newTestService()
	ctx := context.Background()
	order := createPending(t, svc)
	pub.events = nil

	if _, err := svc.SetStatus(ctx, chef, order.ID, models.StatusConfirmed, ""); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	final, err := svc.SetStatus(ctx, chef, order.ID, models.StatusCancelled, "Out of stock")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}

	if final.OrderStatus != models.StatusCancelled {
		t.Errorf("status = %s, want cancelled", final.OrderStatus)
	}
	if final.CancelledAt == nil {
		t.Error("CancelledAt not stamped")
	}
	if final.CancellationReason != "Out of stock" {
		t.Errorf("reason = %q, want %q", final.CancellationReason, "Out of stock")
	}

	events := pub.all()
	if len(events) != 2 {
		t.Fatalf("observed %d events, want 2", len(events))
	}
	first := events[0].data.(StatusEvent)
	second := events[1].data.(StatusEvent)
	if first.OrderStatus != models.StatusConfirmed || second.OrderStatus != models.StatusCancelled {
		t.Errorf("event order = %s, %s; want confirmed then cancelled", first.OrderStatus, second.OrderStatus)
	}
}

func TestCancelByOwner(t *testing.T) {
	svc, _, _, _ := newTestService()
	order := createPending(t, svc)

	cancelled, err := svc.Cancel(context.Background(), customer, order.ID, "")
	if err != nil {
		t.Fatalf("Cancel returned error: %v", err)
	}
	if cancelled.CancellationReason != DefaultCancellationReason {
		t.Errorf("reason = %q, want default %q", cancelled.CancellationReason, DefaultCancellationReason)
	}
	if cancelled.CancelledAt == nil {
		t.Error("CancelledAt not stamped")
	}
}

func TestCancelByStrangerForbidden(t *testing.T) {
	svc, _, _, _ := newTestService()
	order := createPending(t, svc)

	stranger := models.Actor{ID: "cust-2", Role: models.RoleCustomer}
	if _, err := svc.Cancel(context.Background(), stranger, order.ID, ""); apperr.KindOf(err) != apperr.Forbidden {
		t.Fatalf("err = %v, want forbidden", err)
	}

	// Non-privileged staff cannot use the cancellation path either.
	if _, err := svc.Cancel(context.Background(), chef, order.ID, ""); apperr.KindOf(err) != apperr.Forbidden {
		t.Fatalf("chef cancel err = %v, want forbidden", err)
	}
}

func TestCancelTerminalOrder(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	order := createPending(t, svc)
	if _, err := svc.Cancel(ctx, customer, order.ID, ""); err != nil {
		t.Fatalf("first cancel: %v", err)
	}
	// Cancelling twice fails the same way every time, it never crashes.
	for i := 0; i < 3; i++ {
		if _, err := svc.Cancel(ctx, customer, order.ID, ""); apperr.KindOf(err) != apperr.InvalidState {
			t.Fatalf("repeat cancel err = %v, want invalid-state", err)
		}
	}

	delivered := createPending(t, svc)
	if _, err := svc.SetStatus(ctx, admin, delivered.ID, models.StatusDelivered, ""); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if _, err := svc.Cancel(ctx, admin, delivered.ID, ""); apperr.KindOf(err) != apperr.InvalidState {
		t.Fatalf("cancel delivered err = %v, want invalid-state", err)
	}
}

func TestPaymentAndStatusAreOrthogonal(t *testing.T) {
	svc, _, _, pub := newTestService()
	ctx := context.Background()
	order := createPending(t, svc)
	pub.events = nil

	paid, err := svc.SetPaymentStatus(ctx, admin, order.ID, models.PaymentPaid)
	if err != nil {
		t.Fatalf("SetPaymentStatus returned error: %v", err)
	}
	if paid.OrderStatus != models.StatusPending {
		t.Errorf("payment change moved order status to %s", paid.OrderStatus)
	}
	if paid.PaymentStatus != models.PaymentPaid {
		t.Errorf("payment status = %s, want paid", paid.PaymentStatus)
	}

	confirmed, err := svc.SetStatus(ctx, admin, order.ID, models.StatusConfirmed, "")
	if err != nil {
		t.Fatalf("SetStatus returned error: %v", err)
	}
	if confirmed.PaymentStatus != models.PaymentPaid {
		t.Errorf("status change moved payment status to %s", confirmed.PaymentStatus)
	}

	events := pub.all()
	if len(events) != 2 {
		t.Fatalf("observed %d events, want 2", len(events))
	}
	if events[0].name != EventPaymentStatusUpdated || events[1].name != EventOrderStatusUpdated {
		t.Errorf("events = %s, %s", events[0].name, events[1].name)
	}
	payload := events[0].data.(PaymentEvent)
	if payload.OrderID != order.ID || payload.PaymentStatus != models.PaymentPaid || payload.UserID != customer.ID {
		t.Errorf("payment event payload = %+v", payload)
	}
}

func TestSetPaymentStatusValidation(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()
	order := createPending(t, svc)

	if _, err := svc.SetPaymentStatus(ctx, admin, order.ID, "wired"); apperr.KindOf(err) != apperr.InvalidStatus {
		t.Fatalf("err = %v, want invalid-status", err)
	}
	if _, err := svc.SetPaymentStatus(ctx, admin, "missing", models.PaymentPaid); apperr.KindOf(err) != apperr.NotFound {
		t.Fatalf("err = %v, want not-found", err)
	}
	if _, err := svc.SetPaymentStatus(ctx, customer, order.ID, models.PaymentPaid); apperr.KindOf(err) != apperr.Forbidden {
		t.Fatalf("err = %v, want forbidden", err)
	}
}

func TestConcurrentStatusUpdates(t *testing.T) {
	// Two racing updates on the same order: both commit at the storage layer,
	// each publishes exactly one event, and the stored status is whichever
	// write landed last. Last-write-wins is the accepted trade-off.
	svc, _, _, pub := newTestService()
	ctx := context.Background()
	order := createPending(t, svc)
	pub.events = nil

	targets := []models.OrderStatus{models.StatusConfirmed, models.StatusReady}
	var wg sync.WaitGroup
	errs := make([]error, len(targets))
	for i, target := range targets {
		wg.Add(1)
		go func(i int, target models.OrderStatus) {
			defer wg.Done()
			_, errs[i] = svc.SetStatus(ctx, admin, order.ID, target, "")
		}(i, target)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("concurrent update %s failed: %v", targets[i], err)
		}
	}

	events := pub.all()
	if len(events) != 2 {
		t.Fatalf("observed %d events, want exactly one per update", len(events))
	}

	final, err := svc.Get(ctx, admin, order.ID)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if final.OrderStatus != models.StatusConfirmed && final.OrderStatus != models.StatusReady {
		t.Errorf("final status = %s, want one of the two racing targets", final.OrderStatus)
	}
}
