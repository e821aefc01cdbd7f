package service

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"printer-service/internal/model"
)

func startBus(t *testing.T) (*EventBus, context.CancelFunc) {
	t.Helper()
	bus := NewEventBus(zaptest.NewLogger(t))
	ctx, cancel := context.WithCancel(context.Background())
	go bus.Start(ctx)
	t.Cleanup(cancel)
	return bus, cancel
}

func recv(t *testing.T, ch <-chan model.PrinterEvent) (model.PrinterEvent, bool) {
	t.Helper()
	select {
	case ev, ok := <-ch:
		return ev, ok
	case <-time.After(time.Second):
		t.Fatal("no event received")
		return model.PrinterEvent{}, false
	}
}

func TestEventBusFiltersByType(t *testing.T) {
	bus, _ := startBus(t)

	all, cancelAll := bus.Subscribe()
	defer cancelAll()
	paper, cancelPaper := bus.Subscribe(model.EventPaperEnd)
	defer cancelPaper()

	bus.Publish(model.NewPrinterEvent(model.EventCoverOpen, "local_printer", nil))
	bus.Publish(model.NewPrinterEvent(model.EventPaperEnd, "local_printer", nil))

	if ev, _ := recv(t, all); ev.EventType != model.EventCoverOpen {
		t.Errorf("first event = %s", ev.EventType)
	}
	if ev, _ := recv(t, all); ev.EventType != model.EventPaperEnd {
		t.Errorf("second event = %s", ev.EventType)
	}
	ev, _ := recv(t, paper)
	if ev.EventType != model.EventPaperEnd || ev.Severity != "ERROR" {
		t.Errorf("filtered subscriber got %+v", ev)
	}
	select {
	case ev := <-paper:
		t.Errorf("unexpected extra event %s", ev.EventType)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestEventBusUnsubscribe(t *testing.T) {
	bus, _ := startBus(t)

	ch, cancel := bus.Subscribe()
	if bus.SubscriberCount() != 1 {
		t.Fatalf("count = %d", bus.SubscriberCount())
	}
	cancel()
	cancel()

	if bus.SubscriberCount() != 0 {
		t.Errorf("count after cancel = %d", bus.SubscriberCount())
	}
	if _, ok := <-ch; ok {
		t.Error("channel should be closed")
	}
}

func TestEventBusStopClosesSubscribers(t *testing.T) {
	bus, stop := startBus(t)
	ch, cancel := bus.Subscribe()
	defer cancel()

	stop()
	if _, ok := recv(t, ch); ok {
		t.Error("channel should be closed when the bus stops")
	}
}
