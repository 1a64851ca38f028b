// internal/handler/event_bus_test.go
package handler

import (
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"camera-service/internal/model"
)

func receive(t *testing.T, ch <-chan *model.Event) *model.Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
		return nil
	}
}

func TestEventBusDistribution(t *testing.T) {
	bus := NewEventBus(zaptest.NewLogger(t))
	progress := bus.Subscribe(model.EventTransferProgress)
	all := bus.Subscribe(AllEvents)

	done := make(chan struct{})
	go func() {
		bus.Start()
		close(done)
	}()

	bus.Publish(model.NewEvent(model.EventCatalogRefreshed, model.SeverityInfo, nil))
	bus.Publish(model.NewEvent(model.EventTransferProgress, model.SeverityInfo, nil))

	if e := receive(t, all); e.EventType != model.EventCatalogRefreshed {
		t.Errorf("first event on all = %s", e.EventType)
	}
	if e := receive(t, all); e.EventType != model.EventTransferProgress {
		t.Errorf("second event on all = %s", e.EventType)
	}
	if e := receive(t, progress); e.EventType != model.EventTransferProgress {
		t.Errorf("typed subscriber got %s", e.EventType)
	}
	select {
	case e := <-progress:
		t.Errorf("typed subscriber got extra %s", e.EventType)
	default:
	}

	bus.Stop()
	<-done
	if _, ok := <-all; ok {
		t.Error("subscriber channel still open after Stop")
	}
	bus.Stop()
}

func TestClientTopics(t *testing.T) {
	c := &Client{}
	if !c.Wants(model.EventCameraError) {
		t.Error("client without topics should get everything")
	}
	c.Subscribe("transfer")
	if !c.Wants(model.EventTransferProgress) {
		t.Error("prefix topic did not match")
	}
	if c.Wants(model.EventCameraError) {
		t.Error("unsubscribed type delivered")
	}
	c.Subscribe("camera.error")
	if !c.Wants(model.EventCameraError) {
		t.Error("exact topic did not match")
	}
	c.Unsubscribe("transfer")
	if c.Wants(model.EventTransferStarted) {
		t.Error("unsubscribed prefix still matches")
	}
}
