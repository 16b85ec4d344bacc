package wsstream

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"hostcp/internal/infrastructure/logger"
)

func TestHub_SubscribeAndBroadcast(t *testing.T) {
	hub := NewHub(logger.Nop())
	go hub.Run()

	client := NewClient("c1", hub, nil)
	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	hub.Subscribe(client, "device-1", "")
	assert.Equal(t, 1, hub.ClientCount())

	hub.Broadcast("device-1", "", NewWSEvent(EventNavigationStarted, "device-1", ""))
	select {
	case evt := <-client.send:
		assert.Equal(t, EventNavigationStarted, evt.Type)
	case <-time.After(time.Second):
		t.Fatal("expected broadcast event")
	}
}

func TestHub_UnsubscribeStopsDelivery(t *testing.T) {
	hub := NewHub(logger.Nop())
	go hub.Run()

	client := NewClient("c1", hub, nil)
	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	hub.Subscribe(client, "device-1", "")
	hub.Unsubscribe(client, "device-1", "")

	hub.Broadcast("device-1", "", NewWSEvent(EventNavigationStarted, "device-1", ""))
	select {
	case <-client.send:
		t.Fatal("unexpected event after unsubscribe")
	case <-time.After(100 * time.Millisecond):
	}
}
