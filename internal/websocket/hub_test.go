package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	gws "github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func TestPublishWithZeroSubscribers(t *testing.T) {
	hub := NewHub(testLogger())
	go hub.Run()
	defer hub.Stop()

	// Publishing into an empty hub is a no-op, never an error or a block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			hub.Publish("new-order", map[string]string{"orderId": "o-1"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked with zero subscribers")
	}

	if hub.ClientCount() != 0 {
		t.Errorf("client count = %d, want 0", hub.ClientCount())
	}
}

func TestPublishNeverBlocksWhenLoopIsStalled(t *testing.T) {
	// The run loop is intentionally not started: once the buffer fills,
	// Publish must drop instead of blocking the caller.
	hub := NewHub(testLogger())

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			hub.Publish("order-status-updated", i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a full broadcast buffer")
	}
}

func TestPublishAfterStopIsDropped(t *testing.T) {
	hub := NewHub(testLogger())
	go hub.Run()
	hub.Stop()

	done := make(chan struct{})
	go func() {
		hub.Publish("new-order", nil)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked after Stop")
	}
}

func TestClientReceivesPublishedEvents(t *testing.T) {
	hub := NewHub(testLogger())
	go hub.Run()
	defer hub.Stop()

	server := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := gws.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	waitForClients(t, hub, 1)

	hub.Publish("order-status-updated", map[string]string{
		"orderId":     "o-1",
		"orderNumber": "ORD10001",
		"orderStatus": "confirmed",
		"userId":      "cust-1",
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if msg.Event != "order-status-updated" {
		t.Errorf("event = %q, want order-status-updated", msg.Event)
	}
	data, ok := msg.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("data has unexpected shape: %#v", msg.Data)
	}
	if data["orderId"] != "o-1" || data["orderStatus"] != "confirmed" {
		t.Errorf("payload = %#v", data)
	}
	if msg.Timestamp == "" {
		t.Error("message missing timestamp")
	}
}

func TestConcurrentConnectDisconnectAndPublish(t *testing.T) {
	hub := NewHub(testLogger())
	go hub.Run()
	defer hub.Stop()

	server := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer server.Close()
	url := "ws" + strings.TrimPrefix(server.URL, "http")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			conn, _, err := gws.DefaultDialer.Dial(url, nil)
			if err != nil {
				return
			}
			time.Sleep(10 * time.Millisecond)
			conn.Close()
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				hub.Publish("new-order", j)
			}
		}()
	}
	wg.Wait()

	waitForClients(t, hub, 0)
}

func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.ClientCount() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("client count = %d, want %d", hub.ClientCount(), want)
}
