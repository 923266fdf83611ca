package sse

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"chatops-admin/internal/domain"
)

func readFrame(t *testing.T, r *bufio.Reader) (string, string) {
	t.Helper()
	var event, data string
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("read frame: %v", err)
		}
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "":
			return event, data
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("условие не выполнилось за 2 секунды")
}

func TestStreamLifecycle(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	srv := httptest.NewServer(NewStreamHandler(hub, 50*time.Millisecond, zerolog.Nop()))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"?topics=orders,chats", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content-type = %q", ct)
	}
	reader := bufio.NewReader(resp.Body)

	event, data := readFrame(t, reader)
	if event != "ready" || data != `{"topics":["chats","orders"]}` {
		t.Fatalf("ready frame = %q %q", event, data)
	}

	hub.Publish(domain.TopicReservations, map[string]int{"id": 1})
	hub.Publish(domain.TopicOrders, map[string]int{"id": 7})

	for {
		event, data = readFrame(t, reader)
		if event == "ping" {
			continue
		}
		break
	}
	if event != "orders" || data != `{"id":7}` {
		t.Fatalf("ожидали событие orders, получили %q %q", event, data)
	}

	for {
		event, _ = readFrame(t, reader)
		if event == "ping" {
			break
		}
	}

	cancel()
	waitFor(t, func() bool { return hub.TopicCount() == 0 })
}

func TestStreamDefaultsToCatchAll(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	srv := httptest.NewServer(NewStreamHandler(hub, time.Minute, zerolog.Nop()))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	reader := bufio.NewReader(resp.Body)
	event, data := readFrame(t, reader)
	if event != "ready" || data != `{"topics":["*"]}` {
		t.Fatalf("ready frame = %q %q", event, data)
	}
	if hub.SubscriberCount(domain.TopicAll) != 1 {
		t.Fatalf("ожидали подписку на *")
	}
	resp.Body.Close()
	waitFor(t, func() bool { return hub.SubscriberCount(domain.TopicAll) == 0 })
}

func TestStreamEndsWhenClientClosed(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	srv := httptest.NewServer(NewStreamHandler(hub, time.Minute, zerolog.Nop()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "?topics=orders")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	reader := bufio.NewReader(resp.Body)
	if event, _ := readFrame(t, reader); event != "ready" {
		t.Fatalf("ожидали ready, получили %q", event)
	}

	hub.mu.RLock()
	var client *Client
	for c := range hub.topics[domain.TopicOrders] {
		client = c
	}
	hub.mu.RUnlock()
	if client == nil {
		t.Fatal("клиент не подписан")
	}

	// так hub отключает клиента с переполненным буфером
	client.Close()
	waitFor(t, func() bool { return hub.TopicCount() == 0 })
	if _, err := reader.ReadString('\n'); err == nil {
		t.Fatal("поток должен завершиться после закрытия клиента")
	}
}
