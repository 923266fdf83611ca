package sender

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"chatops-admin/internal/domain"
)

func TestVKSenderSendsForm(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/messages.send" {
			t.Errorf("неожиданный путь %s", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("не удалось разобрать форму: %v", err)
		}
		got = map[string]string{
			"peer_id":      r.PostForm.Get("peer_id"),
			"message":      r.PostForm.Get("message"),
			"access_token": r.PostForm.Get("access_token"),
			"v":            r.PostForm.Get("v"),
			"random_id":    r.PostForm.Get("random_id"),
		}
		_, _ = w.Write([]byte(`{"response": 321}`))
	}))
	defer srv.Close()

	s := NewVK(VKConfig{Token: "secret", APIVersion: "5.199", BaseURL: srv.URL}, zerolog.Nop())
	ack, err := s.Send(context.Background(), domain.Recipient{ChatID: 3, Platform: domain.PlatformVK, PeerID: 2000000001}, domain.BroadcastPayload{Title: "Акция", Text: "Скидка"})
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if ack.MessageID != "321" {
		t.Fatalf("ожидали id 321, получили %q", ack.MessageID)
	}
	if got["peer_id"] != "2000000001" || got["message"] != "Акция\n\nСкидка" || got["access_token"] != "secret" || got["v"] != "5.199" {
		t.Fatalf("неожиданные параметры: %+v", got)
	}
	if got["random_id"] == "" {
		t.Fatalf("random_id обязателен")
	}
}

func TestVKSenderAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":{"error_code":901,"error_msg":"Can't send messages for users without permission"}}`))
	}))
	defer srv.Close()

	s := NewVK(VKConfig{Token: "t", BaseURL: srv.URL}, zerolog.Nop())
	_, err := s.Send(context.Background(), domain.Recipient{Platform: domain.PlatformVK, PeerID: 1}, domain.BroadcastPayload{Text: "x"})
	var vkErr *VKError
	if !errors.As(err, &vkErr) || vkErr.Code != 901 {
		t.Fatalf("ожидали VKError 901, получили %v", err)
	}
}

func TestVKSenderHTTPStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	s := NewVK(VKConfig{Token: "t", BaseURL: srv.URL}, zerolog.Nop())
	if _, err := s.Send(context.Background(), domain.Recipient{Platform: domain.PlatformVK, PeerID: 1}, domain.BroadcastPayload{Text: "x"}); err == nil {
		t.Fatalf("ожидали ошибку при ответе 502")
	}
}
