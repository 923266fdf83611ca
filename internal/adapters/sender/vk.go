package sender

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"chatops-admin/internal/domain"
	"chatops-admin/internal/infra/metrics"
)

const (
	vkDefaultBaseURL = "https://api.vk.com/method"
	vkTextLimit      = 4096
)

// VKConfig содержит параметры доступа к VK API сообщества.
type VKConfig struct {
	Token      string
	APIVersion string
	BaseURL    string
	Timeout    time.Duration
}

// VKSender отправляет сообщения методом messages.send от имени сообщества.
type VKSender struct {
	cfg    VKConfig
	client *http.Client
	log    zerolog.Logger
}

// VKError описывает ошибку, которую вернул VK API.
type VKError struct {
	Code    int    `json:"error_code"`
	Message string `json:"error_msg"`
}

func (e *VKError) Error() string {
	return fmt.Sprintf("vk api error %d: %s", e.Code, e.Message)
}

type vkResponse struct {
	Response json.RawMessage `json:"response"`
	Error    *VKError        `json:"error"`
}

// NewVK создаёт отправителя VK.
func NewVK(cfg VKConfig, log zerolog.Logger) *VKSender {
	if cfg.BaseURL == "" {
		cfg.BaseURL = vkDefaultBaseURL
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = "5.199"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &VKSender{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    log.With().Str("component", "sender.vk").Logger(),
	}
}

// Send отправляет текст рассылки. VK не принимает картинку по ссылке без загрузки,
// поэтому ссылка добавляется в конец сообщения.
func (s *VKSender) Send(ctx context.Context, to domain.Recipient, payload domain.BroadcastPayload) (domain.SendAck, error) {
	if to.PeerID == 0 {
		return domain.SendAck{}, fmt.Errorf("vk: empty peer id for chat %d", to.ChatID)
	}

	var ack domain.SendAck
	for _, part := range SplitMessage(RenderVK(payload), vkTextLimit) {
		id, err := s.sendMessage(ctx, to.PeerID, part)
		if err != nil {
			return ack, err
		}
		if ack.MessageID == "" {
			ack.MessageID = id
		}
	}
	return ack, nil
}

func (s *VKSender) sendMessage(ctx context.Context, peerID int64, text string) (id string, err error) {
	start := time.Now()
	defer func() {
		metrics.ObserveNetworkRequest("vk_api", "messages.send", strconv.FormatInt(peerID, 10), start, err)
	}()

	form := url.Values{}
	form.Set("peer_id", strconv.FormatInt(peerID, 10))
	form.Set("message", text)
	form.Set("random_id", strconv.FormatInt(int64(rand.Int31()), 10))
	form.Set("access_token", s.cfg.Token)
	form.Set("v", s.cfg.APIVersion)

	endpoint := strings.TrimRight(s.cfg.BaseURL, "/") + "/messages.send"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("vk request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("vk messages.send: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("vk read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("vk messages.send: http %d", resp.StatusCode)
	}

	var parsed vkResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("vk decode response: %w", err)
	}
	if parsed.Error != nil {
		s.log.Warn().Int("code", parsed.Error.Code).Int64("peer", peerID).Msg(parsed.Error.Message)
		return "", parsed.Error
	}

	var messageID int64
	if err := json.Unmarshal(parsed.Response, &messageID); err != nil {
		return "", fmt.Errorf("vk unexpected response %s: %w", string(parsed.Response), err)
	}
	return strconv.FormatInt(messageID, 10), nil
}
