// Package assistant предоставляет клиент внешнего API чат-дополнений (OpenRouter-совместимого).
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/mmeshcher/quickdeliver/internal/metrics"
	"github.com/mmeshcher/quickdeliver/internal/model"
)

// PlaceholderKey содержит значение ключа из шаблона конфигурации; считается отсутствующим ключом.
const PlaceholderKey = "your_openrouter_api_key_here"

// SystemInstruction задаёт системное сообщение каждого запроса.
const SystemInstruction = "You are a helpful customer service assistant for QuickDeliver food delivery app. " +
	"Be concise, friendly, and professional."

const (
	askTimeout    = 30 * time.Second
	modelsTimeout = 10 * time.Second

	temperature = 0.7
	maxTokens   = 1000
)

// Исходы запроса для метрик.
const (
	outcomeOK            = "ok"
	outcomeNotConfigured = "not_configured"
	outcomeNetwork       = "network_error"
	outcomeUpstream      = "upstream_error"
	outcomeMalformed     = "malformed"
)

// Config задаёт параметры подключения к провайдеру.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	SiteURL string
	AppName string
}

// UserContext содержит сведения о пользователе, добавляемые в запрос.
type UserContext struct {
	Name         string
	Subscription model.Tier
	OrderCount   int
}

// Client инкапсулирует HTTP-взаимодействие с провайдером.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// NewClient создаёт клиент провайдера.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: askTimeout,
		},
		logger: logger,
	}
}

// Configured сообщает, задан ли рабочий ключ API.
func (c *Client) Configured() bool {
	key := strings.TrimSpace(c.cfg.APIKey)
	return key != "" && key != PlaceholderKey
}

// Ask отправляет вопрос пользователя и возвращает ответ ассистента.
//
// Ошибок не возвращает: любая неудача превращается в читаемое сообщение,
// которое показывается вместо ответа.
func (c *Client) Ask(ctx context.Context, uc UserContext, prompt string) string {
	start := time.Now()
	answer, outcome := c.ask(ctx, uc, prompt)
	metrics.RecordAssistant(outcome, time.Since(start))
	return answer
}

func (c *Client) ask(ctx context.Context, uc UserContext, prompt string) (string, string) {
	if !c.Configured() {
		return "OpenRouter API key not configured. Set OPENROUTER_API_KEY to enable the assistant.", outcomeNotConfigured
	}

	body, err := json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: SystemInstruction},
			{Role: "user", Content: Preamble(uc) + prompt},
		},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return fmt.Sprintf("Unexpected error: %v", err), outcomeMalformed
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return fmt.Sprintf("Unexpected error: %v", err), outcomeNetwork
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("completion request failed", zap.Error(err))
		return fmt.Sprintf("Network error: %v", err), outcomeNetwork
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Sprintf("Network error: %v", err), outcomeNetwork
	}

	if resp.StatusCode != http.StatusOK {
		detail := strings.TrimSpace(string(raw))
		if gjson.ValidBytes(raw) {
			if msg := gjson.GetBytes(raw, "error.message"); msg.Exists() {
				detail = msg.String()
			}
		}
		c.logger.Warn("completion request rejected",
			zap.Int("status", resp.StatusCode),
			zap.String("detail", detail),
		)
		return fmt.Sprintf("Error: %d - %s", resp.StatusCode, detail), outcomeUpstream
	}

	content := gjson.GetBytes(raw, "choices.0.message.content")
	if !gjson.ValidBytes(raw) || content.Type != gjson.String {
		c.logger.Warn("malformed completion response", zap.ByteString("body", raw))
		return "Unexpected error: malformed response from assistant provider", outcomeMalformed
	}

	return content.String(), outcomeOK
}

// Models возвращает идентификаторы моделей провайдера.
func (c *Client) Models(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, modelsTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/models", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("decode response: invalid json")
	}

	ids := []string{}
	for _, id := range gjson.GetBytes(raw, "data.#.id").Array() {
		ids = append(ids, id.String())
	}
	return ids, nil
}

func (c *Client) setHeaders(req *http.Request) {
	if c.Configured() {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
	if c.cfg.SiteURL != "" {
		req.Header.Set("HTTP-Referer", c.cfg.SiteURL)
	}
	if c.cfg.AppName != "" {
		req.Header.Set("X-Title", c.cfg.AppName)
	}
}

// Preamble возвращает контекст пользователя, предшествующий вопросу.
func Preamble(uc UserContext) string {
	name := uc.Name
	if name == "" {
		name = "N/A"
	}
	tier := string(uc.Subscription)
	if tier == "" {
		tier = "N/A"
	}

	var b strings.Builder
	b.WriteString("You are a helpful customer service AI for QuickDeliver, a food delivery app.\n\n")
	b.WriteString("User Information:\n")
	fmt.Fprintf(&b, "- Name: %s\n", name)
	fmt.Fprintf(&b, "- Subscription: %s\n", tier)
	fmt.Fprintf(&b, "- Recent Orders: %d orders\n\n", uc.OrderCount)
	b.WriteString("You can help with order tracking and issues, subscription management, billing questions, " +
		"restaurant recommendations, delivery estimates, account settings and general support.\n")
	b.WriteString("If you need specific order details or account information, ask the user to check " +
		"their order history or account settings in the app.\n\n")
	b.WriteString("User Question: ")
	return b.String()
}
