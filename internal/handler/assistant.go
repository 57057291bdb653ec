package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.uber.org/zap"

	"github.com/mmeshcher/quickdeliver/internal/assistant"
	"github.com/mmeshcher/quickdeliver/internal/middleware"
	"github.com/mmeshcher/quickdeliver/internal/model"
	"github.com/mmeshcher/quickdeliver/internal/session"
)

type chatRequest struct {
	Prompt string `json:"prompt"`
}

type chatResponse struct {
	Reply   model.ChatMessage   `json:"reply"`
	History []model.ChatMessage `json:"history"`
}

// Chat передаёт вопрос пользователя ассистенту. Пустой вопрос отклоняется до обращения к провайдеру.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	s, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Prompt) == "" {
		writeError(w, r, http.StatusBadRequest, "prompt must not be empty")
		return
	}

	h.converse(w, r, s, req.Prompt, req.Prompt)
}

// QuickActions возвращает список готовых вопросов.
func (h *Handler) QuickActions(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, assistant.QuickActions())
}

// Quick отправляет ассистенту готовый вопрос.
func (h *Handler) Quick(w http.ResponseWriter, r *http.Request) {
	s, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		return
	}

	action, ok := assistant.QuickPrompt(chi.URLParam(r, "action"))
	if !ok {
		writeError(w, r, http.StatusNotFound, "unknown quick action")
		return
	}

	h.converse(w, r, s, action.Label, action.Prompt)
}

func (h *Handler) converse(w http.ResponseWriter, r *http.Request, s *session.Session, shown, prompt string) {
	view, ok := s.View()
	if !ok {
		writeError(w, r, http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		return
	}

	s.AppendMessage(model.RoleUser, shown)

	answer := h.assistant.Ask(r.Context(), assistant.UserContext{
		Name:         view.Profile.Name,
		Subscription: view.Profile.Subscription,
		OrderCount:   len(view.Orders),
	}, prompt)

	s.AppendMessage(model.RoleAssistant, answer)

	render.JSON(w, r, chatResponse{
		Reply:   model.ChatMessage{Role: model.RoleAssistant, Content: answer},
		History: s.History(),
	})
}

// GetHistory возвращает историю диалога текущей сессии.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	s, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		return
	}
	render.JSON(w, r, s.History())
}

// ClearHistory очищает историю диалога текущей сессии.
func (h *Handler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	s, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		return
	}
	s.ClearHistory()
	w.WriteHeader(http.StatusNoContent)
}

// GetModels возвращает идентификаторы моделей провайдера.
func (h *Handler) GetModels(w http.ResponseWriter, r *http.Request) {
	ids, err := h.assistant.Models(r.Context())
	if err != nil {
		h.logger.Warn("list models error", zap.Error(err))
		writeError(w, r, http.StatusBadGateway, "model list is unavailable")
		return
	}
	render.JSON(w, r, ids)
}
