// Package handler содержит HTTP-обработчики API сервиса QuickDeliver.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"go.uber.org/zap"

	"github.com/mmeshcher/quickdeliver/internal/account"
	"github.com/mmeshcher/quickdeliver/internal/assistant"
	"github.com/mmeshcher/quickdeliver/internal/dashboard"
	"github.com/mmeshcher/quickdeliver/internal/middleware"
	"github.com/mmeshcher/quickdeliver/internal/model"
	"github.com/mmeshcher/quickdeliver/internal/session"
	"github.com/mmeshcher/quickdeliver/internal/validation"
)

// Accounts определяет операции регистрации.
type Accounts interface {
	Create(ctx context.Context, username, email, password, name string) error
}

// Sessions определяет операции аутентификации и управления сессиями.
type Sessions interface {
	Authenticate(ctx context.Context, username, password string) bool
	Login(ctx context.Context, username string) (*session.Session, error)
	Logout(id string)
	ChangeSubscription(ctx context.Context, s *session.Session, tier model.Tier) bool
}

// Assistant определяет контракт клиента ассистента.
type Assistant interface {
	Ask(ctx context.Context, uc assistant.UserContext, prompt string) string
	Models(ctx context.Context) ([]string, error)
}

// Pinger проверяет доступность хранилища.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler реализует HTTP-обработчики API сервиса QuickDeliver.
type Handler struct {
	accounts       Accounts
	sessions       Sessions
	assistant      Assistant
	pinger         Pinger
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(
	accounts Accounts,
	sessions Sessions,
	assistant Assistant,
	pinger Pinger,
	logger *zap.Logger,
	auth *middleware.AuthMiddleware,
) *Handler {
	return &Handler{
		accounts:       accounts,
		sessions:       sessions,
		assistant:      assistant,
		pinger:         pinger,
		logger:         logger,
		authMiddleware: auth,
	}
}

// Register обрабатывает регистрацию нового пользователя.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req validation.Signup
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := validation.ValidateSignup(req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	err := h.accounts.Create(r.Context(), req.Username, req.Email, req.Password, strings.TrimSpace(req.Name))
	if err != nil {
		switch {
		case errors.Is(err, account.ErrAlreadyExists):
			writeError(w, r, http.StatusConflict, "Username or email already exists. Please try different credentials.")
		case errors.Is(err, account.ErrUnavailable):
			h.logger.Error("register user error", zap.Error(err))
			writeError(w, r, http.StatusServiceUnavailable, "Registration is temporarily unavailable")
		default:
			h.logger.Error("register user error", zap.Error(err))
			writeError(w, r, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		}
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, messageResponse{
		Message: "Account created successfully! Please sign in with your new credentials.",
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login выполняет аутентификацию пользователя, открывает сессию и устанавливает cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Username == "" || req.Password == "" {
		writeError(w, r, http.StatusBadRequest, "Please fill in all fields")
		return
	}

	if !h.sessions.Authenticate(r.Context(), req.Username, req.Password) {
		writeError(w, r, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	s, err := h.sessions.Login(r.Context(), req.Username)
	if err != nil {
		if errors.Is(err, session.ErrUnknownUser) {
			writeError(w, r, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		h.logger.Error("login user error", zap.Error(err), zap.String("username", req.Username))
		writeError(w, r, http.StatusServiceUnavailable, "Login is temporarily unavailable")
		return
	}

	if err := h.authMiddleware.SetAuthCookie(w, s); err != nil {
		h.logger.Error("set auth cookie error", zap.Error(err))
		h.sessions.Logout(s.ID())
		writeError(w, r, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}

	h.renderSession(w, r, s)
}

// Logout завершает сессию. Запрос без сессии тоже считается успешным.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if id, ok := h.authMiddleware.SessionID(r); ok {
		h.sessions.Logout(id)
	}
	h.authMiddleware.ClearAuthCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

type sessionResponse struct {
	Profile  model.User `json:"profile"`
	Plan     model.Plan `json:"plan"`
	Fallback bool       `json:"fallback"`
}

// GetSession возвращает профиль владельца текущей сессии.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		return
	}
	h.renderSession(w, r, s)
}

func (h *Handler) renderSession(w http.ResponseWriter, r *http.Request, s *session.Session) {
	view, ok := s.View()
	if !ok {
		writeError(w, r, http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		return
	}

	render.JSON(w, r, sessionResponse{
		Profile:  view.Profile,
		Plan:     model.PlanFor(view.Profile.Subscription),
		Fallback: s.Fallback(),
	})
}

// GetDashboard возвращает сводные показатели кабинета.
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	view, ok := viewFromRequest(r)
	if !ok {
		writeError(w, r, http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		return
	}

	render.JSON(w, r, dashboard.Summarize(view))
}

type ordersResponse struct {
	Orders      []model.Order `json:"orders"`
	Restaurants []string      `json:"restaurants"`
}

// GetOrders возвращает заказы текущего пользователя с фильтрами status, restaurant и sort.
func (h *Handler) GetOrders(w http.ResponseWriter, r *http.Request) {
	view, ok := viewFromRequest(r)
	if !ok {
		writeError(w, r, http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		return
	}

	if len(view.Orders) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	q := r.URL.Query()
	var filter dashboard.OrderFilter

	if v := q.Get("status"); v != "" {
		status, err := model.ParseOrderStatus(v)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		filter.Status = status
	}

	sort, err := dashboard.ParseSort(q.Get("sort"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	filter.Sort = sort
	filter.Restaurant = q.Get("restaurant")

	render.JSON(w, r, ordersResponse{
		Orders:      dashboard.FilterOrders(view.Orders, filter),
		Restaurants: dashboard.Restaurants(view.Orders),
	})
}

// GetBills возвращает счета текущего пользователя.
func (h *Handler) GetBills(w http.ResponseWriter, r *http.Request) {
	view, ok := viewFromRequest(r)
	if !ok {
		writeError(w, r, http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		return
	}

	if len(view.Bills) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	render.JSON(w, r, dashboard.Bills(view.Bills))
}

// GetPlans возвращает каталог тарифов.
func (h *Handler) GetPlans(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, model.Plans())
}

type subscriptionRequest struct {
	Tier string `json:"tier"`
}

// UpdateSubscription меняет тариф текущего пользователя.
func (h *Handler) UpdateSubscription(w http.ResponseWriter, r *http.Request) {
	s, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		return
	}

	var req subscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	tier, err := model.ParseTier(req.Tier)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if !h.sessions.ChangeSubscription(r.Context(), s, tier) {
		h.logger.Warn("subscription change failed",
			zap.String("username", s.Username()),
			zap.String("tier", string(tier)),
		)
		writeError(w, r, http.StatusServiceUnavailable, "Subscription could not be updated")
		return
	}

	h.renderSession(w, r, s)
}

// Ping проверяет доступность хранилища.
func (h *Handler) Ping(w http.ResponseWriter, r *http.Request) {
	if h.pinger == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	if err := h.pinger.Ping(r.Context()); err != nil {
		h.logger.Warn("ping database error", zap.Error(err))
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func viewFromRequest(r *http.Request) (model.ViewModel, bool) {
	s, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		return model.ViewModel{}, false
	}
	return s.View()
}
