// Package session реализует аутентификацию и жизненный цикл пользовательских сессий.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/mmeshcher/quickdeliver/internal/account"
	"github.com/mmeshcher/quickdeliver/internal/metrics"
	"github.com/mmeshcher/quickdeliver/internal/model"
	"github.com/mmeshcher/quickdeliver/internal/password"
)

// ErrUnknownUser возвращается при входе под несуществующим логином.
var ErrUnknownUser = errors.New("unknown user")

// Accounts описывает операции хранилища учётных записей, нужные менеджеру сессий.
type Accounts interface {
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	OrdersFor(ctx context.Context, userID string) []model.Order
	BillsFor(ctx context.Context, userID string) []model.Bill
	UpdateSubscription(ctx context.Context, userID string, tier model.Tier) bool
}

// Options задаёт параметры сессий.
type Options struct {
	// TTL задаёт время жизни сессии без обращений.
	TTL time.Duration
	// Rate и Burst ограничивают частоту запросов к ассистенту в рамках сессии.
	Rate  rate.Limit
	Burst int
}

// DefaultTTL задаёт время жизни сессии по умолчанию.
const DefaultTTL = time.Hour

// Manager создаёт, находит и завершает сессии.
type Manager struct {
	accounts Accounts
	logger   *zap.Logger
	opts     Options
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager создаёт менеджер сессий.
func NewManager(accounts Accounts, logger *zap.Logger, opts Options) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Rate <= 0 {
		opts.Rate = rate.Inf
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}

	return &Manager{
		accounts: accounts,
		logger:   logger,
		opts:     opts,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Authenticate проверяет логин и пароль. Состояние сессий не меняется.
//
// Если хранилище недоступно, проверка выполняется только для демо-учётной записи.
func (m *Manager) Authenticate(ctx context.Context, username, plaintext string) bool {
	u, err := m.accounts.FindByUsername(ctx, username)
	switch {
	case err == nil:
		return password.Verify(plaintext, u.PasswordHash)
	case errors.Is(err, account.ErrUnavailable) && username == DemoUsername:
		m.logger.Warn("credential store unavailable, checking demo account")
		return password.Verify(plaintext, demoUser().PasswordHash)
	default:
		return false
	}
}

// Login открывает аутентифицированную сессию и собирает для неё снимок данных.
// Вызывается после успешного Authenticate.
func (m *Manager) Login(ctx context.Context, username string) (*Session, error) {
	view, fallback, err := m.compose(ctx, username)
	if err != nil {
		metrics.RecordLogin(metrics.LoginFailure)
		return nil, err
	}

	now := m.now()
	s := &Session{
		id:            uuid.NewString(),
		username:      username,
		userID:        view.Profile.ID,
		fallback:      fallback,
		expiresAt:     now.Add(m.opts.TTL),
		authenticated: true,
		view:          view,
		limiter:       rate.NewLimiter(m.opts.Rate, m.opts.Burst),
	}

	m.mu.Lock()
	expired := m.sweepLocked(now)
	m.sessions[s.id] = s
	m.mu.Unlock()

	for _, old := range expired {
		old.teardown()
		metrics.SessionClosed()
		m.logger.Info("session expired", zap.String("username", old.username))
	}

	metrics.SessionOpened()
	if fallback {
		metrics.RecordLogin(metrics.LoginFallback)
	} else {
		metrics.RecordLogin(metrics.LoginSuccess)
	}

	m.logger.Info("session opened",
		zap.String("username", username),
		zap.Bool("fallback", fallback),
	)
	return s, nil
}

// Logout завершает сессию. Повторный вызов ничего не делает.
func (m *Manager) Logout(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return
	}
	s.teardown()
	metrics.SessionClosed()
	m.logger.Info("session closed", zap.String("username", s.username))
}

// sweepLocked убирает из реестра истёкшие сессии и возвращает их. Вызывается под m.mu.
func (m *Manager) sweepLocked(now time.Time) []*Session {
	var expired []*Session
	for id, s := range m.sessions {
		if s.expired(now) {
			delete(m.sessions, id)
			expired = append(expired, s)
		}
	}
	return expired
}

// IsAuthenticated сообщает, есть ли живая сессия с таким идентификатором.
func (m *Manager) IsAuthenticated(id string) bool {
	_, ok := m.Lookup(id)
	return ok
}

// Lookup возвращает живую сессию и продлевает её. Истёкшая сессия завершается.
func (m *Manager) Lookup(id string) (*Session, bool) {
	now := m.now()

	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok && s.expired(now) {
		delete(m.sessions, id)
		m.mu.Unlock()

		s.teardown()
		metrics.SessionClosed()
		m.logger.Info("session expired", zap.String("username", s.username))
		return nil, false
	}
	m.mu.Unlock()

	if !ok {
		return nil, false
	}
	s.touch(now.Add(m.opts.TTL))
	return s, true
}

// Refresh пересобирает снимок данных сессии.
func (m *Manager) Refresh(ctx context.Context, s *Session) error {
	view, _, err := m.compose(ctx, s.username)
	if err != nil {
		return err
	}
	s.setView(view)
	return nil
}

// ChangeSubscription сохраняет новый уровень подписки и обновляет снимок данных.
func (m *Manager) ChangeSubscription(ctx context.Context, s *Session, tier model.Tier) bool {
	if !s.IsAuthenticated() || s.fallback {
		return false
	}
	if !m.accounts.UpdateSubscription(ctx, s.userID, tier) {
		return false
	}
	if err := m.Refresh(ctx, s); err != nil {
		m.logger.Error("refresh session error", zap.Error(err), zap.String("username", s.username))
	}
	return true
}

func (m *Manager) compose(ctx context.Context, username string) (*model.ViewModel, bool, error) {
	u, err := m.accounts.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, account.ErrUnavailable) && username == DemoUsername {
			m.logger.Warn("credential store unavailable, using demo dataset")
			return demoView(), true, nil
		}
		if errors.Is(err, account.ErrNotFound) {
			return nil, false, ErrUnknownUser
		}
		return nil, false, err
	}

	profile := *u
	profile.PasswordHash = ""

	return &model.ViewModel{
		Profile: profile,
		Orders:  m.accounts.OrdersFor(ctx, u.ID),
		Bills:   m.accounts.BillsFor(ctx, u.ID),
	}, false, nil
}
