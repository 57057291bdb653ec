package session

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/mmeshcher/quickdeliver/internal/model"
)

// Session описывает сессию одного пользователя.
//
// Аутентифицированная сессия держит снимок данных пользователя и историю диалога
// с ассистентом. После выхода оба поля обнуляются и сессия становится анонимной.
type Session struct {
	mu sync.Mutex

	id        string
	username  string
	userID    string
	fallback  bool
	expiresAt time.Time

	authenticated bool
	view          *model.ViewModel
	history       []model.ChatMessage
	limiter       *rate.Limiter
}

// ID возвращает идентификатор сессии.
func (s *Session) ID() string { return s.id }

// Username возвращает логин владельца сессии.
func (s *Session) Username() string { return s.username }

// UserID возвращает идентификатор владельца сессии.
func (s *Session) UserID() string { return s.userID }

// Fallback сообщает, собрана ли сессия из демо-данных при недоступном хранилище.
func (s *Session) Fallback() bool { return s.fallback }

// IsAuthenticated сообщает, активна ли сессия.
func (s *Session) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authenticated
}

// View возвращает копию снимка данных пользователя.
// Для анонимной сессии второй результат false.
func (s *Session) View() (model.ViewModel, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.authenticated || s.view == nil {
		return model.ViewModel{}, false
	}
	return model.ViewModel{
		Profile: s.view.Profile,
		Orders:  append([]model.Order(nil), s.view.Orders...),
		Bills:   append([]model.Bill(nil), s.view.Bills...),
	}, true
}

// History возвращает копию истории диалога.
func (s *Session) History() []model.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.ChatMessage{}, s.history...)
}

// AppendMessage добавляет реплику в историю диалога.
func (s *Session) AppendMessage(role model.Role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.authenticated {
		return
	}
	s.history = append(s.history, model.ChatMessage{Role: role, Content: content})
}

// ClearHistory очищает историю диалога.
func (s *Session) ClearHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
}

// Allow сообщает, укладывается ли очередной запрос к ассистенту в лимит сессии.
func (s *Session) Allow() bool {
	if s.limiter == nil {
		return true
	}
	return s.limiter.Allow()
}

func (s *Session) setView(view *model.ViewModel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.authenticated {
		s.view = view
	}
}

func (s *Session) expired(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !now.Before(s.expiresAt)
}

func (s *Session) touch(until time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expiresAt = until
}

func (s *Session) teardown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.authenticated = false
	s.view = nil
	s.history = nil
}
