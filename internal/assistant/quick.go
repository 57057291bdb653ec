package assistant

// QuickAction описывает готовый вопрос, который пользователь отправляет одной кнопкой.
type QuickAction struct {
	Name   string `json:"name"`
	Label  string `json:"label"`
	Prompt string `json:"-"`
}

var quickActions = []QuickAction{
	{Name: "track_order", Label: "I want to track my recent order", Prompt: "I want to track my recent order status"},
	{Name: "billing_help", Label: "I have a question about my bill", Prompt: "I have a question about my monthly bill"},
	{Name: "restaurant_recs", Label: "Can you recommend some restaurants?", Prompt: "Can you recommend some restaurants based on my order history?"},
	{Name: "account_settings", Label: "Help me with my account settings", Prompt: "Help me with my account settings and preferences"},
}

// QuickActions возвращает список готовых вопросов.
func QuickActions() []QuickAction {
	return append([]QuickAction(nil), quickActions...)
}

// QuickPrompt возвращает готовый вопрос по имени действия.
func QuickPrompt(name string) (QuickAction, bool) {
	for _, a := range quickActions {
		if a.Name == name {
			return a, true
		}
	}
	return QuickAction{}, false
}
