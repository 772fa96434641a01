package ai

import "context"

// AI — внешний интеллект, не знает ни про заказы, ни про БД.
// Один запрос — один ответ: system prompt + вход, сырой текст на выходе.
type AI interface {
	GetReply(
		ctx context.Context,
		systemPrompt string,
		input string,
	) (string, error)
}

// Message — универсальный формат диалога для AI
type Message struct {
	Role string // "user" | "assistant" | "system"
	Text string
}
