package telegram

// Package telegram is a minimal Telegram Bot API client covering exactly the
// capability surface the core needs: text and media sends, message copy and
// forward, chat actions, reactions, inline keyboards and long-poll updates.
