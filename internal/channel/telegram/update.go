package telegram

import (
	"strconv"
	"strings"

	"github.com/spigell/hh-screener/internal/interview"
)

const startCommand = "/start"

// Update is the subset of a Bot API update the screener reacts to.
type Update struct {
	ID          int64    `mapstructure:"update_id"`
	Message     *Message `mapstructure:"message"`
	ChannelPost *Message `mapstructure:"channel_post"`
}

type Message struct {
	ID   int64  `mapstructure:"message_id"`
	Date int64  `mapstructure:"date"`
	Chat Chat   `mapstructure:"chat"`
	Text string `mapstructure:"text"`
}

type Chat struct {
	ID    int64  `mapstructure:"id"`
	Type  string `mapstructure:"type"`
	Title string `mapstructure:"title"`
}

// Payload returns the message carried by the update, if any.
func (u *Update) Payload() *Message {
	if u.Message != nil {
		return u.Message
	}
	return u.ChannelPost
}

// Identity is the conversation key: the chat id.
func (m *Message) Identity() string {
	return strconv.FormatInt(m.Chat.ID, 10)
}

// Event maps a message onto an interview event. Anything without text
// (photos, stickers, documents) is a non-text event.
func (m *Message) Event() interview.Event {
	id := m.Identity()

	if m.Text == "" {
		return interview.NonTextEvent(id)
	}
	if isStart(m.Text) {
		return interview.ResetEvent(id)
	}
	return interview.TextEvent(id, m.Text)
}

// isStart matches "/start", "/start@bot" and "/start payload".
func isStart(text string) bool {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return false
	}
	command, _, _ := strings.Cut(fields[0], "@")
	return command == startCommand
}
