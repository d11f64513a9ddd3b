package telegram

import (
	"regexp"
	"strconv"
	"strings"
)

var postLinkPattern = regexp.MustCompile(`(?:https?://)?(?:t\.me|telegram\.me)/([a-zA-Z0-9_]+)/(\d+)`)

// PostLink points at a message in a public channel.
type PostLink struct {
	Channel   string
	MessageID int64
}

// ParsedMessage is the part of an update the bot acts on.
type ParsedMessage struct {
	UpdateID  int64
	ChatID    int64
	MessageID int64
	Text      string
	// Link is the first channel post link found in Text, if any.
	Link *PostLink
	// Forwarded is set when the message was forwarded from a channel.
	Forwarded bool
}

// SessionID returns the chat ID in the form pipeline notifiers expect.
func (m *ParsedMessage) SessionID() string {
	return strconv.FormatInt(m.ChatID, 10)
}

// IsLinkOnly reports whether the message holds a channel post link and
// nothing else worth searching for.
func (m *ParsedMessage) IsLinkOnly() bool {
	if m.Link == nil {
		return false
	}
	return strings.TrimSpace(postLinkPattern.ReplaceAllString(m.Text, "")) == ""
}

// Command returns the bot command the message starts with, without the
// leading slash or a @botname suffix. It returns "" for ordinary text.
func (m *ParsedMessage) Command() string {
	text := strings.TrimSpace(m.Text)
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	cmd, _, _ := strings.Cut(text[1:], " ")
	cmd, _, _ = strings.Cut(cmd, "@")
	return strings.ToLower(cmd)
}

// ParseUpdate extracts the chat, message ID and text of a new message.
// The caption is used for media messages. The second return value is false
// for updates that carry no new message.
func ParseUpdate(update *Update) (*ParsedMessage, bool) {
	if update == nil || update.Message == nil {
		return nil, false
	}
	msg := update.Message

	text := msg.Text
	if text == "" {
		text = msg.Caption
	}

	parsed := &ParsedMessage{
		UpdateID:  update.UpdateID,
		ChatID:    msg.Chat.ID,
		MessageID: msg.MessageID,
		Text:      text,
		Forwarded: msg.ForwardFromChat != nil,
	}
	if link, ok := ParseTelegramLink(text); ok {
		parsed.Link = link
	}
	return parsed, true
}

// ParseTelegramLink finds the first t.me or telegram.me post link in text.
func ParseTelegramLink(text string) (*PostLink, bool) {
	m := postLinkPattern.FindStringSubmatch(text)
	if m == nil {
		return nil, false
	}
	id, err := strconv.ParseInt(m[2], 10, 64)
	if err != nil {
		return nil, false
	}
	return &PostLink{Channel: m[1], MessageID: id}, true
}
