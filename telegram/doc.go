// Package telegram is the bot transport: Bot API update parsing and a small
// client for sending messages and managing the webhook.
//
// Client.Notify satisfies pipeline.Notifier, with the chat ID as session ID.
package telegram
