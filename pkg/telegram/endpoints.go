package telegram

import (
	"strings"
)

const (
	// DefaultBaseURL is the public Bot API server
	DefaultBaseURL = "https://api.telegram.org"

	methodSendPhoto = "sendPhoto"
	methodGetMe     = "getMe"

	redacted = "<redacted>"
)

// methodURL builds the URL of a Bot API method
func (c *Client) methodURL(method string) string {
	return c.baseURL + "/bot" + c.token + "/" + method
}

// redact hides the bot token in anything destined for logs or errors
func (c *Client) redact(s string) string {
	if c.token == "" {
		return s
	}
	return strings.ReplaceAll(s, c.token, redacted)
}
