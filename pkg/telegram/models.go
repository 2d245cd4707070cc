package telegram

import (
	"encoding/json"
	"io"
)

// apiResponse is the envelope every Bot API method returns
type apiResponse struct {
	OK          bool                `json:"ok"`
	Result      json.RawMessage     `json:"result"`
	ErrorCode   int                 `json:"error_code"`
	Description string              `json:"description"`
	Parameters  *responseParameters `json:"parameters"`
}

type responseParameters struct {
	RetryAfter      int   `json:"retry_after"`
	MigrateToChatID int64 `json:"migrate_to_chat_id"`
}

// User is a Telegram user or bot
type User struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
	FirstName string `json:"first_name"`
	Username  string `json:"username"`
}

// Chat identifies where a message was posted
type Chat struct {
	ID       int64  `json:"id"`
	Type     string `json:"type"`
	Title    string `json:"title"`
	Username string `json:"username"`
}

// PhotoSize is one server-side rendition of an uploaded photo
type PhotoSize struct {
	FileID       string `json:"file_id"`
	FileUniqueID string `json:"file_unique_id"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	FileSize     int    `json:"file_size"`
}

// Message is the posted message returned by sendPhoto
type Message struct {
	MessageID int         `json:"message_id"`
	Date      int64       `json:"date"`
	Chat      Chat        `json:"chat"`
	Caption   string      `json:"caption"`
	Photo     []PhotoSize `json:"photo"`
}

// SendPhotoRequest is a photo upload to a chat or channel
type SendPhotoRequest struct {
	// ChatID is a numeric chat id or an @channelusername
	ChatID   string
	Photo    io.Reader
	FileName string
	Caption  string
}
