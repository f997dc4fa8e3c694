package models

// NoticeLevel mirrors the icon of a blocking notice.
type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeSuccess NoticeLevel = "success"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// Notice is a user-facing modal message. ConfirmLabel is set when the notice
// asks the user to confirm an action.
type Notice struct {
	Level        NoticeLevel `json:"level"`
	Title        string      `json:"title"`
	Text         string      `json:"text"`
	ConfirmLabel string      `json:"confirmLabel,omitempty"`
}

// NewNotice builds a notice.
func NewNotice(level NoticeLevel, title, text string) *Notice {
	return &Notice{Level: level, Title: title, Text: text}
}
