package model

import "time"

type View string

const (
	ViewIdle          View = "IDLE"
	ViewPhoneInput    View = "PHONE_INPUT"
	ViewCart          View = "CART"
	ViewMemberConfirm View = "MEMBER_CONFIRM"
	ViewProcessing    View = "PROCESSING"
	ViewSignature     View = "SIGNATURE"
	ViewSuccess       View = "SUCCESS"
	ViewError         View = "ERROR"
)

type MemoColor string

const (
	MemoColorRed   MemoColor = "red"
	MemoColorBlue  MemoColor = "blue"
	MemoColorGreen MemoColor = "green"
)

// PaymentResult is what a display shows on the SUCCESS view.
type PaymentResult struct {
	Message          string `json:"message"`
	ResultingBalance int64  `json:"resulting_balance"`
}

// Session is the authoritative per-terminal record pushed to displays.
// It has a single writer (the terminal); displays only ever read it and
// talk back through Actions.
type Session struct {
	TerminalID    string          `json:"terminal_id"`
	View          View            `json:"view"`
	Cart          []CartItem      `json:"cart"`
	Member        *MemberSnapshot `json:"member,omitempty"`
	Total         int64           `json:"total"`
	StoreName     string          `json:"store_name,omitempty"`
	Memo          string          `json:"memo,omitempty"`
	MemoColor     MemoColor       `json:"memo_color,omitempty"`
	LastResult    *PaymentResult  `json:"last_result,omitempty"`
	ErrorMessage  string          `json:"error_message,omitempty"`
	PendingAction *Action         `json:"pending_action,omitempty"`
	LastUpdated   int64           `json:"last_updated"` // unix millis
}

// NewSession returns the IDLE defaults for a terminal. Sessions are created
// lazily on first sync and are never deleted, only reset back to this shape.
func NewSession(terminalID string) Session {
	return Session{
		TerminalID: terminalID,
		View:       ViewIdle,
		Cart:       []CartItem{},
	}
}

type ActionType string

const ActionPhoneSubmit ActionType = "PHONE_SUBMIT"

// Action is a display-originated request. Timestamp is unix millis at the
// display; the terminal discards actions older than its freshness window.
type Action struct {
	ID        string            `json:"id"`
	Type      ActionType        `json:"type"`
	Payload   map[string]string `json:"payload"`
	Timestamp int64             `json:"timestamp"`
}

func (a Action) Age(now time.Time) time.Duration {
	return now.Sub(time.UnixMilli(a.Timestamp))
}
