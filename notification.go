package membership

import (
	"context"
)

// Notification is the structured payload handed to a NotificationPort.
// The engine only supplies data; rendering and transmission belong to
// the caller.
type Notification struct {
	Recipient   string         `json:"recipient"`
	SubjectHint string         `json:"subject_hint"`
	Data        map[string]any `json:"data,omitempty"`
}

// Subject hints for the bundled flows.
const (
	SubjectHintActivation        = "account.activation"
	SubjectHintForgottenPassword = "account.forgotten_password"
)

// NotificationPort dispatches activation and reset messages. The engine
// never retries a failed dispatch; record creation stands either way.
type NotificationPort interface {
	Dispatch(ctx context.Context, msg Notification) error
}

// NotificationPortFunc adapts a function to the NotificationPort interface.
type NotificationPortFunc func(ctx context.Context, msg Notification) error

func (f NotificationPortFunc) Dispatch(ctx context.Context, msg Notification) error {
	if f == nil {
		return nil
	}
	return f(ctx, msg)
}

// LogNotifier writes notifications through the logger. Useful in
// development, where the original system printed reset links to stdout.
type LogNotifier struct {
	Logger Logger
}

var _ NotificationPort = LogNotifier{}

func (n LogNotifier) Dispatch(_ context.Context, msg Notification) error {
	logger := n.Logger
	if logger == nil {
		logger = defLogger{}
	}

	logger.Info("notification to=%s subject=%s data=%v", msg.Recipient, msg.SubjectHint, msg.Data)
	return nil
}

// ActivationDetails is returned by Register when activation is required.
// The caller hands it to its NotificationPort; the core neither renders
// nor transmits.
type ActivationDetails struct {
	Identity string `json:"identity"`
	UserID   string `json:"id"`
	Email    string `json:"email"`
	Code     string `json:"activation"`
}

// Notification builds the dispatch payload for an activation message.
func (d ActivationDetails) Notification() Notification {
	return Notification{
		Recipient:   d.Email,
		SubjectHint: SubjectHintActivation,
		Data: map[string]any{
			"identity":   d.Identity,
			"id":         d.UserID,
			"activation": d.Code,
		},
	}
}

// ResetDetails is returned by ForgottenPassword for the caller to
// dispatch.
type ResetDetails struct {
	Identity string `json:"identity"`
	Email    string `json:"email"`
	Code     string `json:"forgotten_password_code"`
}

// Notification builds the dispatch payload for a reset message.
func (d ResetDetails) Notification() Notification {
	return Notification{
		Recipient:   d.Email,
		SubjectHint: SubjectHintForgottenPassword,
		Data: map[string]any{
			"identity":                d.Identity,
			"forgotten_password_code": d.Code,
		},
	}
}
