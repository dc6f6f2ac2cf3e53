package model

import "time"

// ToastKind is the visual flavor of a transient alert. Distinct from
// (and mapped from) the notification Kind.
type ToastKind string

const (
	ToastSuccess ToastKind = "success"
	ToastError   ToastKind = "error"
	ToastInfo    ToastKind = "info"
	ToastWarning ToastKind = "warning"
)

// ToastAction is an optional single action rendered on the toast.
type ToastAction struct {
	Label string
	Run   func()
}

// Toast is a client-only alert. When derived from a notification it reuses the
// notification id, so a repeated push never yields two toasts with one id.
type Toast struct {
	ID       string
	Kind     ToastKind
	Title    string
	Message  string
	Duration time.Duration
	Action   *ToastAction
}

// Mapping tables kept as data so they stay trivially extensible.
var toastKindFor = map[Kind]ToastKind{
	KindComment: ToastInfo,
	KindMention: ToastInfo,
	KindProject: ToastInfo,
	KindExport:  ToastSuccess,
	KindSystem:  ToastWarning,
}

var toastDurationFor = map[Priority]time.Duration{
	PriorityLow:    5000 * time.Millisecond,
	PriorityNormal: 5000 * time.Millisecond,
	PriorityHigh:   5000 * time.Millisecond,
	PriorityUrgent: 10000 * time.Millisecond,
}

// BroadcastToastDuration applies to system-wide broadcast toasts.
const BroadcastToastDuration = 8000 * time.Millisecond

// DefaultToastDuration applies when the priority is unknown.
const DefaultToastDuration = 5000 * time.Millisecond

// ToastFrom derives the transient alert for a pushed notification.
func ToastFrom(n Notification) Toast {
	kind, ok := toastKindFor[n.Kind]
	if !ok {
		kind = ToastInfo
	}
	d, ok := toastDurationFor[n.Priority]
	if !ok {
		d = DefaultToastDuration
	}
	return Toast{
		ID:       n.ID,
		Kind:     kind,
		Title:    n.Title,
		Message:  n.Message,
		Duration: d,
	}
}

// BroadcastToastFrom derives the toast for a broadcast notification, which is
// never persisted locally.
func BroadcastToastFrom(n Notification) Toast {
	return Toast{
		ID:       n.ID,
		Kind:     ToastInfo,
		Title:    n.Title,
		Message:  n.Message,
		Duration: BroadcastToastDuration,
	}
}
