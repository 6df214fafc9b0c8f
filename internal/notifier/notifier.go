package notifier

// TextNotifier is the fire-and-forget notification collaborator. Delivery
// is best-effort; failures must never affect trading decisions.
type TextNotifier interface {
	SendText(text string) error
}

// Noop drops every message; used when no channel is configured.
type Noop struct{}

func (Noop) SendText(string) error { return nil }
