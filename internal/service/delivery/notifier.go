package delivery

import (
	"github.com/gen2brain/beeep"
	"github.com/rs/zerolog"

	"voice-dictation/internal/observability/logging"
)

// Notifier shows user-visible warnings.
type Notifier interface {
	Notify(title, message string)
}

// LogNotifier writes warnings to the log only.
type LogNotifier struct {
	log zerolog.Logger
}

// NewLogNotifier creates a log-only notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{log: logging.WithComponent("notify")}
}

// Notify implements Notifier.
func (n *LogNotifier) Notify(title, message string) {
	n.log.Warn().Str("title", title).Msg(message)
}

// DesktopNotifier raises a desktop notification and logs it.
type DesktopNotifier struct {
	fallback *LogNotifier
}

// NewDesktopNotifier creates a notifier using the OS notification service.
func NewDesktopNotifier() *DesktopNotifier {
	return &DesktopNotifier{fallback: NewLogNotifier()}
}

// Notify implements Notifier.
func (n *DesktopNotifier) Notify(title, message string) {
	n.fallback.Notify(title, message)
	if err := beeep.Notify(title, message, ""); err != nil {
		n.fallback.log.Debug().Err(err).Msg("Desktop notification failed")
	}
}
