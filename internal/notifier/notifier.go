package notifier

import (
	"fmt"
	"log/slog"

	"github.com/ibeckermayer/fbsweep/internal/config"
	"github.com/ibeckermayer/fbsweep/internal/digest"
	"github.com/ibeckermayer/fbsweep/internal/notifier/providers"
)

// Notifier handles sending run summaries
type Notifier struct {
	sender Sender
	log    *slog.Logger
}

// Sender delivers one message to the recipient it was built for
type Sender interface {
	Name() string
	Send(subject, htmlBody, plainBody string) error
}

// New creates a new notifier with the given sender
func New(sender Sender, log *slog.Logger) *Notifier {
	return &Notifier{sender: sender, log: log}
}

// NewFromConfig creates a notifier based on configuration.
// It returns nil when notifications are disabled.
func NewFromConfig(cfg config.NotifyConfig, log *slog.Logger) (*Notifier, error) {
	var sender Sender

	switch cfg.Provider {
	case "":
		return nil, nil
	case providers.NameTelegram:
		tg, err := providers.NewTelegramSender(cfg.TelegramToken, cfg.TelegramChatID, "")
		if err != nil {
			return nil, err
		}
		sender = tg
	case providers.NameSMTP:
		sender = providers.NewSMTPSender(
			cfg.SMTPHost,
			cfg.SMTPPort,
			cfg.SMTPUser,
			cfg.SMTPPass,
			cfg.FromAddr,
			cfg.ToAddr,
		)
	default:
		return nil, fmt.Errorf("unknown notify provider: %s", cfg.Provider)
	}

	return New(sender, log), nil
}

// SendDigest sends a run summary
func (n *Notifier) SendDigest(d *digest.Digest) error {
	if err := n.sender.Send(d.Subject, d.HTMLBody, d.PlainBody); err != nil {
		return fmt.Errorf("%s: %w", n.sender.Name(), err)
	}
	n.log.Info("summary sent", "provider", n.sender.Name(), "posts", d.Posts)
	return nil
}
