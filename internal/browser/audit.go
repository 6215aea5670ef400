package browser

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/chromedp/chromedp"
)

const auditURL = "https://bot.sannysoft.com"

// AuditFingerprint opens the fingerprint test page in a visible browser with
// the stealth options and keeps it open until a line is read from in.
func AuditFingerprint(ctx context.Context, log *slog.Logger, in io.Reader) error {
	log.Info("opening fingerprint audit page", "url", auditURL)

	browserCtx, cancel := NewContext(ctx, false)
	defer cancel()

	err := chromedp.Run(browserCtx,
		chromedp.Navigate(auditURL),
		chromedp.WaitVisible("body", chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("failed to navigate: %w", err)
	}

	log.Info("press Enter to close the browser")
	if err := waitForLine(ctx, in); err != nil {
		return err
	}

	log.Info("done")
	return nil
}

// waitForLine returns once a line has been read from in or ctx is done.
// A read still pending on cancellation is abandoned.
func waitForLine(ctx context.Context, in io.Reader) error {
	read := make(chan struct{})
	go func() {
		_, _ = bufio.NewReader(in).ReadString('\n')
		close(read)
	}()

	select {
	case <-read:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
