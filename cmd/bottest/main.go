// Command bottest opens bot.sannysoft.com in a browser using the same
// stealth options as the search scraper, allowing you to audit the browser fingerprint.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/ibeckermayer/fbsweep/internal/browser"
	"github.com/ibeckermayer/fbsweep/internal/logger"
)

func main() {
	log, closer, err := logger.New(logger.Opts{Level: "info"})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer closer.Close()

	if err := browser.AuditFingerprint(context.Background(), log, os.Stdin); err != nil {
		log.Error("fingerprint audit failed", "error", err)
		os.Exit(1)
	}
}
