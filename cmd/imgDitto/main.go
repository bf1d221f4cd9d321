package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jdefrancesco/imgDitto/internal/dsklog"

	"github.com/pterm/pterm"
	"github.com/pterm/pterm/putils"
)

// Version
const ver = "0.1.0"

// signalHandler cancels the running command. In-flight lookups and
// removals stop at the next check.
func signalHandler(cancel context.CancelFunc, sig os.Signal) {
	dsklog.Dlogger.Infof("Signal received: %v", sig)

	switch sig {
	case syscall.SIGINT:
		fmt.Fprintf(os.Stderr, "\r[!] SIGINT! Quitting...\n")
	default:
		fmt.Fprintf(os.Stderr, "\r[!] %v received. Quitting...\n", sig)
	}
	cancel()
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		for sig := range sigChan {
			signalHandler(cancel, sig)
		}
	}()

	cmd := newRootCommand()
	if err := cmd.ExecuteContext(ctx); err != nil {
		dsklog.Dlogger.Errorf("Command failed: %v", err)
		if !errors.Is(err, context.Canceled) {
			pterm.Error.Println(err)
		}
		os.Exit(1)
	}
}

// showHeader prints colorful imgDitto banner.
func showHeader() {

	fmt.Println("")

	_ = pterm.DefaultBigText.WithLetters(
		putils.LettersFromStringWithStyle("img", pterm.NewStyle(pterm.FgLightGreen)),
		putils.LettersFromStringWithStyle("Ditto", pterm.NewStyle(pterm.FgLightWhite))).
		Render()
}
