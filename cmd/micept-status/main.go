// micept-status is a terminal view of the micept daemon: client
// connectivity, gameflow phase, summoner and the user toggles, with keys to
// flip the toggles.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"

	"github.com/mirakyux/micept/internal/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "micept-status: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	settings, _ := config.LoadSettings()
	addr := settings.ListenAddr

	flagSet := pflag.NewFlagSet("micept-status", pflag.ContinueOnError)
	flagSet.StringVar(&addr, "addr", addr, "micept daemon address")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := newStream("ws://" + addr + "/ws")
	go s.run(ctx)

	program := tea.NewProgram(newModel(s.out, s.send), tea.WithAltScreen())
	_, err := program.Run()
	return err
}
