package main

import (
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/trezz/shipdit/server/internal/game"
	"github.com/trezz/shipdit/server/internal/tui"
)

func main() {
	seed := flag.Uint64("seed", 0, "random seed for fleet placement and enemy fire (0 picks one)")
	auto := flag.Bool("auto", false, "place your fleet at random when a match starts")
	splash := flag.Duration("splash", 600*time.Millisecond, "how long a shot stays highlighted")
	you := flag.String("you", "human", "who plays your board: human or ai")
	flag.Parse()

	seat, err := game.ParsePlayerKind(*you)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid -you: %v\n", err)
		os.Exit(2)
	}

	if *seed == 0 {
		*seed = uint64(time.Now().UnixNano())
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	if err := screen.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}

	app, err := tui.New(screen, tui.Options{
		Rand:      rand.New(rand.NewPCG(*seed, *seed>>1|1)),
		Seat:      seat,
		AutoPlace: *auto,
		Splash:    *splash,
	})
	if err != nil {
		screen.Fini()
		fmt.Fprintf(os.Stderr, "Failed to start match: %v\n", err)
		os.Exit(1)
	}

	app.Run()
	screen.Fini()
	fmt.Printf("seed %d\n", *seed)
}
