// planner-sim is a headless planner client. It opens (or creates) a
// tablet, runs the reconciliation loop against a live server, and plays
// a short scripted session: place a ship, drag it, rotate it, ping.
// Useful for smoke-testing a deployment end to end.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Kwentar/wows-planner/internal/client"
	"github.com/Kwentar/wows-planner/internal/interact"
	"github.com/Kwentar/wows-planner/internal/sync"
)

func main() {
	baseURL := flag.String("server", "http://localhost:8080", "planner server base URL")
	tabletID := flag.String("tablet", "", "tablet id to open; created when empty")
	name := flag.String("name", "sim", "display name for this client")
	script := flag.Bool("script", true, "play the scripted gesture sequence")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.DebugLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		cancel()
	}()

	if err := run(ctx, *baseURL, *tabletID, *name, *script); err != nil {
		log.Fatal().Err(err).Msg("simulation failed")
	}
}

func run(ctx context.Context, baseURL, tabletID, name string, script bool) error {
	api, err := client.New(baseURL)
	if err != nil {
		return err
	}

	me, err := api.GetMe(ctx)
	if err != nil {
		return err
	}
	if err := api.Rename(ctx, name); err != nil {
		return err
	}
	log.Info().Str("user_id", me.ID).Bool("anonymous", me.IsAnonymous).Msg("identity resolved")

	var t client.Tablet
	if tabletID == "" {
		t, err = api.CreateTablet(ctx, "sim session")
	} else {
		t, err = api.GetTablet(ctx, tabletID)
	}
	if err != nil {
		return err
	}
	log.Info().Str("tablet_id", t.ID).Str("title", t.Title).Bool("can_edit", t.CanEdit).Msg("tablet open")

	clock := clockwork.NewRealClock()
	session := sync.NewSession(clock, t.ID, me.ID, t.OwnerID == me.ID, t.CanEdit, t.Layers)
	reconciler := sync.NewReconciler(api, session, clock)

	socket, err := api.DialSocket(ctx, t.ID)
	if err != nil {
		return err
	}
	defer socket.Close()

	go func() {
		for {
			data, err := socket.Read()
			if err != nil {
				log.Debug().Err(err).Msg("socket closed")
				return
			}
			reconciler.HandleFrame(data)
		}
	}()

	controller := sync.NewController(ctx, api, session, socket)
	go reconciler.Run(ctx)

	if script {
		playScript(controller, clock)
	}

	<-ctx.Done()
	return nil
}

// playScript drives a machine through one believable editing session.
func playScript(controller *sync.Controller, clock clockwork.Clock) {
	machine := interact.NewMachine(controller)
	machine.SetViewport(interact.Viewport{Width: 1000, Height: 1000})

	machine.SelectTool(interact.ToolShipDD)
	machine.PointerDown(250, 250)

	layer, ok := controller.ActiveLayer()
	if !ok || len(layer.Items) == 0 {
		log.Warn().Msg("no item placed, script stopped")
		return
	}
	itemID := layer.Items[len(layer.Items)-1].ID

	machine.SelectTool(interact.ToolPointer)
	machine.PointerDownOnItem(itemID, 250, 250)
	for i := 1; i <= 10; i++ {
		machine.PointerMove(250+float64(i)*30, 250+float64(i)*10)
		clock.Sleep(50 * time.Millisecond)
	}
	machine.PointerUp()

	machine.SelectTool(interact.ToolRotate)
	machine.PointerDownOnItem(itemID, 650, 250)
	machine.PointerMove(550, 450)
	machine.PointerUp()

	machine.SelectTool(interact.ToolPing)
	machine.PointerDown(500, 500)

	log.Info().Str("item_id", itemID).Msg("script complete")
}
