// Package orchestrator validates a copy request, selects a driver, and
// drains the status bus on the calling goroutine until all work has
// finished.
package orchestrator

import (
	"sync/atomic"

	log "github.com/sirupsen/logrus"

	"github.com/vexxhost/pcp/internal/config"
	"github.com/vexxhost/pcp/internal/driver"
	"github.com/vexxhost/pcp/internal/statusbus"
	"github.com/vexxhost/pcp/internal/xcperr"
)

// StatusSink consumes aggregated progress on behalf of the UI. Bytes may
// arrive out of offset order across workers, so both methods must be
// additive.
type StatusSink interface {
	// GrowTotal enlarges the expected byte total.
	GrowTotal(n int64)
	// Add records n more copied bytes.
	Add(n int64)
	// Finish flushes the sink once the run is over.
	Finish()
}

// Run executes one copy invocation end to end and returns the most severe
// error observed, or nil on full success.
func Run(cfg *config.Config, args []string, sink StatusSink) error {
	plan, err := Preflight(cfg, args)
	if err != nil {
		return err
	}
	if err := driver.SupportedPlatform(cfg); err != nil {
		return err
	}

	bus, sender := statusbus.New(cfg.ChannelCapacity)
	var aborting atomic.Bool

	d := driver.New(cfg, sender, &aborting)
	walkDone := make(chan error, 1)
	go func() {
		walkDone <- d.CopyAll(plan.Sources, plan.Dest, plan.DestIsDir)
	}()

	// The driver and pool hold their own clones; release ours so the bus
	// closes once they finish.
	sender.Close()

	var worst error
	for ev := range bus.Events() {
		switch ev.Kind {
		case statusbus.SizeDiscovered:
			sink.GrowTotal(ev.Bytes)

		case statusbus.BytesCopied:
			sink.Add(ev.Bytes)

		case statusbus.Failed:
			kind := xcperr.KindOf(ev.Err)
			if !kind.Fatal() {
				log.WithField("op", ev.Op).WithError(ev.Err).Warn("⚠️ non-fatal")
				continue
			}
			log.WithField("op", ev.Op).WithError(ev.Err).Error("❌ copy failed")
			aborting.Store(true)
			worst = worse(worst, ev.Err)
		}
	}

	if err := <-walkDone; err != nil {
		log.WithError(err).Error("❌ walk failed")
		aborting.Store(true)
		worst = worse(worst, err)
	}

	sink.Finish()
	return worst
}

// worse keeps whichever error maps to the higher exit code, preferring the
// earlier one on a tie so the first failure is the one reported.
func worse(a, b error) error {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if xcperr.KindOf(b).ExitCode() > xcperr.KindOf(a).ExitCode() {
		return b
	}
	return a
}
