package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
)

// ingestProgress tracks a known number of orders for one shop and names the
// order currently being embedded.
type ingestProgress struct {
	bar  *progressbar.ProgressBar
	shop string
}

func newIngestProgress(total int, shop string) *ingestProgress {
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(color.BlueString(" %s", shop)),
		progressbar.OptionSetItsString("orders"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(30),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)
	return &ingestProgress{bar: bar, shop: shop}
}

// update is an ingest.Config OnProgress callback.
func (p *ingestProgress) update(done, total int, refID string) {
	p.bar.Describe(color.BlueString(" %s #%s", p.shop, refID))
	_ = p.bar.Set(done)
}

func (p *ingestProgress) finish() {
	_ = p.bar.Finish()
	fmt.Fprintln(os.Stderr)
}

// startSpinner animates description on stderr until the returned stop func
// is called. Model calls give no progress, so the spinner ticks on a timer.
func startSpinner(description string) (stop func()) {
	spinner := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionClearOnFinish(),
	)

	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				_ = spinner.Add(1)
			}
		}
	}()

	return func() {
		close(done)
		<-stopped
		_ = spinner.Finish()
	}
}
