// Package progress provides the default status-bus consumers: a terminal
// byte-count progress bar and a quiet logging fallback for --no-progress or
// verbose (-v) runs.
package progress

import (
	"fmt"
	"os"
	"sync/atomic"

	"github.com/k0kubun/go-ansi"
	"github.com/schollz/progressbar/v3"
	log "github.com/sirupsen/logrus"
)

var theme = progressbar.Theme{
	Saucer:        "[green]=[reset]",
	SaucerHead:    "[green]>[reset]",
	SaucerPadding: " ",
	BarStart:      "[",
	BarEnd:        "]",
}

// DataProgressBar builds a byte-denominated bar. The max grows as the
// walker discovers file sizes.
func DataProgressBar(desc string, size int64) *progressbar.ProgressBar {
	return progressbar.NewOptions64(size,
		progressbar.OptionSetWriter(ansi.NewAnsiStdout()),
		progressbar.OptionUseANSICodes(true),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(os.Stderr, "\n")
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(true),
		progressbar.OptionUseIECUnits(true),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetDescription(desc),
		progressbar.OptionSetTheme(theme),
	)
}

// BarSink drives a terminal progress bar from status events.
type BarSink struct {
	bar   *progressbar.ProgressBar
	total atomic.Int64
}

// NewBarSink returns a sink rendering to stdout.
func NewBarSink(desc string) *BarSink {
	return &BarSink{bar: DataProgressBar(desc, 0)}
}

func (s *BarSink) GrowTotal(n int64) {
	s.bar.ChangeMax64(s.total.Add(n))
}

func (s *BarSink) Add(n int64) {
	s.bar.Add64(n)
}

func (s *BarSink) Finish() {
	s.bar.Finish()
}

// LogSink counts silently and logs one summary line at the end.
type LogSink struct {
	total  atomic.Int64
	copied atomic.Int64
}

// NewLogSink returns the quiet sink used with --no-progress.
func NewLogSink() *LogSink {
	return &LogSink{}
}

func (s *LogSink) GrowTotal(n int64) {
	s.total.Add(n)
}

func (s *LogSink) Add(n int64) {
	s.copied.Add(n)
}

func (s *LogSink) Finish() {
	log.WithFields(log.Fields{
		"bytes_copied": s.copied.Load(),
		"bytes_total":  s.total.Load(),
	}).Info("copy finished")
}
