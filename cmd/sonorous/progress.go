package main

import (
	"fmt"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/absfs/sonorous"
)

// progressBar returns a byte progress bar on stderr and a callback feeding
// it, or nils when progress is disabled. A total of -1 shows a spinner.
func (a *app) progressBar(cmd *cobra.Command, total int64, desc string) (*progressbar.ProgressBar, sonorous.ProgressFunc) {
	if !a.cfg.Progress {
		return nil, nil
	}
	if total == 0 {
		total = -1
	}
	w := cmd.ErrOrStderr()
	bar := progressbar.NewOptions64(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(desc),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(10),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowCount(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(w, "\n")
		}),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetRenderBlankState(true),
	)
	return bar, func(_ string, n int64) {
		bar.Add64(n)
	}
}

func finish(bar *progressbar.ProgressBar) {
	if bar != nil {
		bar.Finish()
	}
}
