package main

import (
	"time"

	"github.com/schollz/progressbar/v3"
)

// newProgressBar 在 stderr 上显示已完成包数 / 总数。
func newProgressBar(total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(stdErr),
		progressbar.OptionShowDescriptionAtLineEnd(),
		progressbar.OptionSetDescription("resolving"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionThrottle(100*time.Millisecond),
	)
}
