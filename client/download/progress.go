package download

import (
	"fmt"
	"log/slog"
	"time"
)

// progressLogger logs transfer progress at most once per second.
type progressLogger struct {
	logger  *slog.Logger
	total   int64
	start   time.Time
	lastLog time.Time
}

func (pl *progressLogger) report(written int64) {
	if time.Since(pl.lastLog) < time.Second {
		return
	}
	pl.lastLog = time.Now()
	pl.log("downloading", written)
}

func (pl *progressLogger) log(msg string, written int64) {
	elapsed := time.Since(pl.start)
	attrs := []any{
		"transferred", written,
		"elapsed", elapsed.Round(time.Millisecond),
		"mbps", fmt.Sprintf("%.2f", float64(written)/elapsed.Seconds()/(1024*1024)),
	}
	if pl.total > 0 {
		attrs = append(attrs, "progress", fmt.Sprintf("%.1f%%", float64(written)/float64(pl.total)*100))
	}
	pl.logger.Info(msg, attrs...)
}
