package server

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/athenahq/toolgate/internal/config"
	"github.com/athenahq/toolgate/internal/db"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// runRetentionSweep periodically purges request logs older than the
// configured retention window. The dispatcher core itself never deletes;
// this is operator housekeeping that lives with the server process.
func runRetentionSweep(ctx context.Context, gdb *gorm.DB, cfg config.RetentionConfig, out io.Writer) {
	sched, err := cronParser.Parse(cfg.Schedule)
	if err != nil {
		log.Printf("server: invalid retention schedule %q: %v", cfg.Schedule, err)
		return
	}

	for {
		next := sched.Next(time.Now())
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Until(next)):
		}

		cutoff := time.Now().AddDate(0, 0, -cfg.Days)
		removed, err := db.PurgeRequestLogsBefore(ctx, gdb, cutoff)
		if err != nil {
			log.Printf("server: retention sweep failed: %v", err)
			continue
		}
		if out != nil {
			fmt.Fprintf(out, "Retention sweep removed %d request logs older than %s\n",
				removed, cutoff.Format(time.RFC3339))
		}
	}
}
