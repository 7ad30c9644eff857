package tasks

import (
	"context"

	"github.com/voxplay/voxplay/internal/refresh"
	"github.com/voxplay/voxplay/internal/scheduler"
)

// RegisterCatalogRefreshTask registers the periodic library refresh and
// cache rebuild with the scheduler.
func RegisterCatalogRefreshTask(sched *scheduler.Scheduler, coordinator *refresh.Coordinator, cron string) error {
	return sched.RegisterTask(scheduler.TaskConfig{
		ID:          "catalog-refresh",
		Name:        "Catalog Refresh",
		Description: "Asks the media server to rescan its libraries, then rebuilds the catalog cache and voice triggers",
		Cron:        cron,
		RunOnStart:  false, // The startup rebuild runs before the server accepts traffic
		Func: func(ctx context.Context) error {
			_, err := coordinator.RefreshLibrary(ctx)
			return err
		},
	})
}
