package tasks

import (
	"github.com/voxplay/voxplay/internal/plex"
	"github.com/voxplay/voxplay/internal/scheduler"
)

// RegisterDeviceRefreshTask keeps the playback device directory in sync
// with the media server's client list.
func RegisterDeviceRefreshTask(sched *scheduler.Scheduler, directory *plex.Directory) error {
	return sched.RegisterTask(scheduler.TaskConfig{
		ID:          "device-refresh",
		Name:        "Device Refresh",
		Description: "Re-reads the list of remote-controllable player clients",
		Cron:        "*/10 * * * *",
		RunOnStart:  true,
		Func:        directory.RefreshDevices,
	})
}
