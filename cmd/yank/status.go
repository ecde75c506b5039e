package main

import (
	"fmt"
	"os"

	"github.com/nasiridrishi/yank/internal/config"
	"github.com/nasiridrishi/yank/internal/sysinfo"
)

// runStatus prints pairing state, active configuration, and a one-shot
// host metrics sample. The running agent's live connection/transfer state
// is reported through its own Callbacks to whatever embeds it (spec §4.J);
// this CLI has no running-daemon IPC channel to query (out of scope).
func runStatus(args []string) int {
	path, err := config.PairingPath()
	if err != nil {
		fmt.Fprintln(os.Stderr, "yank:", err)
		return exitIOError
	}

	rec, err := config.LoadPairing(path)
	switch err {
	case nil:
		fmt.Printf("paired: yes\n")
		fmt.Printf("  device_id:      %s\n", rec.DeviceID)
		fmt.Printf("  peer_device_id: %s\n", rec.PeerDeviceID)
		fmt.Printf("  paired_since:   %s\n", rec.CreatedAt.Format("2006-01-02 15:04:05"))
	case config.ErrNotPaired:
		fmt.Println("paired: no")
	default:
		fmt.Fprintln(os.Stderr, "yank:", err)
		return exitIOError
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "yank:", err)
		return exitIOError
	}
	fmt.Printf("port: %d\n", cfg.Port)
	fmt.Printf("sync: text=%v images=%v files=%v\n", cfg.SyncText, cfg.SyncImages, cfg.SyncFiles)

	dir, err := downloadDirForStatus()
	if err == nil {
		mon := sysinfo.NewMonitor(dir, nil)
		mon.Start()
		defer mon.Stop()
		fmt.Println("host:", mon.Stats().String())
	}
	return exitOK
}

func downloadDirForStatus() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return home, nil
}
