package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nasiridrishi/yank/internal/agent"
	"github.com/nasiridrishi/yank/internal/clipboard"
	"github.com/nasiridrishi/yank/internal/ignorefile"
	"github.com/nasiridrishi/yank/internal/platformclip"
	"github.com/nasiridrishi/yank/internal/status"
	"github.com/nasiridrishi/yank/internal/wire"
)

// runStart launches the sync agent in the foreground until interrupted
// (spec §4.I, §6).
func runStart(args []string) int {
	fs := flag.NewFlagSet("start", flag.ContinueOnError)
	peer := fs.String("peer", "", "peer IP to fall back to if discovery finds nothing")
	verbose := fs.Bool("verbose", false, "enable debug logging")
	noSecurity := fs.Bool("no-security", false, "UNSAFE: skip AEAD sealing (local testing only, not implemented)")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if *noSecurity {
		fmt.Fprintln(os.Stderr, "yank: --no-security is not supported; every connection is authenticated and sealed")
	}

	logger := newLogger(*verbose)

	rec, secret, code := loadPairingOrExit()
	if code != exitOK {
		return code
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "yank:", err)
		return exitIOError
	}

	clip, err := platformclip.New()
	var adapter clipboard.Adapter
	if err != nil {
		logger.Warn("native clipboard unavailable, using in-memory adapter", "error", err)
		adapter = clipboard.NewMemoryAdapter()
	} else {
		adapter = clip
	}

	ignorePath, err := ignorefile.DefaultPath()
	var filter *ignorefile.Filter
	if err != nil {
		filter = &ignorefile.Filter{}
	} else if filter, err = ignorefile.Load(ignorePath); err != nil {
		logger.Warn("loading .syncignore failed, transfers will be unfiltered", "error", err)
		filter = &ignorefile.Filter{}
	}

	callbacks := status.Callbacks{
		OnState: func(s status.State) {
			logger.Info("state change", "state", s)
		},
		OnAnnounced: func(transferID string, files []wire.FileMetadata) {
			logger.Info("incoming transfer announced", "transfer_id", transferID, "files", len(files))
		},
		OnProgress: func(transferID string, bytesDone, bytesTotal int64, speedBps, etaSeconds float64) {
			logger.Debug("transfer progress", "transfer_id", transferID, "bytes_done", bytesDone, "bytes_total", bytesTotal)
		},
		OnError: func(kind status.ErrorKind, detail string) {
			logger.Warn("transfer error", "kind", kind, "detail", detail)
		},
		OnComplete: func(transferID string, paths []string) {
			logger.Info("transfer complete", "transfer_id", transferID, "files", len(paths))
		},
	}

	a := agent.New(agent.Options{
		DeviceID:     rec.DeviceID,
		Pairing:      rec,
		SharedSecret: secret,
		Config:       cfg,
		Logger:       logger,
		Clipboard:    adapter,
		Ignore:       filter,
		Callbacks:    callbacks,
		PeerOverride: *peer,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting yank agent", "peer_device_id", rec.PeerDeviceID, "port", cfg.Port)
	if err := a.Run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "yank:", err)
		return exitInternal
	}
	return exitOK
}
