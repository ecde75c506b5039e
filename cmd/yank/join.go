package main

import (
	"encoding/base64"
	"flag"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/nasiridrishi/yank/internal/config"
	"github.com/nasiridrishi/yank/internal/pairing"
)

// runJoin dials a host running "yank pair" and runs the joiner side of
// the exchange (spec §4.B, §6).
func runJoin(args []string) int {
	fs := flag.NewFlagSet("join", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	rest := fs.Args()
	if len(rest) != 2 {
		fmt.Fprintln(os.Stderr, "usage: yank join <host-ip> <pin>")
		return exitUsage
	}
	host, pin := rest[0], rest[1]

	deviceID, err := loadOrCreateDeviceID()
	if err != nil {
		fmt.Fprintln(os.Stderr, "yank:", err)
		return exitIOError
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "yank:", err)
		return exitIOError
	}

	addr := net.JoinHostPort(host, fmt.Sprintf("%d", cfg.Port))
	conn, err := net.DialTimeout("tcp", addr, 10*time.Second)
	if err != nil {
		fmt.Fprintln(os.Stderr, "yank: connecting to", addr, ":", err)
		return exitConnectionFailed
	}
	defer conn.Close()

	result, err := pairing.RunJoiner(conn, pin, deviceID)
	if err != nil {
		fmt.Fprintln(os.Stderr, "yank: pairing failed:", err)
		return exitPairingFailed
	}

	rec := &config.PairingRecord{
		DeviceID:        deviceID,
		PeerDeviceID:    result.PeerDeviceID,
		SharedSecretB64: base64.StdEncoding.EncodeToString(result.SharedSecret),
		CreatedAt:       time.Now().UTC(),
		LastSeen:        time.Now().UTC(),
	}
	path, err := config.PairingPath()
	if err != nil {
		fmt.Fprintln(os.Stderr, "yank:", err)
		return exitIOError
	}
	if err := config.SavePairing(path, rec); err != nil {
		fmt.Fprintln(os.Stderr, "yank: saving pairing record:", err)
		return exitIOError
	}

	fmt.Printf("Paired with %s.\n", result.PeerDeviceID)
	return exitOK
}
