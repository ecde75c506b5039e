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

// runPair displays a PIN, listens for one inbound connection, and runs the
// host side of the pairing exchange (spec §4.B, §6).
func runPair(args []string) int {
	fs := flag.NewFlagSet("pair", flag.ContinueOnError)
	timeout := fs.Duration("timeout", 2*time.Minute, "how long to wait for a joiner")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	deviceID, err := loadOrCreateDeviceID()
	if err != nil {
		fmt.Fprintln(os.Stderr, "yank:", err)
		return exitIOError
	}

	pin, err := pairing.GeneratePIN()
	if err != nil {
		fmt.Fprintln(os.Stderr, "yank: generating PIN:", err)
		return exitInternal
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "yank:", err)
		return exitIOError
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		fmt.Fprintln(os.Stderr, "yank: listening for joiner:", err)
		return exitIOError
	}
	defer ln.Close()

	fmt.Printf("PIN: %s\n", pin)
	fmt.Printf("On the other device, run: yank join <this-device-ip> %s\n", pin)
	fmt.Println("Waiting for a peer to join...")

	type acceptResult struct {
		conn net.Conn
		err  error
	}
	acceptCh := make(chan acceptResult, 1)
	go func() {
		conn, err := ln.Accept()
		acceptCh <- acceptResult{conn, err}
	}()

	select {
	case res := <-acceptCh:
		if res.err != nil {
			fmt.Fprintln(os.Stderr, "yank: accept:", res.err)
			return exitPairingFailed
		}
		defer res.conn.Close()

		result, err := pairing.RunHost(res.conn, pin, deviceID)
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

	case <-time.After(*timeout):
		fmt.Fprintln(os.Stderr, "yank: timed out waiting for a joiner")
		return exitPairingFailed
	}
}
