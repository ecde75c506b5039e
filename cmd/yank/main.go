// Command yank runs the LAN clipboard/file sync agent and its pairing,
// configuration, and status subcommands.
package main

import (
	"fmt"
	"os"
)

// Exit codes (spec §6).
const (
	exitOK               = 0
	exitUsage            = 2
	exitNotPaired        = 3
	exitPairingFailed    = 4
	exitConnectionFailed = 5
	exitIOError          = 6
	exitInternal         = 7
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(exitUsage)
	}

	var code int
	switch os.Args[1] {
	case "pair":
		code = runPair(os.Args[2:])
	case "join":
		code = runJoin(os.Args[2:])
	case "unpair":
		code = runUnpair(os.Args[2:])
	case "status":
		code = runStatus(os.Args[2:])
	case "start":
		code = runStart(os.Args[2:])
	case "config":
		code = runConfig(os.Args[2:])
	case "-h", "--help", "help":
		usage()
		code = exitOK
	default:
		fmt.Fprintf(os.Stderr, "yank: unknown command %q\n", os.Args[1])
		usage()
		code = exitUsage
	}
	os.Exit(code)
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: yank <command> [arguments]

commands:
  pair                  display a PIN and wait for a peer to join
  join <ip> <pin>       pair with a host already running "yank pair"
  unpair                remove the stored pairing and exit
  status                show pairing state, configuration, and host metrics
  start                 run the sync agent in the foreground
  config                view or change sync configuration`)
}
