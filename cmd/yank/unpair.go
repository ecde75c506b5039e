package main

import (
	"fmt"
	"os"

	"github.com/nasiridrishi/yank/internal/config"
)

func runUnpair(args []string) int {
	path, err := config.PairingPath()
	if err != nil {
		fmt.Fprintln(os.Stderr, "yank:", err)
		return exitIOError
	}
	if err := config.DeletePairing(path); err != nil {
		fmt.Fprintln(os.Stderr, "yank: removing pairing record:", err)
		return exitIOError
	}
	fmt.Println("Unpaired.")
	return exitOK
}
