package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/nasiridrishi/yank/internal/config"
)

// runConfig implements "yank config" (show current settings),
// "yank config --set key value", and "yank config --reset" (spec §6).
func runConfig(args []string) int {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	set := fs.Bool("set", false, "set key value")
	reset := fs.Bool("reset", false, "reset config to defaults")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	path, err := config.ConfigPath()
	if err != nil {
		fmt.Fprintln(os.Stderr, "yank:", err)
		return exitIOError
	}

	if *reset {
		if err := config.Save(path, config.Default()); err != nil {
			fmt.Fprintln(os.Stderr, "yank:", err)
			return exitIOError
		}
		fmt.Println("config reset to defaults.")
		return exitOK
	}

	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "yank:", err)
		return exitIOError
	}

	if *set {
		rest := fs.Args()
		if len(rest) != 2 {
			fmt.Fprintln(os.Stderr, "usage: yank config --set <key> <value>")
			return exitUsage
		}
		if err := cfg.Set(rest[0], rest[1]); err != nil {
			fmt.Fprintln(os.Stderr, "yank:", err)
			return exitUsage
		}
		if err := config.Save(path, cfg); err != nil {
			fmt.Fprintln(os.Stderr, "yank:", err)
			return exitIOError
		}
		fmt.Printf("%s = %s\n", rest[0], rest[1])
		return exitOK
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		fmt.Fprintln(os.Stderr, "yank:", err)
		return exitInternal
	}
	fmt.Println(string(data))
	return exitOK
}
