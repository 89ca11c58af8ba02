package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// watchAndRun executes runOnce, then re-executes it whenever the script file
// is rewritten. The watch is placed on the parent directory because most
// editors replace files rather than writing them in place. Interrupt ends
// the session.
func watchAndRun(path string, runOnce func()) int {
	abs, err := filepath.Abs(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to resolve %s: %v\n", path, err)
		return 1
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start watcher: %v\n", err)
		return 1
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		fmt.Fprintf(os.Stderr, "failed to watch %s: %v\n", filepath.Dir(abs), err)
		return 1
	}

	runOnce()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	defer signal.Stop(interrupt)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return 0
			}
			if event.Name != abs {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				runOnce()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return 0
			}
			fmt.Fprintf(os.Stderr, "watch error: %v\n", err)
		case <-interrupt:
			return 0
		}
	}
}
