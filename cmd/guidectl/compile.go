package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/guidectl/internal/orchestrator"
)

var (
	overlayPath string
	watch       bool
)

func init() {
	compileCmd.Flags().StringVar(&overlayPath, "overlay", "", "path to a local overlay rules document")
	compileCmd.Flags().BoolVar(&watch, "watch", false, "recompile whenever the rules document changes between sessions")
	rootCmd.AddCommand(compileCmd)
}

var compileCmd = &cobra.Command{
	Use:   "compile <rules-document>",
	Short: "Compile a rules document into a PolicyBundle",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		o, err := loadOrchestrator(cmd)
		if err != nil {
			return err
		}

		if err := runCompile(cmd, o, args[0]); err != nil {
			return err
		}

		if !watch {
			return nil
		}
		return watchAndRecompile(cmd, o, args[0])
	},
}

func runCompile(cmd *cobra.Command, o *orchestrator.Orchestrator, primaryPath string) error {
	bundle, err := o.Compile(cmd.Context(), primaryPath, overlayPath)
	if err != nil {
		return err
	}
	return json.NewEncoder(cmd.OutOrStdout()).Encode(bundle.Manifest)
}

// watchAndRecompile is the spec's "recompile between sessions" feature:
// it watches the rules document for writes and recompiles once the
// write settles, rather than reloading mid-session.
func watchAndRecompile(cmd *cobra.Command, o *orchestrator.Orchestrator, primaryPath string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("starting file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(primaryPath); err != nil {
		return fmt.Errorf("watching %s: %w", primaryPath, err)
	}

	fmt.Fprintf(os.Stderr, "watching %s for changes (ctrl-c to stop)\n", primaryPath)

	for {
		select {
		case <-cmd.Context().Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := runCompile(cmd, o, primaryPath); err != nil {
				fmt.Fprintf(os.Stderr, "recompile failed: %v\n", err)
				continue
			}
			fmt.Fprintf(os.Stderr, "recompiled %s\n", primaryPath)
		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "watcher error: %v\n", werr)
		}
	}
}
