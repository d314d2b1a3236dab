// Command raijin runs the self-directed learning control plane: an
// infinite evolution loop by default, or a one-shot self-test /
// regression-replay check for CI and operators.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/raijin-core/raijin/internal/config"
	"github.com/raijin-core/raijin/internal/evolution"
	"github.com/raijin-core/raijin/internal/neural"
	"github.com/raijin-core/raijin/internal/orchestrator"
	"github.com/raijin-core/raijin/internal/selftest"
)

var (
	dataDir       string
	telemetryAddr string
)

func main() {
	root := &cobra.Command{
		Use:   "raijin",
		Short: "RAIJIN self-directed learning control plane",
		RunE:  runLoop,
	}
	root.PersistentFlags().StringVar(&dataDir, "data-dir", "data", "directory for checkpoints, logs and telemetry")
	root.Flags().StringVar(&telemetryAddr, "telemetry-addr", "", "bind the read-only telemetry HTTP/WS surface to this address (e.g. 127.0.0.1:8791); empty disables it")

	selfTestCmd := &cobra.Command{
		Use:   "self-test",
		Short: "initialize the self-test harness, run the full suite, and exit 0 iff all passed",
		RunE:  runSelfTest,
	}
	replayCmd := &cobra.Command{
		Use:   "regression-replay",
		Short: "load the replay file and re-run every stored test; exit 0 iff empty or all pass",
		RunE:  runRegressionReplay,
	}

	root.AddCommand(selfTestCmd, replayCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newOrchestrator() (*orchestrator.Orchestrator, error) {
	dirs := orchestrator.NewDirs(dataDir)

	substrate, err := neural.New(neural.DefaultConfig())
	if err != nil {
		return nil, err
	}

	pinned, err := config.LoadPinnedDeps(filepath.Join(dataDir, "pinned_deps.json"))
	if err != nil {
		return nil, err
	}

	evoCfg := evolution.DefaultConfig()
	fitnessFn := func(genes []float64) float64 {
		var sum float64
		for _, g := range genes {
			sum += g
		}
		return sum / float64(len(genes))
	}

	return orchestrator.New(dirs, substrate, evoCfg, fitnessFn, pinned)
}

func renderReport(report selftest.Report) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Test", "Result", "Duration", "Message"})
	for _, r := range report.Results {
		status := "PASS"
		if !r.Passed {
			status = "FAIL"
		}
		table.Append([]string{r.Name, status, r.Duration.String(), r.Message})
	}
	table.Render()
}

func runSelfTest(cmd *cobra.Command, args []string) error {
	o, err := newOrchestrator()
	if err != nil {
		return err
	}
	defer o.Close()

	report := o.SelfTestHarness().RunAll()
	renderReport(report)

	if !report.AllPassed() {
		os.Exit(1)
	}
	return nil
}

func runRegressionReplay(cmd *cobra.Command, args []string) error {
	o, err := newOrchestrator()
	if err != nil {
		return err
	}
	defer o.Close()

	replay := o.Replay()
	if len(replay.Entries()) == 0 {
		fmt.Println("regression replay file is empty, nothing to check")
		return nil
	}

	report, allPassed := replay.ReplayAll(o.SelfTestHarness())
	renderReport(report)

	if !allPassed {
		os.Exit(1)
	}
	return nil
}

// keyAction is a key the interactive run loop polls for, non-blocking,
// while the evolution loop runs.
type keyAction byte

const (
	keyNone keyAction = iota
	keyStatus
	keyQuit
	keyHelp
)

func pollKey(buf []byte) keyAction {
	switch buf[0] {
	case 's', 'S':
		return keyStatus
	case 'q', 'Q':
		return keyQuit
	case 'h', 'H':
		return keyHelp
	default:
		return keyNone
	}
}

func printHelp() {
	fmt.Println("keys: [S] status  [Q] quit  [H] help  (Ctrl-C also requests orderly shutdown)")
}

func printStatus(o *orchestrator.Orchestrator) {
	fmt.Printf("cycle=%d\n", o.CycleCount())
}

// runLoop is the default command: it enters the infinite evolution
// loop. Stdin is switched to raw mode so single keypresses are polled
// without waiting for Enter; Ctrl-C and a raw-mode Q both request
// orderly shutdown.
func runLoop(cmd *cobra.Command, args []string) error {
	o, err := newOrchestrator()
	if err != nil {
		return err
	}
	defer o.Close()

	if telemetryAddr != "" {
		o.StartTelemetryServer(telemetryAddr)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	keyCh := make(chan keyAction, 8)
	if fd := int(os.Stdin.Fd()); term.IsTerminal(fd) {
		oldState, err := term.MakeRaw(fd)
		if err == nil {
			defer term.Restore(fd, oldState)
			go pollStdin(fd, keyCh)
		}
	}

	printHelp()

	for {
		select {
		case <-sigCh:
			fmt.Println("\nshutdown requested, finishing current cycle")
			return nil
		case action := <-keyCh:
			switch action {
			case keyQuit:
				fmt.Println("\nquit requested, finishing current cycle")
				return nil
			case keyStatus:
				printStatus(o)
			case keyHelp:
				printHelp()
			}
		default:
		}

		if err := o.Cycle(); err != nil {
			fmt.Fprintf(os.Stderr, "cycle %d: %v\n", o.CycleCount(), err)
			return err
		}
	}
}

func pollStdin(fd int, keyCh chan<- keyAction) {
	buf := make([]byte, 1)
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil || n == 0 {
			return
		}
		if action := pollKey(buf); action != keyNone {
			keyCh <- action
		}
	}
}
