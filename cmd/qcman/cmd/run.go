package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/umdcms/qcmanager/internal/config"
	"github.com/umdcms/qcmanager/internal/hooks"
	"github.com/umdcms/qcmanager/internal/hw"
	"github.com/umdcms/qcmanager/internal/logging"
	"github.com/umdcms/qcmanager/internal/runner"
	"github.com/umdcms/qcmanager/internal/session"
	"github.com/umdcms/qcmanager/internal/tui"
)

// runCmd represents the run command.
var runCmd = &cobra.Command{
	Use:   "run --board <type>.<id> <procedure>[:key=value,...] ...",
	Short: "Run QC procedures against a board session",
	Long: `Run one or more QC procedures against an existing board session.

By default, qcman runs in TUI mode with an interactive terminal interface.
Use --headless for non-interactive execution (e.g., in CI or shifter scripts).

Procedure arguments are passed inline after a colon:

Examples:
  qcman run --board tileboard.TB001 pedestal
  qcman run --board tileboard.TB001 pedestal:events=2000 confdump
  qcman run --board tileboard.TB001 --headless envcheck
  qcman run --board tileboard.TB001 --headless --output json pedestal`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("board", "", "Board session to run against, as <type>.<id>")
	runCmd.Flags().Bool("headless", false, "Run in headless mode without TUI")
	runCmd.Flags().String("output", "", "Output format: json for structured output (requires --headless)")
	runCmd.Flags().BoolP("verbose", "v", false, "Enable verbose output")
	_ = runCmd.MarkFlagRequired("board")
}

// runRun is the main entry point for the run command.
func runRun(cmd *cobra.Command, args []string) error {
	board, _ := cmd.Flags().GetString("board")
	headless, _ := cmd.Flags().GetBool("headless")
	outputFormat, _ := cmd.Flags().GetString("output")
	verbose, _ := cmd.Flags().GetBool("verbose")

	if outputFormat != "" && !headless {
		return fmt.Errorf("--output flag requires --headless mode")
	}

	boardType, boardID, err := parseBoard(board)
	if err != nil {
		return err
	}

	queue, err := parseQueue(args)
	if err != nil {
		return err
	}

	// Load configuration
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyConfigDefaults(cfg, queue)

	// Initialize logging
	logLevel := logging.LevelInfo
	if verbose {
		logLevel = logging.LevelDebug
	}
	logConfig := logging.DefaultConfig()
	logConfig.Level = logLevel
	logConfig.LogDir = cfg.Log.Dir
	logConfig.JSONFormat = cfg.Log.JSON
	if err := logging.InitGlobal(logConfig); err != nil {
		// Non-fatal: warn but continue without file logging
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: failed to initialize logging: %v\n", err)
	} else {
		defer func() { _ = logging.CloseGlobal() }()
		logging.Info("qcman starting", "version", Version, "board", board, "verbose", verbose)
	}

	// Load the board session
	store := session.NewStore(cfg.Store.Dir)
	sess, err := store.Load(boardType, boardID)
	if err != nil {
		return fmt.Errorf("failed to load session %s: %w (run 'qcman init %s %s' first)",
			board, err, boardType, boardID)
	}

	// Set up cancellation context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	// Connect the hardware controller only when a queued procedure needs it
	var controller *hw.Controller
	if queueNeedsHardware(queue) {
		controller = newController(cfg)
		if err := controller.Connect(ctx); err != nil {
			return fmt.Errorf("failed to connect board services: %w", err)
		}
		defer func() { _ = controller.Close() }()
	}

	// Create hook manager (optional - hooks may not be configured)
	var hookMgr *hooks.Manager
	if len(cfg.Hooks.PreProcedure) > 0 || len(cfg.Hooks.PostProcedure) > 0 {
		hookMgr, err = hooks.NewManagerFromConfig(&cfg.Hooks)
		if err != nil {
			return fmt.Errorf("failed to create hook manager: %w", err)
		}
	}

	if headless {
		return runHeadless(ctx, cmd, sess, controller, hookMgr, cfg, queue, outputFormat, verbose)
	}

	return runTUI(ctx, cancel, sess, controller, hookMgr, cfg, queue)
}

// runTUI executes the queue with the interactive terminal interface.
func runTUI(ctx context.Context, cancel context.CancelFunc, sess *session.Session,
	controller *hw.Controller, hookMgr *hooks.Manager, cfg *config.Config,
	queue []runner.Spec) error {

	names := make([]string, len(queue))
	for i, spec := range queue {
		names[i] = spec.Name
	}

	info := tui.SessionInfo{
		BoardType:   sess.BoardType,
		BoardID:     sess.BoardID,
		StoreDir:    cfg.Store.Dir,
		Fingerprint: sess.EnvFingerprint,
	}
	appRunner := tui.NewAppRunner(info, names)

	opts := runner.Options{}
	appRunner.ConfigureRunner(&opts)

	r, err := runner.New(sess, controller, DefaultRegistry, hookMgr, cfg, opts)
	if err != nil {
		return err
	}

	appRunner.Model().SetRunController(&runControllerAdapter{cancel: cancel})

	return appRunner.Run(func() error {
		if controller != nil {
			appRunner.Program().Send(tui.HardwareStatusMsg{Status: "connected"})
		}
		_, runErr := r.Run(ctx, queue)
		return runErr
	})
}

// runHeadless executes the queue without a TUI, for CI and shifter scripts.
func runHeadless(ctx context.Context, cmd *cobra.Command, sess *session.Session,
	controller *hw.Controller, hookMgr *hooks.Manager, cfg *config.Config,
	queue []runner.Spec, outputFormat string, verbose bool) error {

	headlessConfig := runner.DefaultHeadlessConfig()
	headlessConfig.Writer = cmd.OutOrStdout()
	headlessConfig.Verbose = verbose
	if outputFormat == "json" {
		headlessConfig.OutputFormat = runner.OutputFormatJSON
	}

	hr := runner.NewHeadlessRunner(headlessConfig)

	opts := runner.Options{
		OnEvent:   hr.HandleEvent,
		LogWriter: cmd.OutOrStdout(),
	}

	r, err := runner.New(sess, controller, DefaultRegistry, hookMgr, cfg, opts)
	if err != nil {
		return err
	}

	outcome, runErr := r.Run(ctx, queue)

	if outcome != nil {
		if headlessConfig.OutputFormat == runner.OutputFormatJSON {
			if err := hr.WriteJSONOutput(sess.ID(), outcome); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Failed to write JSON output: %v\n", err)
			}
		} else {
			hr.PrintSummary(sess.ID(), outcome)
		}
	}

	if runErr != nil {
		return runErr
	}
	if outcome != nil && !outcome.Success() {
		return fmt.Errorf("run finished with %d failed procedure(s)", outcome.Failed)
	}
	return nil
}

// loadConfig loads the qcman configuration from the working directory.
// A missing config file is not an error; defaults apply.
func loadConfig() (*config.Config, error) {
	if _, err := os.Stat(config.DefaultConfigPath); os.IsNotExist(err) {
		return config.NewConfig(), nil
	}
	return config.Load(config.DefaultConfigPath)
}

// applyConfigDefaults fills procedure arguments the config file provides
// defaults for, without overriding inline arguments.
func applyConfigDefaults(cfg *config.Config, queue []runner.Spec) {
	for i := range queue {
		switch queue[i].Name {
		case "envcheck":
			args := specArgs(&queue[i])
			if _, ok := args["manifest"]; !ok && cfg.Environment.Manifest != "" {
				args["manifest"] = cfg.Environment.Manifest
			}
			if _, ok := args["strict"]; !ok && cfg.Environment.Strict {
				args["strict"] = true
			}
		case "pedestal":
			args := specArgs(&queue[i])
			if _, ok := args["events"]; !ok && cfg.Acquire.Events > 0 {
				args["events"] = cfg.Acquire.Events
			}
			if _, ok := args["batch_size"]; !ok && cfg.Acquire.BatchSize > 0 {
				args["batch_size"] = cfg.Acquire.BatchSize
			}
		}
	}
}

func specArgs(spec *runner.Spec) map[string]interface{} {
	if spec.Args == nil {
		spec.Args = map[string]interface{}{}
	}
	return spec.Args
}

// queueNeedsHardware reports whether any queued procedure requires a
// connected controller.
func queueNeedsHardware(queue []runner.Spec) bool {
	for _, spec := range queue {
		if entry, ok := DefaultRegistry.Lookup(spec.Name); ok && entry.NeedsHardware {
			return true
		}
	}
	return false
}

// newController builds a hardware controller from the config.
func newController(cfg *config.Config) *hw.Controller {
	controller := hw.NewController(hw.Endpoints{
		DAQ:  cfg.Hardware.DAQAddr,
		Pull: cfg.Hardware.PullAddr,
		I2C:  cfg.Hardware.I2CAddr,
	})
	for _, client := range []*hw.SocketClient{controller.DAQ, controller.Pull, controller.I2C} {
		client.SetTimeouts(cfg.Hardware.DialTimeout, cfg.Hardware.RequestTimeout)
	}
	return controller
}

// parseBoard splits a "<type>.<id>" board identifier.
func parseBoard(board string) (boardType, boardID string, err error) {
	boardType, boardID, ok := strings.Cut(board, ".")
	if !ok || boardType == "" || boardID == "" {
		return "", "", fmt.Errorf("invalid board %q: expected <type>.<id>, e.g. tileboard.TB001", board)
	}
	return boardType, boardID, nil
}

// parseQueue parses procedure specs of the form
// "name" or "name:key=value,key=value".
func parseQueue(args []string) ([]runner.Spec, error) {
	queue := make([]runner.Spec, 0, len(args))
	for _, arg := range args {
		name, rawArgs, hasArgs := strings.Cut(arg, ":")
		if name == "" {
			return nil, fmt.Errorf("invalid procedure spec %q", arg)
		}
		spec := runner.Spec{Name: name}
		if hasArgs {
			spec.Args = map[string]interface{}{}
			for _, pair := range strings.Split(rawArgs, ",") {
				key, value, ok := strings.Cut(pair, "=")
				if !ok || key == "" {
					return nil, fmt.Errorf("invalid argument %q in procedure spec %q: expected key=value", pair, arg)
				}
				spec.Args[key] = value
			}
		}
		queue = append(queue, spec)
	}
	return queue, nil
}

// runControllerAdapter adapts context cancellation to the TUI's
// RunController interface. Cancelling stops the queue after the current
// procedure; the session keeps everything recorded so far.
type runControllerAdapter struct {
	cancel context.CancelFunc
}

func (a *runControllerAdapter) Abort() error {
	a.cancel()
	return nil
}
