// Package main is the CLI entry point for wakectl.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/eliteGoblin/focusd/wake_helper/internal/config"
	"github.com/eliteGoblin/focusd/wake_helper/internal/daemon"
	"github.com/eliteGoblin/focusd/wake_helper/internal/domain"
	"github.com/eliteGoblin/focusd/wake_helper/internal/infra"
	"github.com/eliteGoblin/focusd/wake_helper/internal/usecase"
)

var (
	// Version info (set via ldflags)
	Version   = "0.1.0"
	Commit    = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "wakectl",
	Short: "Schedule Mac wake-ups through the AlarmMaster wake helper",
	Long: `wakectl talks to the privileged wake helper daemon. It writes the shared
wake schedule, installs or removes the helper, and reports its status.

The helper itself turns the schedule into a pmset wake event; wakectl never
needs root except while installing or removing it.`,
	Version:           Version,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show helper installation, launchd state and the pending wake",
	RunE:  runStatus,
}

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the wake helper (asks for an administrator password)",
	RunE:  runInstall,
}

var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove the wake helper (asks for an administrator password)",
	RunE:  runUninstall,
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Manage the shared wake schedule",
}

var scheduleSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Set the next wake to an exact local time",
	Long: `Sets the next wake. --at accepts "2006-01-02T15:04:05", "2006-01-02T15:04",
"2006-01-02 15:04:05" or "2006-01-02 15:04", in local time.`,
	RunE: runScheduleSet,
}

var scheduleClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the pending wake",
	RunE:  runScheduleClear,
}

var wakeCmd = &cobra.Command{
	Use:   "wake HH:MM",
	Short: "Wake at the next occurrence of HH:MM",
	Args:  cobra.ExactArgs(1),
	RunE:  runWake,
}

var keepAwakeCmd = &cobra.Command{
	Use:   "keep-awake",
	Short: "Keep the display awake for a while, or release running assertions",
	RunE:  runKeepAwake,
}

var wakeScreenCmd = &cobra.Command{
	Use:   "wake-screen",
	Short: "Turn the display on",
	RunE:  runWakeScreen,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print the helper status whenever the schedule or helper log changes",
	RunE:  runWatch,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Prints version, commit, and build time. Use --json for machine-readable output.`,
	Run:   runVersion,
}

// Hidden descriptor command - prints the LaunchDaemon plist for the install script
var descriptorCmd = &cobra.Command{
	Use:    "descriptor",
	Hidden: true,
	RunE:   runDescriptor,
}

var (
	configPath string
	atFlag     string
	alarmFlag  string
	labelFlag  string
	minutes    int
	stopFlag   bool

	v      = config.New()
	cfg    *config.Config
	logger *zap.Logger
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "Config file (default ~/.config/wakectl/config.yaml)")
	flags.Bool("json", false, "Machine-readable output")
	flags.String("resource-dir", "", "Directory holding install-helper.sh and uninstall-helper.sh")
	flags.String("log-level", "", "Log level (debug, info, warn, error)")
	_ = v.BindPFlag(config.KeyJSON, flags.Lookup("json"))
	_ = v.BindPFlag(config.KeyResourceDir, flags.Lookup("resource-dir"))
	_ = v.BindPFlag(config.KeyLogLevel, flags.Lookup("log-level"))

	scheduleSetCmd.Flags().StringVar(&atFlag, "at", "", "Local wake time")
	scheduleSetCmd.Flags().StringVar(&alarmFlag, "alarm-time", "", "Alarm time label (HH:MM)")
	scheduleSetCmd.Flags().StringVar(&labelFlag, "label", "", "Alarm label")
	_ = scheduleSetCmd.MarkFlagRequired("at")

	keepAwakeCmd.Flags().IntVar(&minutes, "minutes", 30, "How long to keep the display awake")
	keepAwakeCmd.Flags().BoolVar(&stopFlag, "stop", false, "Release every running keep-awake assertion")

	scheduleCmd.AddCommand(scheduleSetCmd)
	scheduleCmd.AddCommand(scheduleClearCmd)

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(uninstallCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(wakeCmd)
	rootCmd.AddCommand(keepAwakeCmd)
	rootCmd.AddCommand(wakeScreenCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(descriptorCmd)
}

func setup(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(v, configPath)
	if err != nil {
		return err
	}
	cfg = loaded
	logger = createLogger(cfg)
	return nil
}

// app holds the wired components for one command invocation.
type app struct {
	paths     infra.Paths
	inspector *usecase.StatusInspectorImpl
	ctrl      *usecase.Controller
}

func newApp() *app {
	fs := afero.NewOsFs()
	paths := infra.DefaultPaths()
	runner := infra.NewCommandRunner()

	store := infra.NewScheduleStore(fs, paths, logger)
	registry := infra.NewLaunchctlRegistry(runner)
	escalator := infra.NewOsascriptEscalator(runner, cfg.EscalationTimeout, logger)
	resources := func() (string, error) {
		return infra.ResolveResourceDir(cfg.ResourceDir)
	}
	installer := usecase.NewHelperInstaller(fs, resources, escalator, logger)
	inspector := usecase.NewStatusInspector(fs, paths, store, registry, logger)
	sleep := infra.NewCaffeinate(runner, infra.NewProcessManager(), logger)

	return &app{
		paths:     paths,
		inspector: inspector,
		ctrl:      usecase.NewController(store, installer, inspector, logger, usecase.WithSleepAssertions(sleep)),
	}
}

// signalContext is canceled on Ctrl-C so a pending administrator prompt is abandoned.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	snapshot, err := newApp().ctrl.Status(ctx)
	if err != nil {
		return err
	}
	if cfg.JSON {
		return printJSON(snapshot)
	}
	printStatus(snapshot, time.Now())
	return nil
}

func runInstall(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	msg, err := newApp().ctrl.Install(ctx)
	return report(msg, err)
}

func runUninstall(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	msg, err := newApp().ctrl.Uninstall(ctx)
	return report(msg, err)
}

func runScheduleSet(cmd *cobra.Command, args []string) error {
	at, err := domain.ParseWakeTime(atFlag)
	if err != nil {
		return err
	}

	var alarmTime, label *string
	if cmd.Flags().Changed("alarm-time") {
		alarmTime = &alarmFlag
	}
	if cmd.Flags().Changed("label") {
		label = &labelFlag
	}

	msg, err := newApp().ctrl.UpdateSchedule(&at, alarmTime, label)
	return report(msg, err)
}

func runScheduleClear(cmd *cobra.Command, args []string) error {
	msg, err := newApp().ctrl.UpdateSchedule(nil, nil, nil)
	return report(msg, err)
}

func runWake(cmd *cobra.Command, args []string) error {
	hour, minute, err := domain.ParseClock(args[0])
	if err != nil {
		return err
	}
	msg, err := newApp().ctrl.ScheduleWake(hour, minute)
	return report(msg, err)
}

func runKeepAwake(cmd *cobra.Command, args []string) error {
	ctrl := newApp().ctrl
	if stopFlag {
		return report(ctrl.ReleaseSleepAssertions())
	}
	return report(ctrl.PreventSleep(minutes))
}

func runWakeScreen(cmd *cobra.Command, args []string) error {
	return report(newApp().ctrl.WakeScreen())
}

func runWatch(cmd *cobra.Command, args []string) error {
	a := newApp()
	if !a.ctrl.Supported() {
		return domain.ErrUnsupportedPlatform
	}

	ctx, cancel := signalContext()
	defer cancel()

	monitor := daemon.NewMonitor(daemon.DefaultMonitorConfig(a.paths.SharedDir), a.inspector, clock.New(), logger)
	err := monitor.Run(ctx, func(snapshot domain.HelperStatusSnapshot) {
		if cfg.JSON {
			printJSONLine(os.Stdout, snapshot)
			return
		}
		printStatus(snapshot, time.Now())
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func runDescriptor(cmd *cobra.Command, args []string) error {
	data, err := infra.RenderHelperDescriptor(infra.DefaultPaths())
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}

func runVersion(cmd *cobra.Command, args []string) {
	if cfg != nil && cfg.JSON {
		fmt.Printf(`{"version":"%s","commit":"%s","build_time":"%s"}`+"\n",
			Version, Commit, BuildTime)
	} else {
		fmt.Printf("wakectl %s (commit: %s, built: %s)\n",
			Version, Commit, BuildTime)
	}
}

// report prints a façade message, or turns a cancelled prompt into a notice
// instead of a failure.
func report(msg string, err error) error {
	if errors.Is(err, domain.ErrUserCancelled) {
		fmt.Fprintln(color.Output, color.YellowString("Cancelled: administrator authorization was declined"))
		return nil
	}
	if err != nil {
		return err
	}
	if cfg.JSON {
		return printJSON(map[string]string{"message": msg})
	}
	fmt.Fprintln(color.Output, color.GreenString(msg))
	return nil
}

func printJSON(value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// printJSONLine writes value as one compact JSON line. Encoding failures are
// logged so a long-running watch keeps going.
func printJSONLine(w io.Writer, value any) {
	line, err := json.Marshal(value)
	if err != nil {
		logger.Warn("Failed to encode status", zap.Error(err))
		return
	}
	fmt.Fprintln(w, string(line))
}

func printStatus(s domain.HelperStatusSnapshot, now time.Time) {
	out := color.Output

	fmt.Fprintln(out, "\n=== Wake Helper Status ===")
	fmt.Fprintf(out, "Installed:      %s\n", yesNo(s.Installed))
	fmt.Fprintf(out, "Daemon loaded:  %s\n", yesNo(s.DaemonLoaded))

	if s.HasSchedule && s.NextWake != nil {
		fmt.Fprintf(out, "Next wake:      %s%s\n", *s.NextWake, relative(*s.NextWake, domain.ParseWakeTime, now))
	} else {
		fmt.Fprintln(out, "Next wake:      none")
	}
	if s.LastScheduledWake != nil {
		fmt.Fprintf(out, "Last scheduled: %s%s\n", *s.LastScheduledWake, relative(*s.LastScheduledWake, domain.ParsePmsetTime, now))
	}

	for _, w := range s.Warnings {
		fmt.Fprintln(out, color.YellowString("Warning: %s", w))
	}

	if s.LogTail != nil && *s.LogTail != "" {
		fmt.Fprintln(out, "\nRecent helper log:")
		fmt.Fprintln(out, color.HiBlackString(*s.LogTail))
	}
	fmt.Fprintln(out, "==========================")
}

func relative(value string, parse func(string) (time.Time, error), now time.Time) string {
	t, err := parse(value)
	if err != nil {
		return ""
	}
	return " (" + usecase.RelativeLabel(t, now) + ")"
}

func yesNo(b bool) string {
	if b {
		return color.GreenString("yes")
	}
	return color.RedString("no")
}

func createLogger(cfg *config.Config) *zap.Logger {
	zc := zap.NewProductionConfig()
	if level, err := zapcore.ParseLevel(cfg.LogLevel); err == nil {
		zc.Level = zap.NewAtomicLevelAt(level)
	}
	if cfg.LogFile != "" {
		zc.OutputPaths = []string{cfg.LogFile}
	}
	zc.EncoderConfig.TimeKey = "time"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := zc.Build()
	if err != nil {
		// Fallback to stderr if file logging fails
		logger, _ = zap.NewProduction()
	}
	return logger
}
