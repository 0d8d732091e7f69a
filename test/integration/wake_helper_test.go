//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/benbjohnson/clock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/wake_helper/internal/domain"
	"github.com/eliteGoblin/focusd/wake_helper/internal/infra"
	"github.com/eliteGoblin/focusd/wake_helper/internal/usecase"
)

// shellEscalator runs scripts with /bin/sh directly, standing in for the
// administrator prompt.
type shellEscalator struct {
	runner *infra.RealCommandRunner
	calls  int
}

func (s *shellEscalator) RunPrivileged(ctx context.Context, script string, args ...string) (domain.PrivilegedResult, error) {
	s.calls++
	res, err := s.runner.Run(ctx, "/bin/sh", append([]string{script}, args...)...)
	if err != nil {
		return domain.PrivilegedResult{}, fmt.Errorf("%w: %v", domain.ErrEscalationUnavailable, err)
	}
	return domain.PrivilegedResult{ExitCode: res.ExitCode, Stdout: res.Stdout, Stderr: res.Stderr}, nil
}

// descriptorRegistry treats an installed descriptor as a loaded job.
type descriptorRegistry struct {
	plistPath string
}

func (d descriptorRegistry) IsRegistered(ctx context.Context, label string) (bool, error) {
	desc, err := infra.ReadServiceDescriptor(afero.NewOsFs(), d.plistPath)
	if err != nil {
		return false, nil
	}
	return desc.Label == label, nil
}

func writeScript(dir, name, body string) {
	Expect(os.WriteFile(filepath.Join(dir, name), []byte("#!/bin/sh\n"+body), 0o755)).To(Succeed())
}

var _ = Describe("Wake helper", func() {
	var (
		root      string
		resources string
		paths     infra.Paths
		escalator *shellEscalator
		mock      *clock.Mock
		ctrl      *usecase.Controller
		ctx       context.Context
	)

	BeforeEach(func() {
		root = GinkgoT().TempDir()
		resources = filepath.Join(root, "Resources", "helpers")
		Expect(os.MkdirAll(resources, 0o755)).To(Succeed())
		Expect(os.MkdirAll(filepath.Join(root, "PrivilegedHelperTools"), 0o755)).To(Succeed())
		Expect(os.MkdirAll(filepath.Join(root, "LaunchDaemons"), 0o755)).To(Succeed())

		paths = infra.PathsUnder(
			filepath.Join(root, "Shared", "AlarmMaster"),
			filepath.Join(root, "PrivilegedHelperTools", infra.HelperLabel),
			filepath.Join(root, "LaunchDaemons", infra.HelperLabel+".plist"),
		)

		descriptor, err := infra.RenderHelperDescriptor(paths)
		Expect(err).NotTo(HaveOccurred())
		Expect(os.WriteFile(filepath.Join(resources, "helper.plist"), descriptor, 0o644)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(resources, "wakehelper"), []byte("binary"), 0o755)).To(Succeed())

		fs := afero.NewOsFs()
		logger := zap.NewNop()
		escalator = &shellEscalator{runner: infra.NewCommandRunner()}
		mock = clock.NewMock()
		mock.Set(time.Date(2024, 1, 2, 8, 0, 0, 0, time.Local))

		store := infra.NewScheduleStore(fs, paths, logger)
		locator := func() (string, error) { return resources, nil }
		installer := usecase.NewHelperInstaller(fs, locator, escalator, logger)
		inspector := usecase.NewStatusInspector(fs, paths, store, descriptorRegistry{plistPath: paths.PlistPath}, logger)
		ctrl = usecase.NewController(store, installer, inspector, logger,
			usecase.WithPlatformSupport(true),
			usecase.WithClock(mock))
		ctx = context.Background()
	})

	Describe("install and uninstall", func() {
		BeforeEach(func() {
			writeScript(resources, infra.InstallScriptName, fmt.Sprintf(
				"cp \"$1/wakehelper\" %q && cp \"$1/helper.plist\" %q && echo installed\n",
				paths.BinaryPath, paths.PlistPath))
			writeScript(resources, infra.UninstallScriptName, fmt.Sprintf(
				"rm -f %q %q\n", paths.BinaryPath, paths.PlistPath))
		})

		It("installs, reports status, and removes the helper", func() {
			Expect(ctrl.IsInstalled()).To(BeFalse())

			msg, err := ctrl.Install(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(msg).To(Equal("Wake helper installed: installed"))
			Expect(ctrl.IsInstalled()).To(BeTrue())

			status, err := ctrl.Status(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(status.Installed).To(BeTrue())
			Expect(status.DaemonLoaded).To(BeTrue())
			Expect(status.Warnings).To(BeEmpty())

			msg, err = ctrl.Uninstall(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(msg).To(Equal("Wake helper removed"))
			Expect(ctrl.IsInstalled()).To(BeFalse())
		})

		It("can be installed twice", func() {
			_, err := ctrl.Install(ctx)
			Expect(err).NotTo(HaveOccurred())
			_, err = ctrl.Install(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(ctrl.IsInstalled()).To(BeTrue())
		})
	})

	Describe("privileged outcomes", func() {
		It("reports a declined prompt as cancelled", func() {
			writeScript(resources, infra.InstallScriptName,
				"echo 'execution error: User canceled. (-128)' >&2\nexit 1\n")

			_, err := ctrl.Install(ctx)
			Expect(err).To(MatchError(domain.ErrUserCancelled))
			Expect(err).NotTo(MatchError(domain.ErrScriptFailed))
		})

		It("reports a failing script with its stderr", func() {
			writeScript(resources, infra.InstallScriptName,
				"echo 'launchctl bootstrap failed' >&2\nexit 5\n")

			_, err := ctrl.Install(ctx)
			Expect(err).To(MatchError(domain.ErrScriptFailed))
			Expect(err.Error()).To(ContainSubstring("launchctl bootstrap failed"))
			Expect(err.Error()).To(ContainSubstring("exit 5"))
		})

		It("never escalates when the script is missing", func() {
			_, err := ctrl.Install(ctx)
			Expect(err).To(MatchError(domain.ErrResourceNotFound))
			Expect(escalator.calls).To(BeZero())
		})
	})

	Describe("schedule file", func() {
		It("persists the computed next wake for the daemon", func() {
			msg, err := ctrl.ScheduleWake(7, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(msg).To(ContainSubstring("2024-01-03T07:00:00"))

			data, err := os.ReadFile(paths.SchedulePath)
			Expect(err).NotTo(HaveOccurred())

			var raw map[string]any
			Expect(json.Unmarshal(data, &raw)).To(Succeed())
			Expect(raw).To(HaveKeyWithValue("nextWake", "2024-01-03T07:00:00"))
			Expect(raw).To(HaveKeyWithValue("enabled", true))
			Expect(raw).To(HaveKeyWithValue("alarmTime", "07:00"))
			Expect(raw).To(HaveKeyWithValue("label", BeNil()))

			info, err := os.Stat(paths.SchedulePath)
			Expect(err).NotTo(HaveOccurred())
			Expect(info.Mode().Perm()).To(Equal(infra.ScheduleFileMode))

			dirInfo, err := os.Stat(paths.SharedDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(dirInfo.Mode().Perm()).To(Equal(infra.SharedDirMode))
		})

		It("clears the schedule and reports no pending wake", func() {
			_, err := ctrl.ScheduleWake(7, 0)
			Expect(err).NotTo(HaveOccurred())

			msg, err := ctrl.UpdateSchedule(nil, nil, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(msg).To(Equal("Wake schedule cleared"))

			status, err := ctrl.Status(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(status.HasSchedule).To(BeFalse())
			Expect(status.NextWake).To(BeNil())
		})

		It("surfaces what the daemon left behind", func() {
			_, err := ctrl.ScheduleWake(7, 0)
			Expect(err).NotTo(HaveOccurred())

			var log string
			for i := 1; i <= 12; i++ {
				log += fmt.Sprintf("event %d\n", i)
			}
			Expect(os.WriteFile(paths.LogPath, []byte(log), 0o644)).To(Succeed())
			Expect(os.WriteFile(paths.StatePath,
				[]byte(`{"lastScheduledWake":"2024-01-03T06:59:00","lastScheduledType":"wakeorpoweron"}`), 0o644)).To(Succeed())

			status, err := ctrl.Status(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(status.HasSchedule).To(BeTrue())
			Expect(*status.NextWake).To(Equal("2024-01-03T07:00:00"))
			Expect(*status.LogTail).To(HavePrefix("event 3\n"))
			Expect(*status.LogTail).To(HaveSuffix("event 12"))
			Expect(*status.LastScheduledWake).To(Equal("2024-01-03T06:59:00"))
			Expect(status.Warnings).To(ContainElement(ContainSubstring("not installed")))
		})
	})
})
