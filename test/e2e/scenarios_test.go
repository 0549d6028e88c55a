package e2e

import (
	"os"
	"path/filepath"
	"syscall"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"git.srvlab.io/whiskey/diskcheck/pkg/audit"
	"git.srvlab.io/whiskey/diskcheck/pkg/policy"
	"git.srvlab.io/whiskey/diskcheck/pkg/tracker"
	"git.srvlab.io/whiskey/diskcheck/test/mock"
)

var _ = Describe("Verify and repair [E2E-01]", func() {
	It("should repair an apfs volume whose verification fails and still require review", func() {
		host := mock.NewMockHost().AddExternalVolume("disk2s1", "apfs", true)
		host.Fail(mock.OpVerify, "disk2s1", "error: Invalid B-tree node size")
		e := newEnv(host)

		By("Running in normal mode")
		report, err := e.checker.Run(policy.ModeNormal)
		Expect(err).NotTo(HaveOccurred())
		Expect(report.Volumes).To(HaveLen(1))
		Expect(report.Volumes[0].Result).To(Equal("repaired"))

		By("Checking the host call sequence")
		Expect(host.CallsFor("disk2s1")).To(Equal([]string{
			mock.OpDescribe, mock.OpDescribe, mock.OpUnmount, mock.OpVerify, mock.OpRepair, mock.OpMount,
		}))

		By("Checking the log sequence")
		infos := e.messages("INFO")
		Expect(infos).To(ContainElements(
			"disk2s1 unmounted successfully.",
			"Attempting to repair disk2s1...",
			"disk2s1 repair succeeded.",
			"disk2s1 remounted successfully.",
		))
		Expect(e.messages("ERROR")).To(Equal([]string{
			"disk2s1 verification found issues: error: Invalid B-tree node size",
		}))

		By("Checking the summary")
		e.expectSingleSummary(audit.ReviewRequired)
		Expect(e.checker.Tracker().Len()).To(BeZero())
	})
})

var _ = Describe("Unsupported filesystem [E2E-02]", func() {
	It("should log a single error for ntfs and leave the volume alone", func() {
		host := mock.NewMockHost().AddExternalVolume("disk3s2", "ntfs", true)
		e := newEnv(host)

		_, err := e.checker.Run(policy.ModeNormal)
		Expect(err).NotTo(HaveOccurred())

		Expect(e.messages("ERROR")).To(Equal([]string{
			"Unsupported filesystem type 'ntfs' for disk3s2. Skipping verification.",
		}))
		Expect(host.MutationCalls()).To(BeEmpty())
		Expect(host.IsMounted("disk3s2")).To(BeTrue())
	})
})

var _ = Describe("No volumes [E2E-03]", func() {
	It("should report all clear when nothing is attached", func() {
		e := newEnv(mock.NewMockHost().AddInternalSystemVolume("disk1s1"))

		report, err := e.checker.Run(policy.ModeNormal)
		Expect(err).NotTo(HaveOccurred())
		Expect(report.Volumes).To(BeEmpty())

		Expect(e.messages("INFO")).To(ContainElement("No external disks found to check."))
		e.expectSingleSummary(audit.AllClear)
	})
})

var _ = Describe("System volumes [E2E-04]", func() {
	DescribeTable("should never mutate a system volume",
		func(mode policy.Mode) {
			host := mock.NewMockHost().
				AddExternalVolume("disk2s1", "hfs", true).
				MarkSystem("disk2s1")
			e := newEnv(host)

			_, err := e.checker.Run(mode)
			Expect(err).NotTo(HaveOccurred())

			Expect(host.MutationCalls()).To(BeEmpty())
			Expect(e.messages("ERROR")).To(ContainElement("disk2s1 appears to be a system disk. Skipping."))
			e.expectSingleSummary(audit.ReviewRequired)
		},
		Entry("normal", policy.ModeNormal),
		Entry("non-interactive", policy.ModeNonInteractive),
		Entry("dry run", policy.ModeDryRun),
	)
})

var _ = Describe("Dry run [E2E-05]", func() {
	It("should only report intended actions", func() {
		host := mock.NewMockHost().
			AddExternalVolume("disk2s1", "apfs", true).
			AddExternalVolume("disk4s1", "msdos", false)
		e := newEnv(host)

		_, err := e.checker.Run(policy.ModeDryRun)
		Expect(err).NotTo(HaveOccurred())

		Expect(host.MutationCalls()).To(BeEmpty())
		Expect(e.messages("INFO")).To(ContainElements(
			"Dry run: Would attempt to unmount disk2s1.",
			"Dry run: Would verify disk2s1 with filesystem type apfs.",
			"Dry run: Would verify disk4s1 with filesystem type msdos.",
		))
		e.expectSingleSummary(audit.AllClear)
	})
})

var _ = Describe("Remount [E2E-06]", func() {
	It("should release a volume after a successful remount", func() {
		host := mock.NewMockHost().AddExternalVolume("disk2s1", "exfat", true)
		e := newEnv(host)

		_, err := e.checker.Run(policy.ModeNormal)
		Expect(err).NotTo(HaveOccurred())
		Expect(e.checker.Tracker().Len()).To(BeZero())
		e.expectSingleSummary(audit.AllClear)
	})

	It("should keep a volume registered when the remount fails", func() {
		host := mock.NewMockHost().AddExternalVolume("disk2s1", "exfat", true)
		host.Fail(mock.OpMount, "disk2s1", "Volume on disk2s1 failed to mount")
		e := newEnv(host)

		_, err := e.checker.Run(policy.ModeNormal)
		Expect(err).NotTo(HaveOccurred())

		Expect(e.checker.Tracker().List()).To(Equal([]string{"disk2s1"}))
		Expect(host.CountCalls(mock.OpMount, "disk2s1")).To(Equal(1))
		Expect(e.manualLog()).To(ContainSubstring("Unable to remount disk2s1. You may need to remount it manually."))
		e.expectSingleSummary(audit.ReviewRequired)

		By("Leaving the volume in the state file for the next run")
		entries, err := tracker.NewFileStore(filepath.Join(e.dir, tracker.StateFileName), "").Load()
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(HaveLen(1))
		Expect(entries[0].ID).To(Equal("disk2s1"))
	})
})

var _ = Describe("Interruption [E2E-07]", func() {
	It("should remount exactly once when interrupted after an unmount", func() {
		host := mock.NewMockHost().
			AddExternalVolume("disk2s1", "apfs", true).
			AddExternalVolume("disk4s1", "hfs", true)
		e := newEnv(host)

		exitCodes := make(chan int, 1)
		stop := e.checker.Watch(func(code int) { exitCodes <- code })
		DeferCleanup(stop)

		host.SetHook(func(c mock.Call) {
			if c.Op == mock.OpVerify && c.ID == "disk2s1" {
				Expect(syscall.Kill(os.Getpid(), syscall.SIGHUP)).To(Succeed())
				Eventually(exitCodes, defaultTimeout, pollInterval).Should(Receive(Equal(0)))
			}
		})

		report, err := e.checker.Run(policy.ModeNormal)
		Expect(err).NotTo(HaveOccurred())
		Expect(report.Interrupted).To(BeTrue())

		Expect(host.CountCalls(mock.OpMount, "disk2s1")).To(Equal(1))
		Expect(e.checker.Tracker().Len()).To(BeZero())
		Expect(host.CallsFor("disk4s1")).To(BeEmpty(), "no new volumes after the interrupt")
		Expect(e.messages("INFO")).To(ContainElement("Performing cleanup (received hangup)."))
		e.expectSingleSummary(audit.AllClear)
	})

	It("should finalize once when cleanup is invoked twice", func() {
		e := newEnv(mock.NewMockHost().AddExternalVolume("disk3s2", "ntfs", false))

		_, err := e.checker.Run(policy.ModeNonInteractive)
		Expect(err).NotTo(HaveOccurred())
		Expect(e.checker.Cleanup("received interrupt")).To(Succeed())

		e.waitForSummary()
		e.expectSingleSummary(audit.ReviewRequired)
	})
})

var _ = Describe("Stale state [E2E-08]", func() {
	It("should report volumes a killed run left unmounted", func() {
		e := newEnv(nil)
		Expect(tracker.NewFileStore(filepath.Join(e.dir, tracker.StateFileName), "killed-run").
			Save([]tracker.Entry{{ID: "disk5s1"}})).To(Succeed())

		Expect(e.checker.ReportStale()).To(Equal(1))
		_, err := e.checker.Run(policy.ModeNormal)
		Expect(err).NotTo(HaveOccurred())

		Expect(e.manualLog()).To(ContainSubstring("disk5s1 was left unmounted by a previous run"))
		e.expectSingleSummary(audit.ReviewRequired)
	})
})
