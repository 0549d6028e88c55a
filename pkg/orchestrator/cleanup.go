package orchestrator

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"

	"k8s.io/klog/v2"

	"git.srvlab.io/whiskey/diskcheck/pkg/policy"
	"git.srvlab.io/whiskey/diskcheck/pkg/tracker"
)

// Finalizer is the audit log as seen by cleanup
type Finalizer interface {
	policy.Logger
	Finalize() error
	ErrorCount() int
}

// Cleanup remounts what the run left unmounted and finalizes the audit log.
// The normal end of a run and the signal path share the same Run, which
// executes at most once.
type Cleanup struct {
	once sync.Once

	mounter Mounter
	tracker *tracker.Tracker
	log     Finalizer

	// cancel stops the run from taking new volumes
	cancel context.CancelFunc

	// onFinish runs after the sweep, before the summary is written
	onFinish func(reason string)

	err error
}

// NewCleanup creates a Cleanup. cancel may be nil.
func NewCleanup(mounter Mounter, t *tracker.Tracker, log Finalizer, cancel context.CancelFunc) *Cleanup {
	return &Cleanup{
		mounter: mounter,
		tracker: t,
		log:     log,
		cancel:  cancel,
	}
}

// OnFinish installs a hook that runs once the remount sweep is done
func (c *Cleanup) OnFinish(fn func(reason string)) {
	c.onFinish = fn
}

// Run performs cleanup once. Later calls block until the first finishes and
// return its result.
func (c *Cleanup) Run(reason string) error {
	c.once.Do(func() {
		c.err = c.run(reason)
	})
	return c.err
}

func (c *Cleanup) run(reason string) error {
	if c.cancel != nil {
		c.cancel()
	}
	c.log.Info(fmt.Sprintf("Performing cleanup (%s).", reason))

	stranded := c.tracker.Stranded()
	for _, id := range c.tracker.Pending() {
		remount(c.mounter, c.tracker, c.log, id)
	}
	for _, id := range stranded {
		c.log.Error(fmt.Sprintf("%s is still unmounted after a failed remount. Remount it manually.", id))
	}

	if left := c.tracker.Len(); left > 0 {
		klog.Warningf("%d volumes remain unmounted: %v", left, c.tracker.List())
	}

	if c.onFinish != nil {
		c.onFinish(reason)
	}

	if err := c.log.Finalize(); err != nil {
		klog.Errorf("Failed to finalize audit log: %v", err)
		return err
	}
	return nil
}

// Watch runs cleanup and then exit(0) when one of sigs arrives. The returned
// stop function uninstalls the handler.
func (c *Cleanup) Watch(exit func(code int), sigs ...os.Signal) (stop func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, sigs...)

	done := make(chan struct{})
	var stopOnce sync.Once

	go func() {
		select {
		case sig := <-ch:
			klog.V(2).Infof("Received %s", sig)
			_ = c.Run(fmt.Sprintf("received %s", sig))
			exit(0)
		case <-done:
		}
	}()

	return func() {
		stopOnce.Do(func() {
			signal.Stop(ch)
			close(done)
		})
	}
}
