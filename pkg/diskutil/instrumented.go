package diskutil

import "time"

// OpRecorder receives the outcome and duration of every host call
type OpRecorder interface {
	RecordHostOp(operation string, err error, duration time.Duration)
}

// instrumentedHost decorates a Host with per-operation metrics
type instrumentedHost struct {
	Host
	recorder OpRecorder
	now      func() time.Time
}

// Instrument wraps host so every call is reported to recorder.
// A nil recorder returns host unchanged.
func Instrument(host Host, recorder OpRecorder) Host {
	if recorder == nil {
		return host
	}
	return &instrumentedHost{Host: host, recorder: recorder, now: time.Now}
}

func (h *instrumentedHost) observe(op string, start time.Time, err error) {
	h.recorder.RecordHostOp(op, err, h.now().Sub(start))
}

func (h *instrumentedHost) ListExternal() (*Listing, error) {
	start := h.now()
	l, err := h.Host.ListExternal()
	h.observe("list-external", start, err)
	return l, err
}

func (h *instrumentedHost) ListAll() (*Listing, error) {
	start := h.now()
	l, err := h.Host.ListAll()
	h.observe("list-all", start, err)
	return l, err
}

func (h *instrumentedHost) Describe(id string) (*DiskInfo, error) {
	start := h.now()
	info, err := h.Host.Describe(id)
	h.observe("info", start, err)
	return info, err
}

func (h *instrumentedHost) Unmount(id string) error {
	return h.run("unmount", id, h.Host.Unmount)
}

func (h *instrumentedHost) Mount(id string) error {
	return h.run("mount", id, h.Host.Mount)
}

func (h *instrumentedHost) Verify(id string) error {
	return h.run("verifyVolume", id, h.Host.Verify)
}

func (h *instrumentedHost) Repair(id string) error {
	return h.run("repairVolume", id, h.Host.Repair)
}

func (h *instrumentedHost) run(op, id string, fn func(string) error) error {
	start := h.now()
	err := fn(id)
	h.observe(op, start, err)
	return err
}
