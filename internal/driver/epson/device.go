// internal/driver/epson/device.go
package epson

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"printer-service/pkg/driver"
)

// asbEnableAll turns on every automatic status back category
const asbEnableAll = 0xFF

// Device is a printer handle created by Transport.CreateDevice
type Device struct {
	id        string
	transport *Transport
	opts      driver.DeviceOptions
	logger    *zap.Logger

	mutex      sync.Mutex
	handler    driver.EventHandler
	pending    map[string]string // process id token -> job id
	nextToken  int
	status     uint32
	haveStatus bool
	reported   bool
	lastFrame  time.Time
	powerOff   bool

	monitorCancel context.CancelFunc
	monitorDone   chan struct{}
}

var _ driver.Device = (*Device)(nil)

func newDevice(id string, t *Transport, opts driver.DeviceOptions, logger *zap.Logger) *Device {
	return &Device{
		id:        id,
		transport: t,
		opts:      opts,
		logger:    logger.With(zap.String("handle", id)),
		handler:   driver.NopEventHandler{},
		pending:   make(map[string]string),
	}
}

func (d *Device) ID() string { return d.id }

// SetEventHandler replaces the handler. nil restores the no-op handler.
func (d *Device) SetEventHandler(handler driver.EventHandler) {
	if handler == nil {
		handler = driver.NopEventHandler{}
	}
	d.mutex.Lock()
	d.handler = handler
	d.mutex.Unlock()
}

// initSequence resets the printer, selects Japanese text and arms status
// back.
func (d *Device) initSequence() []byte {
	seq := make([]byte, 0, 32)
	seq = append(seq, ESC_POS_COMMANDS.INITIALIZE...)
	seq = append(seq, ESC_POS_COMMANDS.SELECT_INTL_JAPAN...)
	seq = append(seq, ESC_POS_COMMANDS.SELECT_CODE_KATAKANA...)
	seq = append(seq, ESC_POS_COMMANDS.SELECT_KANJI_SJIS...)
	seq = append(seq, ESC_POS_COMMANDS.SELECT_KANJI_MODE...)
	if d.opts.Density != 0 {
		seq = append(seq, ESC_POS_COMMANDS.SET_DENSITY...)
		seq = append(seq, densityByte(d.opts.Density))
	}
	seq = append(seq, ESC_POS_COMMANDS.ENABLE_ASB...)
	return append(seq, asbEnableAll)
}

// Send writes the job followed by a process id request. The printer echoes
// the id once the job has been printed.
func (d *Device) Send(ctx context.Context, jobID string, payload []byte) error {
	d.mutex.Lock()
	d.nextToken = d.nextToken%9999 + 1
	token := fmt.Sprintf("%04d", d.nextToken)
	d.pending[token] = jobID
	status := d.status
	blocked := failureCode(status)
	if d.powerOff {
		blocked = driver.CodeDeviceNoResp
	}
	if blocked != "" {
		delete(d.pending, token)
	}
	handler := d.handler
	d.mutex.Unlock()

	if blocked != "" {
		d.logger.Warn("Printer not ready, job rejected",
			zap.String("job_id", jobID),
			zap.String("code", blocked),
		)
		d.transport.enqueue(func() {
			handler.OnReceive(driver.Response{JobID: jobID, Code: blocked, Status: status})
		})
		return nil
	}

	data := make([]byte, 0, len(payload)+len(ESC_POS_COMMANDS.PROCESS_ID)+4)
	data = append(data, payload...)
	data = append(data, processIDRequest(token)...)

	if err := d.transport.write(ctx, data); err != nil {
		d.mutex.Lock()
		delete(d.pending, token)
		d.mutex.Unlock()
		return fmt.Errorf("failed to send job %s: %w", jobID, err)
	}

	d.logger.Debug("Job sent",
		zap.String("job_id", jobID),
		zap.String("token", token),
		zap.Int("bytes", len(data)),
	)
	return nil
}

// handleProcessID resolves the job waiting on token. It reports whether the
// token belonged to this device.
func (d *Device) handleProcessID(token string) bool {
	d.mutex.Lock()
	jobID, ok := d.pending[token]
	if ok {
		delete(d.pending, token)
	}
	status := d.status
	handler := d.handler
	d.mutex.Unlock()

	if !ok {
		return false
	}
	d.transport.enqueue(func() {
		handler.OnReceive(driver.Response{
			JobID:   jobID,
			Success: true,
			Code:    driver.CodeSuccess,
			Status:  status | driver.StatusPrintSuccess,
		})
	})
	return true
}

// handleStatus records a decoded ASB frame, fails pending jobs on error
// bits and raises monitor events on edges.
func (d *Device) handleStatus(bits uint32) {
	d.mutex.Lock()
	prev, hadStatus := d.status, d.haveStatus
	d.status = bits
	d.haveStatus = true
	d.lastFrame = time.Now()
	d.powerOff = false

	var failed []string
	code := failureCode(bits)
	if code != "" {
		for token, jobID := range d.pending {
			failed = append(failed, jobID)
			delete(d.pending, token)
		}
	}

	monitoring := d.monitorCancel != nil
	firstReport := monitoring && !d.reported
	if monitoring {
		d.reported = true
	}
	handler := d.handler
	d.mutex.Unlock()

	for _, jobID := range failed {
		jobID := jobID
		d.transport.enqueue(func() {
			handler.OnReceive(driver.Response{JobID: jobID, Code: code, Status: bits})
		})
	}

	if !monitoring || (!firstReport && prev == bits) {
		return
	}
	d.transport.enqueue(func() { handler.OnStatusChange(bits) })
	if hadStatus {
		d.raiseEdges(handler, prev, bits)
	}
}

// raiseEdges fires one discrete event per flag that changed.
func (d *Device) raiseEdges(h driver.EventHandler, prev, next uint32) {
	changed := func(bit uint32) (bool, bool) {
		return prev&bit != next&bit, next&bit != 0
	}

	if c, set := changed(driver.StatusOffline); c {
		if set {
			d.transport.enqueue(h.OnOffline)
		} else {
			d.transport.enqueue(h.OnOnline)
		}
	}
	if c, set := changed(driver.StatusCoverOpen); c {
		if set {
			d.transport.enqueue(h.OnCoverOpen)
		} else {
			d.transport.enqueue(h.OnCoverOK)
		}
	}

	paper := driver.StatusReceiptEnd | driver.StatusReceiptNearEnd
	if prev&paper != next&paper {
		switch {
		case next&driver.StatusReceiptEnd != 0:
			d.transport.enqueue(h.OnPaperEnd)
		case next&driver.StatusReceiptNearEnd != 0:
			d.transport.enqueue(h.OnPaperNearEnd)
		default:
			d.transport.enqueue(h.OnPaperOK)
		}
	}

	if c, set := changed(driver.StatusDrawerKick); c {
		if set {
			d.transport.enqueue(h.OnDrawerOpen)
		} else {
			d.transport.enqueue(h.OnDrawerClosed)
		}
	}
}

// failPending resolves every waiting job with code.
func (d *Device) failPending(code string) {
	d.mutex.Lock()
	jobs := make([]string, 0, len(d.pending))
	for token, jobID := range d.pending {
		jobs = append(jobs, jobID)
		delete(d.pending, token)
	}
	status := d.status
	handler := d.handler
	d.mutex.Unlock()

	for _, jobID := range jobs {
		jobID := jobID
		d.transport.enqueue(func() {
			handler.OnReceive(driver.Response{JobID: jobID, Code: code, Status: status})
		})
	}
}

// StartMonitor polls the printer by re-arming status back every interval.
func (d *Device) StartMonitor() error {
	d.mutex.Lock()
	if d.monitorCancel != nil {
		d.mutex.Unlock()
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	d.monitorCancel = cancel
	d.monitorDone = make(chan struct{})
	d.reported = false
	d.lastFrame = time.Now()
	done := d.monitorDone
	d.mutex.Unlock()

	go d.monitorLoop(ctx, done)
	d.logger.Info("Status monitor started", zap.Duration("interval", d.opts.MonitorInterval))
	return nil
}

// StopMonitor stops polling. Calling it when not monitoring is a no-op.
func (d *Device) StopMonitor() error {
	d.stopMonitor()
	return nil
}

func (d *Device) stopMonitor() {
	d.mutex.Lock()
	cancel, done := d.monitorCancel, d.monitorDone
	d.monitorCancel = nil
	d.monitorDone = nil
	d.powerOff = false
	d.mutex.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	d.logger.Info("Status monitor stopped")
}

func (d *Device) monitorLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	interval := d.opts.MonitorInterval
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	d.poll(ctx, interval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.checkResponsive(interval)
			d.poll(ctx, interval)
		}
	}
}

func (d *Device) poll(ctx context.Context, interval time.Duration) {
	writeCtx, cancel := context.WithTimeout(ctx, interval)
	defer cancel()

	arm := append(append([]byte{}, ESC_POS_COMMANDS.ENABLE_ASB...), asbEnableAll)
	if err := d.transport.write(writeCtx, arm); err != nil && ctx.Err() == nil {
		d.logger.Debug("Status poll failed", zap.Error(err))
	}
}

// checkResponsive flags the printer as powered off once no frame has
// arrived for two intervals.
func (d *Device) checkResponsive(interval time.Duration) {
	d.mutex.Lock()
	if d.powerOff || time.Since(d.lastFrame) < 2*interval {
		d.mutex.Unlock()
		return
	}
	prev := d.status
	next := driver.StatusNoResponse | driver.StatusOffline
	d.status = next
	d.powerOff = true
	hadStatus := d.haveStatus
	d.haveStatus = true
	d.reported = true
	handler := d.handler
	d.mutex.Unlock()

	d.logger.Warn("Printer stopped responding", zap.Duration("silence", 2*interval))
	d.transport.enqueue(func() { handler.OnStatusChange(next) })
	d.transport.enqueue(handler.OnPowerOff)
	if hadStatus && prev&driver.StatusOffline == 0 {
		d.transport.enqueue(handler.OnOffline)
	}
	d.failPending(driver.CodeDeviceNoResp)
}

// failureCode maps error bits to the response code a pending job fails
// with, or "" when the printer can print.
func failureCode(bits uint32) string {
	switch {
	case bits&driver.StatusCoverOpen != 0:
		return driver.CodeCoverOpen
	case bits&driver.StatusReceiptEnd != 0:
		return driver.CodeReceiptEnd
	case bits&driver.StatusMechanicalErr != 0:
		return driver.CodeMechanical
	case bits&driver.StatusAutocutterErr != 0:
		return driver.CodeAutocutter
	case bits&driver.StatusUnrecoverErr != 0:
		return driver.CodeUnrecoverable
	case bits&driver.StatusAutorecoverErr != 0:
		return driver.CodeAutoRecover
	default:
		return ""
	}
}
