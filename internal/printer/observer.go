// internal/printer/observer.go
package printer

import (
	"printer-service/internal/model"
	"printer-service/pkg/driver"
)

// Observer is the set of callbacks a client reports to. Nil fields are
// skipped. A client holds exactly one Observer; SetObserver replaces it.
type Observer struct {
	OnConnect      func()
	OnDisconnect   func()
	OnReceive      func(resp driver.Response)
	OnStatusChange func(status model.PrinterStatus)
	OnError        func(err *Error)
	OnOnline       func()
	OnOffline      func()
	OnPowerOff     func()
	OnCoverOK      func()
	OnCoverOpen    func()
	OnPaperOK      func()
	OnPaperNearEnd func()
	OnPaperEnd     func()
	OnDrawerClosed func()
	OnDrawerOpen   func()
}

func call(fn func()) {
	if fn != nil {
		fn()
	}
}
