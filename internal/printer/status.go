// internal/printer/status.go
package printer

import (
	"printer-service/internal/model"
	"printer-service/pkg/driver"
)

// statusErrors is checked in order; the first set bit names the error.
var statusErrors = []struct {
	bit uint32
	msg string
}{
	{driver.StatusNoResponse, "プリンタが応答しません"},
	{driver.StatusMechanicalErr, "メカニカルエラーが発生しました"},
	{driver.StatusAutocutterErr, "オートカッターエラーが発生しました"},
	{driver.StatusUnrecoverErr, "復帰不可能エラーが発生しました"},
	{driver.StatusAutorecoverErr, "自動復帰エラーが発生しました"},
}

// DecodeStatus turns a status bitmask into flags plus the single most
// actionable error message, if any.
func DecodeStatus(bits uint32) model.PrinterStatus {
	st := model.PrinterStatus{
		Online:       bits&driver.StatusOffline == 0,
		CoverOpen:    bits&driver.StatusCoverOpen != 0,
		PaperEnd:     bits&driver.StatusReceiptEnd != 0,
		PaperNearEnd: bits&driver.StatusReceiptNearEnd != 0,
		DrawerOpen:   bits&driver.StatusDrawerKick != 0,
		Raw:          bits,
	}
	for _, e := range statusErrors {
		if bits&e.bit != 0 {
			st.Error = e.msg
			break
		}
	}
	return st
}
