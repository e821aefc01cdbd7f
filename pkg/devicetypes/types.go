// pkg/devicetypes/types.go
package devicetypes

import "fmt"

// Printer definitions shared between the driver, the client and the API

// SupportedModels lists the receipt printers the ESC/POS transport is tested against
var SupportedModels = []string{
	"TM-T88VI", "TM-T88VII", "TM-T70II", "TM-m30II", "TM-m30III", "TM-T20III",
}

// ErrorMessages maps error codes to messages shown to store staff
var ErrorMessages = map[string]string{
	// connection
	"INVALID_SETTINGS":    "プリンタの設定が正しくありません",
	"DEVICE_NOT_FOUND":    "プリンタが見つかりません",
	"DEVICE_BUSY":         "プリンタは使用中です",
	"DEVICE_IN_USE":       "プリンタは他の端末で使用中です",
	"DEVICE_TYPE_INVALID": "デバイスの種類が正しくありません",
	"DEVICE_OPEN_ERROR":   "プリンタを開けませんでした",
	"CONNECT_TIMEOUT":     "プリンタへの接続がタイムアウトしました",
	"SSL_CONNECT_FAIL":    "暗号化接続に失敗しました",
	"DISCONNECT":          "プリンタとの接続が切断されました",
	"ERROR_PARAMETER":     "パラメータが正しくありません",
	"SYSTEM_ERROR":        "システムエラーが発生しました",

	// printing
	"NOT_INITIALIZED":    "プリンタが初期化されていません",
	"NOT_CONNECTED":      "プリンタが接続されていません",
	"TIMEOUT":            "印刷がタイムアウトしました",
	"PRINT_FAILED":       "印刷に失敗しました",
	"CANCELED":           "印刷がキャンセルされました",
	"UNKNOWN":            "不明なエラーが発生しました",
	"DEVICE_OFFLINE":     "プリンタがオフラインです",
	"DEVICE_NO_RESPONSE": "プリンタから応答がありません",

	// device reported
	"EPTR_COVER_OPEN":    "プリンタのカバーが開いています",
	"EPTR_REC_EMPTY":     "用紙がありません",
	"EPTR_MECHANICAL":    "メカニカルエラーが発生しました",
	"EPTR_CUTTER":        "オートカッターエラーが発生しました",
	"EPTR_UNRECOVERABLE": "復帰不可能エラーが発生しました",
	"EPTR_AUTOMATICAL":   "自動復帰エラーが発生しました",
}

// MessageFor returns the staff-facing message for code. Unknown codes are
// rendered generically rather than dropped.
func MessageFor(code string) string {
	if msg, ok := ErrorMessages[code]; ok {
		return msg
	}
	return fmt.Sprintf("エラー: %s", code)
}

// Standard timeouts for printer operations, in seconds
var DefaultTimeouts = map[string]int{
	"CONNECT":      15,
	"PRINT":        60,
	"STATUS_CHECK": 5,
	"DISCOVERY":    5,
}
