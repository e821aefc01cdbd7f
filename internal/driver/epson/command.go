// internal/driver/epson/command.go
package epson

// ESC_POS_COMMANDS contains the ESC/POS sequences used for Japanese receipt printing
var ESC_POS_COMMANDS = struct {
	// Basic commands
	INITIALIZE  []byte
	ENABLE_ASB  []byte // + status mask byte
	DISABLE_ASB []byte

	// Japanese text
	SELECT_KANJI_MODE    []byte
	CANCEL_KANJI_MODE    []byte
	SELECT_KANJI_SJIS    []byte
	SELECT_INTL_JAPAN    []byte
	SELECT_CODE_KATAKANA []byte

	// Text formatting
	TEXT_BOLD_ON  []byte
	TEXT_BOLD_OFF []byte
	TEXT_RESET    []byte

	// Text size
	TEXT_SIZE []byte // + (width-1)<<4 | (height-1)

	// Text alignment
	ALIGN_LEFT   []byte
	ALIGN_CENTER []byte
	ALIGN_RIGHT  []byte

	// Paper handling
	LINE_FEED  []byte
	FEED_LINES []byte // + line count byte

	// Print density, GS ( K <Function 49>
	SET_DENSITY []byte // + density byte

	// Cutting
	CUT_FULL    []byte
	CUT_PARTIAL []byte

	// Cash drawer
	DRAWER_KICK_PIN2 []byte

	// Buzzer, ESC ( A
	BUZZER []byte

	// Process ID response, GS ( H <Function 48>
	PROCESS_ID []byte // + 4 ASCII digits
}{
	INITIALIZE:  []byte{0x1B, 0x40},       // ESC @
	ENABLE_ASB:  []byte{0x1D, 0x61},       // GS a n
	DISABLE_ASB: []byte{0x1D, 0x61, 0x00}, // GS a 0

	SELECT_KANJI_MODE:    []byte{0x1C, 0x26},       // FS &
	CANCEL_KANJI_MODE:    []byte{0x1C, 0x2E},       // FS .
	SELECT_KANJI_SJIS:    []byte{0x1C, 0x43, 0x01}, // FS C 1
	SELECT_INTL_JAPAN:    []byte{0x1B, 0x52, 0x08}, // ESC R 8
	SELECT_CODE_KATAKANA: []byte{0x1B, 0x74, 0x01}, // ESC t 1

	TEXT_BOLD_ON:  []byte{0x1B, 0x45, 0x01}, // ESC E 1
	TEXT_BOLD_OFF: []byte{0x1B, 0x45, 0x00}, // ESC E 0
	TEXT_RESET:    []byte{0x1B, 0x21, 0x00}, // ESC ! 0

	TEXT_SIZE: []byte{0x1D, 0x21}, // GS ! n

	ALIGN_LEFT:   []byte{0x1B, 0x61, 0x00}, // ESC a 0
	ALIGN_CENTER: []byte{0x1B, 0x61, 0x01}, // ESC a 1
	ALIGN_RIGHT:  []byte{0x1B, 0x61, 0x02}, // ESC a 2

	LINE_FEED:  []byte{0x0A},       // LF
	FEED_LINES: []byte{0x1B, 0x64}, // ESC d n

	SET_DENSITY: []byte{0x1D, 0x28, 0x4B, 0x02, 0x00, 0x31}, // GS ( K 2 0 49 m

	CUT_FULL:    []byte{0x1D, 0x56, 0x00}, // GS V 0
	CUT_PARTIAL: []byte{0x1D, 0x56, 0x01}, // GS V 1

	DRAWER_KICK_PIN2: []byte{0x1B, 0x70, 0x00, 0x19, 0xFA}, // ESC p 0 25 250

	BUZZER: []byte{0x1B, 0x28, 0x41, 0x04, 0x00, 0x30, 0x33, 0x01, 0x0A}, // ESC ( A 4 0 48 51 1 10

	PROCESS_ID: []byte{0x1D, 0x28, 0x48, 0x06, 0x00, 0x30, 0x30}, // GS ( H 6 0 48 48
}

// Response frame markers
const (
	asbHeaderMask  = 0x93
	asbHeaderValue = 0x10
	asbFrameLen    = 4

	processIDHeader0 = 0x37
	processIDHeader1 = 0x22
	processIDLen     = 7 // header(2) + digits(4) + NUL
)

// densityByte maps a signed density step onto the GS ( K parameter.
func densityByte(step int) byte {
	if step < 0 {
		return byte(256 + step)
	}
	return byte(step)
}
