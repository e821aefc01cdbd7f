// internal/driver/epson/builder.go
package epson

import (
	"bytes"
	"errors"
	"fmt"

	"golang.org/x/text/encoding/japanese"

	"printer-service/internal/model"
	"printer-service/pkg/driver"
)

// ErrEmptyJob is returned by Encode when no command was added.
var ErrEmptyJob = errors.New("print job has no commands")

type commandKind int

const (
	cmdLang commandKind = iota
	cmdDensity
	cmdText
	cmdAlign
	cmdStyle
	cmdSize
	cmdFeed
	cmdCut
	cmdPulse
	cmdSound
)

type command struct {
	kind commandKind
	text string
	a, b int
}

// Builder records receipt commands and encodes them as ESC/POS with
// Shift_JIS text.
type Builder struct {
	commands []command
}

// NewBuilder creates an empty command builder
func NewBuilder() *Builder {
	return &Builder{}
}

var _ driver.Builder = (*Builder)(nil)

func (b *Builder) add(c command) { b.commands = append(b.commands, c) }

// AddTextLang selects the character set. Only "ja" switches to kanji mode.
func (b *Builder) AddTextLang(lang string) { b.add(command{kind: cmdLang, text: lang}) }

// AddDensity sets print density in steps from -6 to 6.
func (b *Builder) AddDensity(step int) { b.add(command{kind: cmdDensity, a: step}) }

func (b *Builder) AddText(text string) { b.add(command{kind: cmdText, text: text}) }

func (b *Builder) AddTextAlign(align driver.Align) {
	b.add(command{kind: cmdAlign, text: string(align)})
}

func (b *Builder) AddTextStyle(emphasis bool) {
	n := 0
	if emphasis {
		n = 1
	}
	b.add(command{kind: cmdStyle, a: n})
}

// AddTextSize sets the character magnification, 1 to 8 in each direction.
func (b *Builder) AddTextSize(width, height int) {
	b.add(command{kind: cmdSize, a: clamp(width, 1, 8), b: clamp(height, 1, 8)})
}

func (b *Builder) AddFeedLine(lines int) { b.add(command{kind: cmdFeed, a: clamp(lines, 0, 255)}) }

func (b *Builder) AddCut(cut model.CutType) { b.add(command{kind: cmdCut, text: string(cut)}) }

// AddPulse kicks the cash drawer on connector pin 2.
func (b *Builder) AddPulse() { b.add(command{kind: cmdPulse}) }

func (b *Builder) AddSound() { b.add(command{kind: cmdSound}) }

// Len returns the number of recorded commands.
func (b *Builder) Len() int { return len(b.commands) }

// Encode renders the recorded commands.
func (b *Builder) Encode() ([]byte, error) {
	if len(b.commands) == 0 {
		return nil, ErrEmptyJob
	}
	var buf bytes.Buffer
	for _, c := range b.commands {
		switch c.kind {
		case cmdLang:
			if c.text == "ja" {
				buf.Write(ESC_POS_COMMANDS.SELECT_INTL_JAPAN)
				buf.Write(ESC_POS_COMMANDS.SELECT_CODE_KATAKANA)
				buf.Write(ESC_POS_COMMANDS.SELECT_KANJI_SJIS)
				buf.Write(ESC_POS_COMMANDS.SELECT_KANJI_MODE)
			} else {
				buf.Write(ESC_POS_COMMANDS.CANCEL_KANJI_MODE)
			}
		case cmdDensity:
			buf.Write(ESC_POS_COMMANDS.SET_DENSITY)
			buf.WriteByte(densityByte(c.a))
		case cmdText:
			buf.Write(encodeShiftJIS(c.text))
		case cmdAlign:
			switch driver.Align(c.text) {
			case driver.AlignCenter:
				buf.Write(ESC_POS_COMMANDS.ALIGN_CENTER)
			case driver.AlignRight:
				buf.Write(ESC_POS_COMMANDS.ALIGN_RIGHT)
			default:
				buf.Write(ESC_POS_COMMANDS.ALIGN_LEFT)
			}
		case cmdStyle:
			if c.a == 1 {
				buf.Write(ESC_POS_COMMANDS.TEXT_BOLD_ON)
			} else {
				buf.Write(ESC_POS_COMMANDS.TEXT_BOLD_OFF)
			}
		case cmdSize:
			buf.Write(ESC_POS_COMMANDS.TEXT_SIZE)
			buf.WriteByte(byte((c.a-1)<<4 | (c.b - 1)))
		case cmdFeed:
			buf.Write(ESC_POS_COMMANDS.FEED_LINES)
			buf.WriteByte(byte(c.a))
		case cmdCut:
			if model.CutType(c.text) == model.CutPartial {
				buf.Write(ESC_POS_COMMANDS.CUT_PARTIAL)
			} else {
				buf.Write(ESC_POS_COMMANDS.CUT_FULL)
			}
		case cmdPulse:
			buf.Write(ESC_POS_COMMANDS.DRAWER_KICK_PIN2)
		case cmdSound:
			buf.Write(ESC_POS_COMMANDS.BUZZER)
		default:
			return nil, fmt.Errorf("unknown command kind %d", c.kind)
		}
	}
	return buf.Bytes(), nil
}

// encodeShiftJIS converts text to Shift_JIS. Characters outside the
// character set print as '?'.
func encodeShiftJIS(text string) []byte {
	enc := japanese.ShiftJIS.NewEncoder()
	if out, err := enc.Bytes([]byte(text)); err == nil {
		return out
	}
	out := make([]byte, 0, len(text))
	for _, r := range text {
		b, err := enc.Bytes([]byte(string(r)))
		if err != nil {
			out = append(out, '?')
			continue
		}
		out = append(out, b...)
	}
	return out
}

// processIDRequest asks the printer to echo token once everything before it
// has been printed.
func processIDRequest(token string) []byte {
	req := make([]byte, 0, len(ESC_POS_COMMANDS.PROCESS_ID)+4)
	req = append(req, ESC_POS_COMMANDS.PROCESS_ID...)
	return append(req, token[:4]...)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
