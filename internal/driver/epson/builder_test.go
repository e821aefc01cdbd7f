package epson

import (
	"bytes"
	"errors"
	"testing"

	"printer-service/internal/model"
	"printer-service/pkg/driver"
)

func TestEncodeShiftJIS(t *testing.T) {
	tests := []struct {
		in   string
		want []byte
	}{
		{"abc", []byte("abc")},
		{"あ", []byte{0x82, 0xA0}},
		{"漢", []byte{0x8A, 0xBF}},
		{"¥100", []byte{0x5C, '1', '0', '0'}},
		{"ｱ", []byte{0xB1}},
		{"a😀b", []byte("a?b")},
	}
	for _, tt := range tests {
		if got := encodeShiftJIS(tt.in); !bytes.Equal(got, tt.want) {
			t.Errorf("encodeShiftJIS(%q) = % X, want % X", tt.in, got, tt.want)
		}
	}
}

func TestBuilderEncode(t *testing.T) {
	b := NewBuilder()
	b.AddTextAlign(driver.AlignCenter)
	b.AddTextStyle(true)
	b.AddTextSize(1, 2)
	b.AddText("合計\n")
	b.AddTextSize(1, 1)
	b.AddFeedLine(3)
	b.AddCut(model.CutPartial)
	b.AddPulse()
	b.AddSound()

	got, err := b.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	var want []byte
	want = append(want, 0x1B, 0x61, 0x01)
	want = append(want, 0x1B, 0x45, 0x01)
	want = append(want, 0x1D, 0x21, 0x01)
	want = append(want, 0x8D, 0x87, 0x8C, 0x76, 0x0A)
	want = append(want, 0x1D, 0x21, 0x00)
	want = append(want, 0x1B, 0x64, 0x03)
	want = append(want, 0x1D, 0x56, 0x01)
	want = append(want, ESC_POS_COMMANDS.DRAWER_KICK_PIN2...)
	want = append(want, ESC_POS_COMMANDS.BUZZER...)

	if !bytes.Equal(got, want) {
		t.Fatalf("Encode mismatch\n got % X\nwant % X", got, want)
	}
}

func TestBuilderLangAndDensity(t *testing.T) {
	b := NewBuilder()
	b.AddTextLang("ja")
	b.AddDensity(-2)
	got, err := b.Encode()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(got, ESC_POS_COMMANDS.SELECT_INTL_JAPAN) {
		t.Errorf("missing international character set: % X", got)
	}
	if !bytes.Contains(got, ESC_POS_COMMANDS.SELECT_KANJI_MODE) {
		t.Errorf("kanji mode not selected: % X", got)
	}
	if !bytes.HasSuffix(got, append(append([]byte{}, ESC_POS_COMMANDS.SET_DENSITY...), 0xFE)) {
		t.Errorf("density not encoded: % X", got)
	}
}

func TestBuilderEmpty(t *testing.T) {
	if _, err := NewBuilder().Encode(); !errors.Is(err, ErrEmptyJob) {
		t.Fatalf("expected ErrEmptyJob, got %v", err)
	}
}

func TestProcessIDRequest(t *testing.T) {
	got := processIDRequest("0042")
	want := []byte{0x1D, 0x28, 0x48, 0x06, 0x00, 0x30, 0x30, '0', '0', '4', '2'}
	if !bytes.Equal(got, want) {
		t.Fatalf("processIDRequest = % X", got)
	}
}
