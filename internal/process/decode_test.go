package process

import (
	"strings"
	"testing"
	"unicode/utf8"

	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

func TestDecodeUTF8Passthrough(t *testing.T) {
	d := &lineDecoder{}
	if got := d.Decode([]byte("tunnel online")); got != "tunnel online" {
		t.Fatalf("utf-8 line mangled: %q", got)
	}
	if got := d.Decode([]byte("隧道启动成功")); got != "隧道启动成功" {
		t.Fatalf("utf-8 chinese mangled: %q", got)
	}
}

func TestDecodeGBKSticky(t *testing.T) {
	msg := "隧道启动成功"
	raw, _, err := transform.Bytes(simplifiedchinese.GBK.NewEncoder(), []byte(msg))
	if err != nil {
		t.Fatalf("encode fixture: %v", err)
	}

	d := &lineDecoder{}
	if got := d.Decode(raw); got != msg {
		t.Fatalf("gbk decode failed: %q", got)
	}
	if d.sticky == nil {
		t.Fatalf("decoder should remember the working encoding")
	}

	// Second line reuses the sticky encoding.
	if got := d.Decode(raw); got != msg {
		t.Fatalf("sticky decode failed: %q", got)
	}
}

func TestDecodeNeverDropsLine(t *testing.T) {
	d := &lineDecoder{}
	got := d.Decode([]byte{0xff, 0xfe, 0xfd})
	if got == "" {
		t.Fatalf("undecodable input should still produce output")
	}
}

func TestDecodeRejectsLossyCharsetMatch(t *testing.T) {
	// Bytes no supported charset maps cleanly. The decoder must fall through
	// to replacement runes without latching any encoding.
	garbage := []byte{0xff, 0xfe, 0xfd}

	if _, err := decodeWith(simplifiedchinese.GBK, garbage); err == nil {
		t.Fatalf("lossy gbk decode should be treated as failure")
	}

	d := &lineDecoder{}
	got := d.Decode(garbage)
	if !strings.ContainsRune(got, utf8.RuneError) {
		t.Fatalf("expected replacement runes, got %q", got)
	}
	if d.sticky != nil {
		t.Fatalf("garbage input must not latch an encoding, got %v", d.sticky)
	}

	// A real GBK line afterwards still decodes and latches.
	msg := "连接就绪"
	raw, _, err := transform.Bytes(simplifiedchinese.GBK.NewEncoder(), []byte(msg))
	if err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	if got := d.Decode(raw); got != msg {
		t.Fatalf("gbk decode after garbage failed: %q", got)
	}
	if d.sticky == nil {
		t.Fatalf("clean gbk decode should latch the encoding")
	}
}
