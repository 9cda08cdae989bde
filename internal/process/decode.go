package process

import (
	"errors"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

// lineDecoder turns raw child output into UTF-8. The tunneling binary prints
// GBK on Chinese Windows installs and UTF-8 elsewhere, so the decoder sticks
// with whichever encoding decoded successfully last.
type lineDecoder struct {
	sticky encoding.Encoding
}

var fallbackEncodings = []encoding.Encoding{
	simplifiedchinese.GBK,
	simplifiedchinese.HZGB2312,
}

func (d *lineDecoder) Decode(raw []byte) string {
	if utf8.Valid(raw) {
		d.sticky = nil
		return string(raw)
	}

	if d.sticky != nil {
		if out, err := decodeWith(d.sticky, raw); err == nil {
			return out
		}
		d.sticky = nil
	}

	for _, enc := range fallbackEncodings {
		if out, err := decodeWith(enc, raw); err == nil {
			d.sticky = enc
			return out
		}
	}

	// Nothing decoded cleanly; keep the bytes with replacement runes rather
	// than dropping the line.
	return string([]rune(string(raw)))
}

var errDecodeLossy = errors.New("decoder substituted replacement runes")

// decodeWith treats substitution as failure. The x/text decoders never return
// an error themselves; they emit U+FFFD for bytes the charset cannot map, so
// a lossless decode is the only acceptable one here.
func decodeWith(enc encoding.Encoding, raw []byte) (string, error) {
	out, _, err := transform.Bytes(enc.NewDecoder(), raw)
	if err != nil {
		return "", err
	}
	if strings.ContainsRune(string(out), utf8.RuneError) {
		return "", errDecodeLossy
	}
	return string(out), nil
}
