package ptp

import (
	"strings"
	"time"
)

// ptpDateLayout is PTP's DateTime string format without a timezone
// offset; ptpDateLayoutTZ includes a numeric offset. Grounded on
// mtp/encoding.go's encodeTime/decodeTime.
const (
	ptpDateLayout   = "20060102T150405"
	ptpDateLayoutTZ = "20060102T150405-0700"
)

// NewDateTimeCodec returns a Custom codec wrapping the PTP string codec
// with a time.Time <-> PTP DateTime string translation. Tolerates the
// trailing-dot and trailing-"Z" variants some devices (Samsung, Jolla)
// emit, matching the teacher's decodeTime.
func NewDateTimeCodec(name string) Codec {
	str := NewPrimitiveCodec(KindString, name+".string")
	return NewCustomCodec(name,
		func(c *Cursor, value interface{}) error {
			t, ok := value.(time.Time)
			if !ok {
				return &ValidationError{Field: name, Reason: "expected time.Time"}
			}
			s := t.Format(ptpDateLayout)
			return str.Encode(c, s)
		},
		func(c *Cursor) (interface{}, error) {
			raw, err := str.Decode(c)
			if err != nil {
				return nil, err
			}
			s := raw.(string)
			s = strings.TrimRight(s, ".")
			s = strings.TrimSuffix(s, "Z")
			if t, err := time.Parse(ptpDateLayoutTZ, s); err == nil {
				return t, nil
			}
			return time.Parse(ptpDateLayout, s)
		},
	)
}
