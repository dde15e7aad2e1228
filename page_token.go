package gofilter

import (
	"encoding/base64"
	"fmt"
	"strconv"
)

var _encoder = base64.RawURLEncoding

// PageToken is an opaque continuation token for offset based paging. It hides
// the numeric offset from API clients so that the paging strategy can change
// without breaking them.
//
// The empty string is the token of the first page.
type PageToken struct {
	offset int
}

func NewPageToken(offset int) *PageToken {
	return &PageToken{
		offset: NormalizeOffset(offset),
	}
}

// DecodePageToken attempts to parse a base64-encoded string into *PageToken.
// An empty string decodes to nil, which means the first page.
func DecodePageToken(b64String string) (*PageToken, error) {
	if len(b64String) == 0 {
		return nil, nil
	}

	offsetBytes, err := _encoder.DecodeString(b64String)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 encoded page token: %w", err)
	}

	offset, err := strconv.Atoi(string(offsetBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to decode page token offset value: %w", err)
	}

	if offset < 0 {
		return nil, fmt.Errorf("negative page token offset %d", offset)
	}

	return &PageToken{
		offset: offset,
	}, nil
}

// String - implements fmt.Stringer.
func (p *PageToken) String() string {
	if p.IsEmpty() {
		return ""
	}

	return _encoder.EncodeToString([]byte(strconv.Itoa(p.offset)))
}

// MarshalText lets the token be embedded in JSON payloads as a string.
func (p *PageToken) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// IsEmpty reports whether the token points at the first page.
func (p *PageToken) IsEmpty() bool {
	return p == nil || p.offset == 0
}

// GetOffset returns the numeric offset value.
func (p *PageToken) GetOffset() int {
	if p != nil {
		return p.offset
	}

	return 0
}

var _ fmt.Stringer = (*PageToken)(nil)
