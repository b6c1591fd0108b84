package loadable

import (
	"encoding/base64"
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Transfer field numbers, written in this order. The row id and the
// last viewed/loaded markers are not part of the transfer form.
const (
	fieldSiteID protowire.Number = iota + 1
	fieldMode
	fieldBoardCode
	fieldNo
	fieldTitle
	fieldListViewIndex
	fieldListViewTop
)

// MarshalBinary encodes the loadable for handing it to another process or screen.
func (l *Loadable) MarshalBinary() ([]byte, error) {
	b := make([]byte, 0, 32+len(l.BoardCode)+len(l.Title))
	b = appendInt(b, fieldSiteID, l.SiteID)
	b = appendInt(b, fieldMode, int(l.Mode))
	b = appendString(b, fieldBoardCode, l.BoardCode)
	b = appendInt(b, fieldNo, l.No)
	b = appendString(b, fieldTitle, l.Title)
	b = appendInt(b, fieldListViewIndex, l.ListViewIndex)
	b = appendInt(b, fieldListViewTop, l.ListViewTop)
	return b, nil
}

// UnmarshalBinary replaces l with the loadable encoded in data. Fields not
// part of the transfer form are reset to their empty values.
func (l *Loadable) UnmarshalBinary(data []byte) error {
	out := Empty()
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return fmt.Errorf("decode loadable tag: %w", protowire.ParseError(n))
		}
		data = data[n:]

		switch num {
		case fieldSiteID, fieldMode, fieldNo, fieldListViewIndex, fieldListViewTop:
			if typ != protowire.VarintType {
				return fmt.Errorf("decode loadable field %d: wire type %d, want varint", num, typ)
			}
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return fmt.Errorf("decode loadable field %d: %w", num, protowire.ParseError(n))
			}
			data = data[n:]
			setInt(out, num, int(protowire.DecodeZigZag(v)))

		case fieldBoardCode, fieldTitle:
			if typ != protowire.BytesType {
				return fmt.Errorf("decode loadable field %d: wire type %d, want bytes", num, typ)
			}
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return fmt.Errorf("decode loadable field %d: %w", num, protowire.ParseError(n))
			}
			data = data[n:]
			if num == fieldBoardCode {
				out.BoardCode = v
			} else {
				out.Title = v
			}

		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return fmt.Errorf("skip loadable field %d: %w", num, protowire.ParseError(n))
			}
			data = data[n:]
		}
	}

	if !out.Mode.Known() {
		return fmt.Errorf("decode loadable: %w", errUnknownMode(out.Mode))
	}
	*l = *out
	return nil
}

// Decode returns the loadable encoded in data
func Decode(data []byte) (*Loadable, error) {
	l := Empty()
	if err := l.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return l, nil
}

// Token returns the transfer form as URL-safe text, for passing a thread
// between processes on the command line.
func (l *Loadable) Token() (string, error) {
	data, err := l.MarshalBinary()
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

// ParseToken decodes a Token. Tokens for invalid loadables are rejected.
func ParseToken(token string) (*Loadable, error) {
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("bad loadable token: %w", err)
	}
	l, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("bad loadable token: %w", err)
	}
	if !l.Key().IsValid() {
		return nil, fmt.Errorf("bad loadable token: %w", ErrInvalidToken)
	}
	return l, nil
}

// ErrInvalidToken is returned for tokens that decode to no content
var ErrInvalidToken = errors.New("token names no catalog or thread")

func errUnknownMode(m Mode) error {
	return errors.New("unknown mode " + m.String())
}

func appendInt(b []byte, num protowire.Number, v int) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, protowire.EncodeZigZag(int64(v)))
}

func appendString(b []byte, num protowire.Number, v string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

func setInt(l *Loadable, num protowire.Number, v int) {
	switch num {
	case fieldSiteID:
		l.SiteID = v
	case fieldMode:
		l.Mode = Mode(v)
	case fieldNo:
		l.No = v
	case fieldListViewIndex:
		l.ListViewIndex = v
	case fieldListViewTop:
		l.ListViewTop = v
	}
}
