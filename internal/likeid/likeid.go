// Package likeid packs like-action parameters into the 64-byte inline
// callback budget. The common case, where unikey and curkey are mood URLs,
// packs to exactly 48 bytes: 2 for (appid, typeid), 12 for the 24-hex key,
// and 17 for each mood tuple (uin in 5 bytes, key in 12). Other shapes fall
// back to a zlib-compressed string form. Either way the payload is base64
// with a custom alphabet, so 48 raw bytes land on exactly 64 characters.
package likeid

import (
	"bytes"
	"compress/zlib"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
)

// LikeID carries everything the like/unlike endpoint needs.
type LikeID struct {
	AppID  int
	TypeID int
	Key    string
	Unikey string
	Curkey string
}

const (
	maxEncoded  = 64
	compactSize = 48

	maxAppID  = 1 << 12
	maxTypeID = 1 << 4
	maxUin    = 1 << 40
)

// The alphabet deviates from standard base64 so payloads survive callback
// routing untouched. Changing it breaks records already in the wild.
var encoding = base64.NewEncoding(
	"0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ-_",
).WithPadding(base64.NoPadding)

var (
	ErrTooLong   = errors.New("likeid: encoded payload exceeds 64 bytes")
	ErrMalformed = errors.New("likeid: malformed payload")
)

var moodURL = regexp.MustCompile(`^https?://user\.qzone\.qq\.com/(\d+)/mood/([0-9a-f]{24})$`)

// Encode packs id into an inline callback payload.
func Encode(id LikeID) (string, error) {
	if raw, ok := packCompact(id); ok {
		return encoding.EncodeToString(raw), nil
	}
	raw, err := packCompressed(id)
	if err != nil {
		return "", err
	}
	out := encoding.EncodeToString(raw)
	if len(out) > maxEncoded {
		return "", ErrTooLong
	}
	return out, nil
}

// Decode is the exact inverse of Encode.
func Decode(payload string) (LikeID, error) {
	raw, err := encoding.DecodeString(payload)
	if err != nil {
		return LikeID{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(raw) == compactSize {
		return unpackCompact(raw)
	}
	return unpackCompressed(raw)
}

func packCompact(id LikeID) ([]byte, bool) {
	if id.AppID < 0 || id.AppID >= maxAppID || id.TypeID < 0 || id.TypeID >= maxTypeID {
		return nil, false
	}
	key, err := hex.DecodeString(id.Key)
	if err != nil || len(key) != 12 {
		return nil, false
	}
	uni, ok := packMood(id.Unikey)
	if !ok {
		return nil, false
	}
	cur, ok := packMood(id.Curkey)
	if !ok {
		return nil, false
	}

	raw := make([]byte, 0, compactSize)
	raw = append(raw, byte(id.AppID>>4), byte(id.AppID&0xf)<<4|byte(id.TypeID))
	raw = append(raw, key...)
	raw = append(raw, uni...)
	raw = append(raw, cur...)
	return raw, true
}

// packMood encodes a mood URL as uin (5 bytes, big-endian) + key (12 bytes).
func packMood(rawURL string) ([]byte, bool) {
	m := moodURL.FindStringSubmatch(rawURL)
	if m == nil {
		return nil, false
	}
	uin, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil || uin <= 0 || uin >= maxUin {
		return nil, false
	}
	key, err := hex.DecodeString(m[2])
	if err != nil || len(key) != 12 {
		return nil, false
	}

	out := make([]byte, 5, 17)
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(uin))
	copy(out, buf[3:])
	return append(out, key...), true
}

func unpackCompact(raw []byte) (LikeID, error) {
	id := LikeID{
		AppID:  int(raw[0])<<4 | int(raw[1])>>4,
		TypeID: int(raw[1]) & 0xf,
		Key:    hex.EncodeToString(raw[2:14]),
	}
	id.Unikey = unpackMood(raw[14:31])
	id.Curkey = unpackMood(raw[31:48])
	return id, nil
}

func unpackMood(raw []byte) string {
	var buf [8]byte
	copy(buf[3:], raw[:5])
	uin := binary.BigEndian.Uint64(buf[:])
	return fmt.Sprintf("http://user.qzone.qq.com/%d/mood/%s", uin, hex.EncodeToString(raw[5:17]))
}

// packCompressed is the fallback for identifiers that do not fit the compact
// layout: length-prefixed strings under zlib. A compressed size of exactly 48
// bytes would collide with the compact layout, so it gains one trailing byte.
func packCompressed(id LikeID) ([]byte, error) {
	var plain bytes.Buffer
	plain.WriteByte(byte(id.AppID >> 8))
	plain.WriteByte(byte(id.AppID))
	plain.WriteByte(byte(id.TypeID))
	for _, s := range []string{id.Key, id.Unikey, id.Curkey} {
		if len(s) > 0xff {
			return nil, ErrTooLong
		}
		plain.WriteByte(byte(len(s)))
		plain.WriteString(s)
	}

	var out bytes.Buffer
	zw, err := zlib.NewWriterLevel(&out, zlib.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(plain.Bytes()); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	raw := out.Bytes()
	if len(raw) == compactSize {
		raw = append(raw, 0)
	}
	return raw, nil
}

func unpackCompressed(raw []byte) (LikeID, error) {
	zr, err := zlib.NewReader(bytes.NewReader(raw))
	if err != nil {
		return LikeID{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	defer zr.Close()
	plain, err := io.ReadAll(zr)
	if err != nil {
		return LikeID{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(plain) < 3 {
		return LikeID{}, ErrMalformed
	}

	id := LikeID{
		AppID:  int(plain[0])<<8 | int(plain[1]),
		TypeID: int(plain[2]),
	}
	rest := plain[3:]
	fields := []*string{&id.Key, &id.Unikey, &id.Curkey}
	for _, field := range fields {
		if len(rest) < 1 {
			return LikeID{}, ErrMalformed
		}
		n := int(rest[0])
		rest = rest[1:]
		if len(rest) < n {
			return LikeID{}, ErrMalformed
		}
		*field = string(rest[:n])
		rest = rest[n:]
	}
	return id, nil
}
