package redisstore

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"time"

	authbackend "github.com/pw2712gz/auth-backend"
)

// Record layouts are versioned so the format can evolve without
// flushing the keyspace. All integers are big-endian; strings are
// uint16-length-prefixed; instants are unix milliseconds.
const (
	userRecordVersionV1    = 1
	refreshRecordVersionV1 = 1
	resetRecordVersionV1   = 1
)

var errBadRecord = errors.New("unreadable record")

func writeString(buf *bytes.Buffer, s string) error {
	if len(s) > 65535 {
		return errors.New("record field too long")
	}
	if err := binary.Write(buf, binary.BigEndian, uint16(len(s))); err != nil {
		return err
	}
	buf.WriteString(s)
	return nil
}

func readString(r *bytes.Reader) (string, error) {
	var n uint16
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return "", err
	}
	raw := make([]byte, n)
	if _, err := io.ReadFull(r, raw); err != nil {
		return "", err
	}
	return string(raw), nil
}

func writeTime(buf *bytes.Buffer, t time.Time) error {
	return binary.Write(buf, binary.BigEndian, t.UnixMilli())
}

func readTime(r *bytes.Reader) (time.Time, error) {
	var ms int64
	if err := binary.Read(r, binary.BigEndian, &ms); err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms), nil
}

func encodeUser(u *authbackend.User) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(userRecordVersionV1)
	for _, field := range []string{u.ID, u.FirstName, u.LastName, u.Email, u.PasswordHash} {
		if err := writeString(&buf, field); err != nil {
			return nil, err
		}
	}
	if u.Enabled {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
	if err := writeTime(&buf, u.CreatedAt); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func decodeUser(data []byte) (*authbackend.User, error) {
	r := bytes.NewReader(data)

	version, err := r.ReadByte()
	if err != nil || version != userRecordVersionV1 {
		return nil, errBadRecord
	}

	u := &authbackend.User{}
	for _, field := range []*string{&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash} {
		if *field, err = readString(r); err != nil {
			return nil, errBadRecord
		}
	}

	enabled, err := r.ReadByte()
	if err != nil {
		return nil, errBadRecord
	}
	u.Enabled = enabled == 1

	if u.CreatedAt, err = readTime(r); err != nil {
		return nil, errBadRecord
	}

	return u, nil
}

func encodeRefreshToken(t *authbackend.RefreshToken) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(refreshRecordVersionV1)
	if err := writeString(&buf, t.UserID); err != nil {
		return nil, err
	}
	if err := writeTime(&buf, t.CreatedAt); err != nil {
		return nil, err
	}
	if err := writeTime(&buf, t.ExpiresAt); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func decodeRefreshToken(value string, data []byte) (*authbackend.RefreshToken, error) {
	r := bytes.NewReader(data)

	version, err := r.ReadByte()
	if err != nil || version != refreshRecordVersionV1 {
		return nil, errBadRecord
	}

	t := &authbackend.RefreshToken{Token: value}
	if t.UserID, err = readString(r); err != nil {
		return nil, errBadRecord
	}
	if t.CreatedAt, err = readTime(r); err != nil {
		return nil, errBadRecord
	}
	if t.ExpiresAt, err = readTime(r); err != nil {
		return nil, errBadRecord
	}

	return t, nil
}

func encodeResetToken(t *authbackend.PasswordResetToken) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(resetRecordVersionV1)
	if err := writeString(&buf, t.UserID); err != nil {
		return nil, err
	}
	if err := writeTime(&buf, t.CreatedAt); err != nil {
		return nil, err
	}
	if err := writeTime(&buf, t.ExpiresAt); err != nil {
		return nil, err
	}
	if t.Used {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}

	return buf.Bytes(), nil
}

func decodeResetToken(value string, data []byte) (*authbackend.PasswordResetToken, error) {
	r := bytes.NewReader(data)

	version, err := r.ReadByte()
	if err != nil || version != resetRecordVersionV1 {
		return nil, errBadRecord
	}

	t := &authbackend.PasswordResetToken{Token: value}
	if t.UserID, err = readString(r); err != nil {
		return nil, errBadRecord
	}
	if t.CreatedAt, err = readTime(r); err != nil {
		return nil, errBadRecord
	}
	if t.ExpiresAt, err = readTime(r); err != nil {
		return nil, errBadRecord
	}

	used, err := r.ReadByte()
	if err != nil {
		return nil, errBadRecord
	}
	t.Used = used == 1

	return t, nil
}
