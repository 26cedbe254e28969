// Package protocol implements the binary wire format spoken between the
// token server and its clients: a little-endian int32 opcode followed by zero
// or more length-prefixed UTF-8 strings. String lengths are unsigned varints,
// so the framing is symmetric in both directions and self-describing.
package protocol

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// Opcode identifies a request or response unit on the wire.
type Opcode int32

// Wire opcodes.
const (
	OpAccepted      Opcode = 8000
	OpDenied        Opcode = 10000
	OpRegister      Opcode = 12000
	OpLogin         Opcode = 14000
	OpRegisterToken Opcode = 15000
	OpRequestCard   Opcode = 16000
)

// String returns a human-readable opcode name for logging.
func (o Opcode) String() string {
	switch o {
	case OpAccepted:
		return "ACCEPTED"
	case OpDenied:
		return "DENIED"
	case OpRegister:
		return "REGISTER"
	case OpLogin:
		return "LOGIN"
	case OpRegisterToken:
		return "REGISTER_TOKEN"
	case OpRequestCard:
		return "REQUEST_CARD"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int32(o))
	}
}

// Response messages sent to clients. Clients match on these strings (the
// welcome message by prefix), so they are part of the protocol.
const (
	MsgLoginSuccessful   = "Welcome"
	MsgWelcomeBack       = "Welcome back, %s!"
	MsgRegisterOK        = "Registration successful!"
	MsgUsernameExists    = "Username already exists!"
	MsgIncorrectInput    = "Username or password was incorrect."
	MsgInvalidCardID     = "The ID of the card is not valid."
	MsgTokenCreateFailed = "Could not create token."
	MsgIDNotFound        = "There's no ID associated to this token."
	MsgAccessDenied      = "Your access level is not high enough."
)

// MaxStringLen caps the accepted string payload size. Larger length prefixes
// are rejected instead of allocating.
const MaxStringLen = 65536

// ErrStringTooLong is returned when an incoming length prefix exceeds
// MaxStringLen.
var ErrStringTooLong = fmt.Errorf("protocol: string exceeds %d bytes", MaxStringLen)

// Reader decodes protocol units from a stream. It buffers the underlying
// reader; do not read from the stream directly once a Reader wraps it.
type Reader struct {
	r *bufio.Reader
}

// NewReader wraps the stream in a protocol decoder.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// ReadOpcode reads one little-endian int32 opcode.
func (r *Reader) ReadOpcode() (Opcode, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r.r, buf[:]); err != nil {
		return 0, err
	}
	return Opcode(int32(binary.LittleEndian.Uint32(buf[:]))), nil
}

// ReadInt32 reads one little-endian int32 value.
func (r *Reader) ReadInt32() (int32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r.r, buf[:]); err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(buf[:])), nil
}

// ReadString reads one varint-length-prefixed UTF-8 string.
func (r *Reader) ReadString() (string, error) {
	length, err := binary.ReadUvarint(r.r)
	if err != nil {
		return "", err
	}
	if length > MaxStringLen {
		return "", ErrStringTooLong
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r.r, buf); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return "", err
	}
	return string(buf), nil
}

// Writer encodes protocol units onto a stream. Writes go straight to the
// underlying writer; there is no buffering to flush.
type Writer struct {
	w io.Writer
}

// NewWriter wraps the stream in a protocol encoder.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteOpcode writes one little-endian int32 opcode.
func (w *Writer) WriteOpcode(op Opcode) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(int32(op)))
	_, err := w.w.Write(buf[:])
	return err
}

// WriteInt32 writes one little-endian int32 value.
func (w *Writer) WriteInt32(v int32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(v))
	_, err := w.w.Write(buf[:])
	return err
}

// WriteString writes one varint-length-prefixed UTF-8 string.
func (w *Writer) WriteString(s string) error {
	if len(s) > MaxStringLen {
		return ErrStringTooLong
	}
	buf := binary.AppendUvarint(nil, uint64(len(s)))
	buf = append(buf, s...)
	_, err := w.w.Write(buf)
	return err
}
