package hl7

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"time"
)

const (
	// MLLPStartBlock is the MLLP start-of-message byte (VT / vertical tab).
	MLLPStartBlock = 0x0B

	// MLLPEndBlock is the MLLP end-of-message byte (FS / file separator).
	MLLPEndBlock = 0x1C

	// MLLPCarriageReturn is the trailing CR after the end block.
	MLLPCarriageReturn = 0x0D

	// mllpMaxAckSize caps how much we buffer while waiting for the ACK frame.
	mllpMaxAckSize = 1 << 16
)

// Sender delivers an encoded message to the downstream blood-bank system.
// Implementations make exactly one attempt per call; retry policy belongs
// to the caller.
type Sender interface {
	Send(ctx context.Context, message string) error
}

// MLLPSender sends messages over MLLP/TCP and waits for an application ACK.
// The whole exchange (dial, write, read ACK) runs under one deadline.
type MLLPSender struct {
	addr    string
	timeout time.Duration
	dialer  net.Dialer
}

// NewMLLPSender creates a sender for the given address. A non-positive
// timeout falls back to 5 seconds.
func NewMLLPSender(addr string, timeout time.Duration) *MLLPSender {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &MLLPSender{addr: addr, timeout: timeout}
}

// Send frames and writes the message, then blocks until the peer's ACK frame
// arrives or the deadline expires. A missing, unparseable, or negative ACK
// (anything other than AA/CA in MSA-1) is an error.
func (s *MLLPSender) Send(ctx context.Context, message string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	conn, err := s.dialer.DialContext(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("mllp: dial %s: %w", s.addr, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	if _, err := conn.Write(FrameMessage([]byte(message))); err != nil {
		return fmt.Errorf("mllp: write: %w", err)
	}

	ack, err := readFrame(conn)
	if err != nil {
		return fmt.Errorf("mllp: read ack: %w", err)
	}

	code := ackCode(ack)
	if code != "AA" && code != "CA" {
		return fmt.Errorf("mllp: negative ack %q", code)
	}
	return nil
}

// readFrame accumulates bytes from conn until one complete MLLP frame is
// present, then returns its payload.
func readFrame(conn net.Conn) ([]byte, error) {
	buf := make([]byte, 0, 1024)
	readBuf := make([]byte, 1024)

	for {
		n, err := conn.Read(readBuf)
		if n > 0 {
			buf = append(buf, readBuf[:n]...)
			if msg, _, found := UnframeMessage(buf); found {
				return msg, nil
			}
			if len(buf) > mllpMaxAckSize {
				return nil, fmt.Errorf("ack exceeds %d bytes without frame end", mllpMaxAckSize)
			}
		}
		if err != nil {
			if err == io.EOF {
				return nil, fmt.Errorf("connection closed before frame end")
			}
			return nil, err
		}
	}
}

// ackCode extracts MSA-1 from a decoded ACK payload.
func ackCode(ack []byte) string {
	msg := Decode(string(ack))
	if msg == nil {
		return ""
	}
	for _, seg := range msg.Segments {
		if seg.Tag == "MSA" {
			return seg.Field(1)
		}
	}
	return ""
}

// FrameMessage wraps raw bytes in MLLP framing:
//
//	<0x0B> + message + <0x1C><0x0D>
func FrameMessage(data []byte) []byte {
	frame := make([]byte, 0, len(data)+3)
	frame = append(frame, MLLPStartBlock)
	frame = append(frame, data...)
	frame = append(frame, MLLPEndBlock, MLLPCarriageReturn)
	return frame
}

// UnframeMessage extracts payload bytes from an MLLP frame. It looks for the
// first start block byte, then reads until end block + CR. It returns the
// extracted message, any remaining bytes after the frame, and whether a
// complete frame was found.
func UnframeMessage(data []byte) (message []byte, rest []byte, found bool) {
	startIdx := bytes.IndexByte(data, MLLPStartBlock)
	if startIdx == -1 {
		return nil, data, false
	}

	endSeq := []byte{MLLPEndBlock, MLLPCarriageReturn}
	endIdx := bytes.Index(data[startIdx+1:], endSeq)
	if endIdx == -1 {
		return nil, data, false
	}
	endIdx = startIdx + 1 + endIdx

	return data[startIdx+1 : endIdx], data[endIdx+2:], true
}
