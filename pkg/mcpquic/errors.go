package mcpquic

import (
	"errors"

	"github.com/quic-go/quic-go"
)

const (
	streamErrorProtocol quic.StreamErrorCode = 0x02

	connErrorNone     quic.ApplicationErrorCode = 0x00
	connErrorALPN     quic.ApplicationErrorCode = 0x01
	connErrorProtocol quic.ApplicationErrorCode = 0x03
)

var (
	ErrBadPreamble  = errors.New("mcpquic: bad stream preamble")
	ErrALPN         = errors.New("mcpquic: server did not select " + ALPN)
	ErrNotConnected = errors.New("mcpquic: client not connected")
)
