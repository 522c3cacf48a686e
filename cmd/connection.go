// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Fuelcore

package cmd

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"go.bug.st/serial"
	"golang.org/x/term"

	"github.com/fuelcore/mkr5ctl/pkg/mkr5"
)

// Connection provides a common interface for reading/writing bus bytes
// from serial or WebSocket
type Connection interface {
	io.Reader
	io.Writer
	io.Closer
}

// serialReadTimeout is the hardware inter-byte timeout. The receive
// assembler depends on Read returning (0, nil) after this interval when
// the line is quiet.
const serialReadTimeout = 20 * time.Millisecond

// SerialConnection wraps a serial port
type SerialConnection struct {
	port serial.Port
}

func (s *SerialConnection) Read(p []byte) (int, error) {
	return s.port.Read(p)
}

func (s *SerialConnection) Write(p []byte) (int, error) {
	return s.port.Write(p)
}

func (s *SerialConnection) Close() error {
	return s.port.Close()
}

// ResetInputBuffer drops pending input so a stale reply is never read
// as the answer to the next command.
func (s *SerialConnection) ResetInputBuffer() error {
	return s.port.ResetInputBuffer()
}

// ErrConnectionClosed is returned when reading from a closed WebSocket connection
var ErrConnectionClosed = fmt.Errorf("websocket connection closed")

// WebSocketConnection wraps a WebSocket bridge for byte-level reading.
// A single goroutine owns ReadMessage; messages flow through a channel
// so Read can wait with a bounded timeout without ever putting a read
// deadline on the connection (a deadline error would poison all later
// reads on a gorilla/websocket conn).
type WebSocketConnection struct {
	conn      *websocket.Conn
	msgs      chan []byte
	buf       []byte
	bufOffset int
}

func newWebSocketConnection(conn *websocket.Conn) *WebSocketConnection {
	w := &WebSocketConnection{
		conn: conn,
		msgs: make(chan []byte, 32),
	}
	go w.readLoop()
	return w
}

// readLoop is the sole reader of the underlying connection. It exits,
// closing the message channel, on the first read error.
func (w *WebSocketConnection) readLoop() {
	defer close(w.msgs)
	for {
		messageType, data, err := w.conn.ReadMessage()
		if err != nil {
			return
		}
		// The bridge relays raw bus bytes as binary messages only
		if messageType != websocket.BinaryMessage {
			continue
		}
		w.msgs <- data
	}
}

func (w *WebSocketConnection) Read(p []byte) (int, error) {
	// Return buffered data first
	if w.bufOffset < len(w.buf) {
		n := copy(p, w.buf[w.bufOffset:])
		w.bufOffset += n
		return n, nil
	}

	// Bounded wait so the assembler's silence rules keep working over a
	// blocking message transport. A quiet window reads as (0, nil), like
	// a serial port with a hardware timeout.
	select {
	case data, ok := <-w.msgs:
		if !ok {
			return 0, ErrConnectionClosed
		}
		w.buf = data
		w.bufOffset = 0
		n := copy(p, w.buf)
		w.bufOffset = n
		return n, nil
	case <-time.After(serialReadTimeout):
		return 0, nil
	}
}

func (w *WebSocketConnection) Write(p []byte) (int, error) {
	if err := w.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *WebSocketConnection) Close() error {
	return w.conn.Close()
}

// OpenSerialConnection opens the serial port with the MKR5 line
// configuration: 8 data bits, 1 stop bit, odd parity.
func OpenSerialConnection(portName string, baudRate int) (Connection, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.OddParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %v", portName, err)
	}
	if err := port.SetReadTimeout(serialReadTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to set read timeout on %s: %v", portName, err)
	}

	return &SerialConnection{port: port}, nil
}

// OpenWebSocketConnection opens a bridge connection with HTTP Basic auth
func OpenWebSocketConnection(wsURL, username, password string, skipSSLVerify bool) (Connection, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %v", err)
	}

	switch u.Scheme {
	case "ws", "wss":
		// OK
	default:
		return nil, fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: skipSSLVerify,
		}
	}

	headers := http.Header{}
	if username != "" && password != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
		headers.Set("Authorization", "Basic "+credentials)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	conn, resp, err := dialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("WebSocket connection failed (HTTP %d): %v", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("WebSocket connection failed: %v", err)
	}

	return newWebSocketConnection(conn), nil
}

// GetPassword retrieves the bridge password from the environment or
// prompts for it
func GetPassword() (string, error) {
	if pw := os.Getenv("MKR5_PASSWORD"); pw != "" {
		return pw, nil
	}

	fmt.Fprint(os.Stderr, "Password: ")

	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		// Fallback to regular input if terminal functions fail
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read password: %v", err)
		}
		fmt.Fprintln(os.Stderr)
		return strings.TrimSpace(password), nil
	}

	fmt.Fprintln(os.Stderr)
	return string(passwordBytes), nil
}

// OpenConnection opens either a serial or WebSocket connection based on flags
func OpenConnection() (Connection, string, error) {
	if wsURL != "" {
		password := ""
		if wsUsername != "" {
			var err error
			password, err = GetPassword()
			if err != nil {
				return nil, "", err
			}
		}

		conn, err := OpenWebSocketConnection(wsURL, wsUsername, password, wsNoSSLVerify)
		if err != nil {
			return nil, "", err
		}

		return conn, fmt.Sprintf("WebSocket: %s", wsURL), nil
	}

	if portName != "" {
		conn, err := OpenSerialConnection(portName, baudRate)
		if err != nil {
			return nil, "", err
		}

		return conn, fmt.Sprintf("Serial: %s @ %d baud", portName, baudRate), nil
	}

	return nil, "", fmt.Errorf("either --port or --url must be specified")
}

// openSession opens a connection and wraps it in a protocol session with
// the logging and capture sinks from the global flags. The returned
// cleanup func closes everything.
func openSession() (*mkr5.Session, string, func(), error) {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return nil, "", nil, err
	}

	log := newLogger()
	opts := []mkr5.Option{mkr5.WithLogger(log)}

	var capFile *os.File
	if captureFile != "" {
		capFile, err = os.OpenFile(captureFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			conn.Close()
			return nil, "", nil, fmt.Errorf("failed to open capture file: %v", err)
		}
		opts = append(opts, mkr5.WithRecorder(mkr5.NewCaptureWriter(capFile)))
	}

	cleanup := func() {
		conn.Close()
		if capFile != nil {
			capFile.Close()
		}
		_ = log.Sync()
	}
	return mkr5.NewSession(conn, opts...), connInfo, cleanup, nil
}
