package link

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/ziutek/telnet"
)

// Kinds of transport accepted by Open.
const (
	KindStdio  = "stdio"
	KindTelnet = "telnet"
	KindMQTT   = "mqtt"
)

// DialTimeout bounds connection setup for network transports.
const DialTimeout = 10 * time.Second

// Options selects and configures a transport.
type Options struct {
	// Kind is one of KindStdio, KindTelnet, KindMQTT
	Kind string
	// Address is host:port for telnet or a broker URL for mqtt
	Address string
	// Topic is the MQTT topic root; bytes are published on <topic>/tx and
	// read from <topic>/rx
	Topic string
}

// Open connects the transport described by opts.
func Open(opts Options) (io.ReadWriteCloser, error) {
	switch strings.ToLower(opts.Kind) {
	case KindStdio, "":
		return Stdio(), nil
	case KindTelnet:
		return DialTelnet(opts.Address)
	case KindMQTT:
		return DialMQTT(opts.Address, opts.Topic)
	}
	return nil, fmt.Errorf("unknown link %q", opts.Kind)
}

type stdio struct {
	io.Reader
	io.Writer
}

// Close leaves the process streams open.
func (stdio) Close() error { return nil }

// Stdio uses the process standard input and output as the serial line.
func Stdio() io.ReadWriteCloser {
	return stdio{Reader: os.Stdin, Writer: os.Stdout}
}

// DialTelnet connects to a telnet server, e.g. a serial device server or
// a cluster node, and uses the session as the serial line.
func DialTelnet(addr string) (io.ReadWriteCloser, error) {
	if addr == "" {
		return nil, fmt.Errorf("telnet link: address is required")
	}
	conn, err := telnet.DialTimeout("tcp", addr, DialTimeout)
	if err != nil {
		return nil, fmt.Errorf("telnet link: dial %s: %w", addr, err)
	}
	return conn, nil
}
