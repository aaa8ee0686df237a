// Package btline is the Bluetooth serial transport: a newline-delimited
// text protocol served over an RFCOMM tty. One peer at a time, plain text
// both ways, meant for a human with a serial terminal. It neither claims
// session slots nor receives broadcasts.
package btline

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lednode/lednode/internal/command"
	"github.com/lednode/lednode/internal/core"
	"github.com/lednode/lednode/internal/device"
	"github.com/lednode/lednode/internal/logging"
)

// origin label used for commands submitted by this transport.
const origin = "bluetooth"

const reopenDelay = 2 * time.Second

// Options wires the line transport's collaborators.
type Options struct {
	// DevicePath is the RFCOMM tty, e.g. /dev/rfcomm0. Empty disables the
	// transport.
	DevicePath string
	Loop       *core.Loop
	State      *device.State
}

// Line serves the text protocol on a serial device, reopening it whenever
// the peer disconnects.
type Line struct {
	opts   *Options
	logger *slog.Logger
}

// NewLine creates the line transport.
func NewLine(opts *Options) *Line {
	return &Line{
		opts:   opts,
		logger: logging.GetLogger("bluetooth"),
	}
}

// Run opens the device and serves it until ctx is cancelled. Open failures
// and peer disconnects are retried; RFCOMM ttys come and go with pairing.
func (l *Line) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		f, err := os.OpenFile(l.opts.DevicePath, os.O_RDWR, 0)
		if err != nil {
			l.logger.Debug("Serial device unavailable", "path", l.opts.DevicePath, "error", err)
		} else {
			l.logger.Info("Serial peer attached", "path", l.opts.DevicePath)

			// Closing the file unblocks the scanner when ctx ends.
			done := make(chan struct{})
			go func() {
				select {
				case <-ctx.Done():
					_ = f.Close()
				case <-done:
				}
			}()

			if err := l.Serve(ctx, f); err != nil && ctx.Err() == nil {
				l.logger.Warn("Serial session ended", "error", err)
			}
			close(done)
			_ = f.Close()
			l.logger.Info("Serial peer detached", "path", l.opts.DevicePath)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(reopenDelay):
		}
	}
}

// Serve runs the text protocol on rw until EOF or read error. Exported so
// it can be driven over in-memory pipes.
func (l *Line) Serve(ctx context.Context, rw io.ReadWriter) error {
	l.banner(rw)

	scanner := bufio.NewScanner(rw)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		kind := command.Parse([]byte(line)).Kind

		res, err := l.opts.Loop.Submit(ctx, origin, []byte(line))
		if err != nil {
			return err
		}

		switch kind {
		case command.KindQueryStatus:
			l.writeStatus(rw, l.opts.State.Snapshot())
		case command.KindListSessions:
			fmt.Fprintf(rw, "Active sessions: %d\r\n", len(res.Sessions))
			for _, d := range res.Sessions {
				fmt.Fprintf(rw, "  #%d slot=%d peer=%s uptime=%ds\r\n",
					d.SessionID, d.Slot, d.Peer, d.Uptime)
			}
		case command.KindUnrecognized:
			fmt.Fprintf(rw, "%s\r\n%s\r\n", res.Message, command.HelpText)
		default:
			fmt.Fprintf(rw, "%s\r\n", res.Message)
		}
	}
	return scanner.Err()
}

func (l *Line) banner(w io.Writer) {
	fmt.Fprintf(w, "%s ready\r\n", l.opts.State.DeviceName())
	fmt.Fprintf(w, "%s\r\n", command.HelpText)
}

func (l *Line) writeStatus(w io.Writer, snap device.Snapshot) {
	led := "OFF"
	if snap.LED {
		led = "ON"
	}
	fmt.Fprintf(w, "LED: %s\r\n", led)
	fmt.Fprintf(w, "IP: %s\r\n", snap.IP)
	fmt.Fprintf(w, "SSID: %s\r\n", snap.SSID)
	fmt.Fprintf(w, "RSSI: %d\r\n", snap.RSSI)
	fmt.Fprintf(w, "Uptime: %ds\r\n", snap.Uptime)
	fmt.Fprintf(w, "Heap: %d\r\n", snap.Heap)
	fmt.Fprintf(w, "Clients: %d\r\n", snap.WSClients)
}
