package btline

import (
	"bufio"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/lednode/lednode/internal/command"
	"github.com/lednode/lednode/internal/core"
	"github.com/lednode/lednode/internal/device"
)

type duplex struct {
	io.Reader
	io.Writer
}

// startSession wires a Line to an in-memory peer and returns the peer's
// ends: write commands to in, read replies from out.
func startSession(t *testing.T) (in io.WriteCloser, out *bufio.Reader) {
	t.Helper()

	state := device.NewState(device.Options{DeviceName: "testnode"})
	dispatcher := command.NewDispatcher(command.DispatcherOptions{State: state})
	loop := core.NewLoop(core.Options{Dispatcher: dispatcher})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go loop.Run(ctx)

	line := NewLine(&Options{Loop: loop, State: state})

	commandR, commandW := io.Pipe()
	replyR, replyW := io.Pipe()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = line.Serve(ctx, duplex{Reader: commandR, Writer: replyW})
		_ = replyW.Close()
	}()
	t.Cleanup(func() {
		_ = commandW.Close()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Error("Serve did not return after peer closed")
		}
	})

	return commandW, bufio.NewReader(replyR)
}

func readLine(t *testing.T, r *bufio.Reader) string {
	t.Helper()
	line, err := r.ReadString('\n')
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return strings.TrimRight(line, "\r\n")
}

func TestServeWelcomeBanner(t *testing.T) {
	_, out := startSession(t)

	if got := readLine(t, out); got != "testnode ready" {
		t.Fatalf("unexpected banner: %q", got)
	}
	if got := readLine(t, out); got != command.HelpText {
		t.Fatalf("expected command list, got %q", got)
	}
}

func TestServeCommands(t *testing.T) {
	in, out := startSession(t)
	readLine(t, out) // banner
	readLine(t, out) // command list

	if _, err := io.WriteString(in, "led on\n"); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := readLine(t, out); got != "LED ON" {
		t.Fatalf("expected LED ON, got %q", got)
	}

	if _, err := io.WriteString(in, "help\n"); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := readLine(t, out); got != command.HelpText {
		t.Fatalf("expected help text, got %q", got)
	}

	if _, err := io.WriteString(in, "blink\n"); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := readLine(t, out); got != "Unknown command" {
		t.Fatalf("expected Unknown command, got %q", got)
	}
	// Unknown commands are followed by the command list.
	if got := readLine(t, out); got != command.HelpText {
		t.Fatalf("expected command list after unknown command, got %q", got)
	}
}

func TestServeStatus(t *testing.T) {
	in, out := startSession(t)
	readLine(t, out)
	readLine(t, out)

	if _, err := io.WriteString(in, "led on\n"); err != nil {
		t.Fatalf("write: %v", err)
	}
	readLine(t, out)

	if _, err := io.WriteString(in, "status\n"); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := readLine(t, out); got != "LED: ON" {
		t.Fatalf("expected LED: ON, got %q", got)
	}

	// The rest of the status block, in order.
	for _, prefix := range []string{"IP:", "SSID:", "RSSI:", "Uptime:", "Heap:", "Clients:"} {
		got := readLine(t, out)
		if !strings.HasPrefix(got, prefix) {
			t.Fatalf("expected %s line, got %q", prefix, got)
		}
	}
}

func TestServeSkipsBlankLines(t *testing.T) {
	in, out := startSession(t)
	readLine(t, out)
	readLine(t, out)

	if _, err := io.WriteString(in, "\n\n  \nled off\n"); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := readLine(t, out); got != "LED OFF" {
		t.Fatalf("expected LED OFF, got %q", got)
	}
}
