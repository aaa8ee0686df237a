package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// CreateProbeCmd creates the probe command, a small HTTP client for
// exercising a running node from the shell.
func CreateProbeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:       "probe [status|on|off|toggle]",
		Short:     "Send a command to a running node",
		Long:      `Sends a single command to a running node over its HTTP API and prints the response.`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"status", "on", "off", "toggle"},
		Run: func(_ *cobra.Command, args []string) {
			client := &http.Client{Timeout: 5 * time.Second}
			base := "http://" + addr

			var (
				resp *http.Response
				err  error
			)
			switch args[0] {
			case "status":
				resp, err = client.Get(base + "/status")
			case "on":
				resp, err = client.Get(base + "/led/on")
			case "off":
				resp, err = client.Get(base + "/led/off")
			case "toggle":
				// POST /led only accepts explicit state assignments, so
				// toggle reads the current state first.
				var snap struct {
					LED bool `json:"led"`
				}
				if err = fetchJSON(client, base+"/status", &snap); err != nil {
					break
				}
				body, _ := json.Marshal(map[string]bool{"state": !snap.LED})
				resp, err = client.Post(base+"/led", "application/json", bytes.NewReader(body))
			default:
				fmt.Fprintf(os.Stderr, "unknown command %q\n", args[0])
				os.Exit(1)
			}

			if err != nil {
				fmt.Fprintf(os.Stderr, "request failed: %v\n", err)
				os.Exit(1)
			}
			defer func() { _ = resp.Body.Close() }()

			payload, _ := io.ReadAll(resp.Body)
			fmt.Println(string(bytes.TrimSpace(payload)))

			if resp.StatusCode >= 400 {
				os.Exit(1)
			}
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "localhost:8090", "Node address (host:port)")

	return cmd
}

func fetchJSON(client *http.Client, url string, out any) error {
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	return json.NewDecoder(resp.Body).Decode(out)
}
