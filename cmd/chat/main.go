package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/bytetube/bytetube-chat/internal/chatclient"
	"github.com/bytetube/bytetube-chat/internal/config"
	"github.com/bytetube/bytetube-chat/internal/tui"
)

const releaseTimeout = 2 * time.Second

func main() {
	cfg := config.LoadClient()

	roomID := flag.String("room", "", "room to join (required)")
	user := flag.String("user", cfg.User, "display name")
	baseURL := flag.String("url", cfg.WSBaseURL, "chat websocket base URL")
	flag.Parse()

	if strings.TrimSpace(*roomID) == "" {
		fmt.Fprintln(os.Stderr, "usage: chat -room <id> [-user <name>] [-url <base>]")
		os.Exit(2)
	}

	bridge := tui.NewBridge()
	opts := append(bridge.Options(),
		chatclient.WithDialer(chatclient.WebsocketDialer(cfg.HandshakeTimeout)),
		// the alt screen owns the terminal
		chatclient.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	rc := chatclient.Open(context.Background(), *baseURL, *roomID, opts...)

	p := tea.NewProgram(tui.New(*roomID, rc, bridge, *user), tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := p.Run()

	rc.Close()
	bridge.Stop()
	select {
	case <-rc.Done():
	case <-time.After(releaseTimeout):
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "chat: %v\n", err)
		os.Exit(1)
	}
}
