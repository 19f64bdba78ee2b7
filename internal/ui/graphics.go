package ui

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/qeesung/image2ascii/convert"
)

const (
	// Terminal cells are about twice as tall as wide.
	photoWidth   = 40
	photoHeight  = 20
	photoTimeout = 8 * time.Second
	maxPhotoSize = 8 << 20
)

// TerminalCapabilities reports what the terminal can display.
type TerminalCapabilities struct {
	Color  bool
	Photos bool
}

// DetectTerminalCapabilities inspects the environment. NO_COLOR disables
// colored art; RF_NO_PHOTOS disables photo downloads.
func DetectTerminalCapabilities() TerminalCapabilities {
	term := os.Getenv("TERM")
	return TerminalCapabilities{
		Color:  os.Getenv("NO_COLOR") == "" && term != "dumb",
		Photos: os.Getenv("RF_NO_PHOTOS") == "" && term != "dumb",
	}
}

// photoLoadedMsg carries rendered art for a business photo.
type photoLoadedMsg struct {
	id  string
	art string
	err error
}

// loadPhotoCmd downloads url and renders it as ASCII art.
func loadPhotoCmd(client *http.Client, caps TerminalCapabilities, id, url string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), photoTimeout)
		defer cancel()

		img, err := fetchImage(ctx, client, url)
		if err != nil {
			return photoLoadedMsg{id: id, err: err}
		}
		return photoLoadedMsg{id: id, art: renderPhoto(img, caps, photoWidth, photoHeight)}
	}
}

func fetchImage(ctx context.Context, client *http.Client, url string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create photo request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("photo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("photo request failed: status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "image/") {
		return nil, fmt.Errorf("photo has unexpected content type %q", ct)
	}

	img, _, err := image.Decode(io.LimitReader(resp.Body, maxPhotoSize))
	if err != nil {
		return nil, fmt.Errorf("failed to decode photo: %w", err)
	}
	return img, nil
}

// renderPhoto converts an image to ASCII art sized for the detail panel.
func renderPhoto(img image.Image, caps TerminalCapabilities, targetWidth, targetHeight int) string {
	converter := convert.NewImageConverter()

	opts := convert.DefaultOptions
	opts.FixedWidth = targetWidth
	opts.FixedHeight = targetHeight
	opts.FitScreen = false
	opts.Colored = caps.Color

	return converter.Image2ASCIIString(img, &opts)
}
