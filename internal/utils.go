package internal

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

var bvidPattern = regexp.MustCompile(`^BV[0-9A-Za-z]{10}$`)

// IsValidBVID checks if a string looks like a valid video ID
func IsValidBVID(id string) bool {
	return bvidPattern.MatchString(id)
}

// ParseArg normalizes video IDs and video page URLs to a bare BVID
func ParseArg(arg string) (string, error) {
	arg = strings.TrimSpace(arg)

	if IsValidBVID(arg) {
		return arg, nil
	}

	if strings.HasPrefix(arg, "https://") || strings.HasPrefix(arg, "http://") {
		u, err := url.Parse(arg)
		if err != nil {
			return "", fmt.Errorf("parsing URL: %w", err)
		}
		if !strings.HasSuffix(u.Host, "bilibili.com") {
			return "", fmt.Errorf("not a bilibili URL: %s", arg)
		}
		for _, part := range strings.Split(u.Path, "/") {
			if IsValidBVID(part) {
				return part, nil
			}
		}
		return "", fmt.Errorf("could not extract video ID from URL: %s", arg)
	}

	return "", fmt.Errorf("not a video ID or URL: %s", arg)
}

// ParseCookieString splits a browser-style cookie header ("a=1; b=2") into
// a name/value map.
func ParseCookieString(raw string) map[string]string {
	cookies := make(map[string]string)
	for _, pair := range strings.Split(raw, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, value, found := strings.Cut(pair, "=")
		if !found {
			continue
		}
		cookies[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}
	return cookies
}

// getTerminalWidth gets terminal width with fallback
func getTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 80
	}

	if width > 10 {
		return width - 4
	}

	return width
}

// RenderMarkdown renders markdown content with glamour
func RenderMarkdown(content string) (string, error) {
	width := getTerminalWidth()
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
		glamour.WithColorProfile(termenv.EnvColorProfile()),
	)
	if err != nil {
		return "", fmt.Errorf("creating terminal renderer: %w", err)
	}

	renderedContent, err := r.Render(content)
	if err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}

	return renderedContent, nil
}

// FileExists checks if a file exists
func FileExists(filename string) bool {
	_, err := os.Stat(filename)
	return !os.IsNotExist(err)
}

// EnsureDirs creates directories if needed
func EnsureDirs(dir ...string) error {
	for _, dir := range dir {
		if !FileExists(dir) {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return err
			}
		}
	}
	return nil
}
