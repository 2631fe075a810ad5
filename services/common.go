package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"tryonapi/models"
)

// Generated images and uploads above this are rejected.
const maxImageBytes = 20 << 20

func StrPointer(str string) *string {
	if str == "" {
		return nil
	}
	return &str
}

// ErrForbiddenTarget is returned for client URLs that point into a private network.
var ErrForbiddenTarget = errors.New("url does not point to a public address")

// publicClient refuses to connect to non-public addresses, so names that
// resolve to private ranges and redirects into them fail at dial time.
var publicClient = &http.Client{
	Timeout: 60 * time.Second,
	Transport: &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   15 * time.Second,
			KeepAlive: 30 * time.Second,
			Control:   denyNonPublic,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          20,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   15 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
	},
}

func isPublicIP(ip net.IP) bool {
	return !(ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() ||
		ip.IsInterfaceLocalMulticast() || ip.IsMulticast())
}

func denyNonPublic(network, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	ip := net.ParseIP(host)
	if ip == nil || !isPublicIP(ip) {
		return fmt.Errorf("%s: %w", host, ErrForbiddenTarget)
	}
	return nil
}

// CheckPublicURL rejects non-http schemes, localhost and literal private,
// loopback or link-local addresses.
func CheckPublicURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme %q: %w", u.Scheme, ErrForbiddenTarget)
	}
	host := strings.ToLower(u.Hostname())
	if host == "" || host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return fmt.Errorf("host %q: %w", host, ErrForbiddenTarget)
	}
	if ip := net.ParseIP(host); ip != nil && !isPublicIP(ip) {
		return fmt.Errorf("host %s: %w", host, ErrForbiddenTarget)
	}
	return nil
}

// FetchPublicURL downloads a client supplied URL. Only public addresses are
// reachable.
func FetchPublicURL(ctx context.Context, rawURL string) ([]byte, error) {
	if err := CheckPublicURL(rawURL); err != nil {
		return nil, err
	}
	return readFile(ctx, publicClient, rawURL)
}

func ReadFileFromUrl(ctx context.Context, url string) ([]byte, error) {
	return readFile(ctx, http.DefaultClient, url)
}

func readFile(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %v", err)
	}
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get response: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("failed to fetch file, status code: %d", resp.StatusCode)
	}

	content, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %v", err)
	}
	if len(content) > maxImageBytes {
		return nil, fmt.Errorf("file at %s is larger than %d bytes", url, maxImageBytes)
	}
	return content, nil
}

// MaterializeImage returns the bytes and MIME type behind an image reference,
// downloading remote URLs.
func MaterializeImage(ctx context.Context, image models.ImageReference) ([]byte, string, error) {
	if image.IsRemote() {
		content, err := ReadFileFromUrl(ctx, image.URL)
		if err != nil {
			return nil, "", err
		}
		return content, DetectImageMIME(content), nil
	}
	inline, err := Normalize(image, FormInline)
	if err != nil {
		return nil, "", err
	}
	return inline.Data, inline.MIMEType, nil
}
