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

	apperrors "orpheus_go_backend/internal/errors"
)

const (
	defaultImageContentType = "image/png"
	maxRelayRedirects       = 5
)

var errBlockedDestination = errors.New("destination address is not public")

// carrier-grade NAT space is not covered by net.IP.IsPrivate.
var sharedAddressSpace = &net.IPNet{IP: net.IPv4(100, 64, 0, 0), Mask: net.CIDRMask(10, 32)}

// ImageRelayService downloads generated images server side, sidestepping the
// CORS restrictions of temporary image hosts.
type ImageRelayService struct {
	client   *http.Client
	maxBytes int64
}

// NewImageRelayService only connects to public addresses. The check runs on
// the resolved IP of every connection, so redirects and DNS names pointing
// inside the network are refused too.
func NewImageRelayService(timeout time.Duration, maxBytes int64) *ImageRelayService {
	dialer := &net.Dialer{Timeout: timeout, Control: rejectNonPublic}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	transport.DialContext = dialer.DialContext
	return newImageRelayService(&http.Client{
		Timeout:       timeout,
		Transport:     transport,
		CheckRedirect: checkRelayRedirect,
	}, maxBytes)
}

func newImageRelayService(client *http.Client, maxBytes int64) *ImageRelayService {
	return &ImageRelayService{client: client, maxBytes: maxBytes}
}

func rejectNonPublic(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	if ip := net.ParseIP(host); ip == nil || !isPublicIP(ip) {
		return fmt.Errorf("%s: %w", host, errBlockedDestination)
	}
	return nil
}

func isPublicIP(ip net.IP) bool {
	return !(ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() || ip.IsInterfaceLocalMulticast() || ip.IsMulticast() ||
		ip.IsUnspecified() || sharedAddressSpace.Contains(ip))
}

func checkRelayRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRelayRedirects {
		return fmt.Errorf("stopped after %d redirects", maxRelayRedirects)
	}
	if req.URL.Scheme != "http" && req.URL.Scheme != "https" {
		return fmt.Errorf("redirect to %s scheme: %w", req.URL.Scheme, errBlockedDestination)
	}
	return nil
}

func (s *ImageRelayService) FetchImage(ctx context.Context, rawURL string) (*FetchedImage, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, apperrors.Validationf("Image URL is required")
	}
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, apperrors.Validationf("Image URL must be an http or https URL")
	}
	if ip := net.ParseIP(u.Hostname()); ip != nil && !isPublicIP(ip) {
		return nil, apperrors.Validationf("Image URL must point to a public host")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build image request: %w", err)
	}
	resp, err := s.client.Do(req)
	if errors.Is(err, errBlockedDestination) {
		return nil, apperrors.Validationf("Image URL must point to a public host")
	}
	if err != nil {
		return nil, fmt.Errorf("Failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("Failed to fetch image: %s", statusText(resp))
	}
	contentType := resp.Header.Get("Content-Type")
	if !isImageContentType(contentType) {
		return nil, fmt.Errorf("Failed to fetch image: unexpected content type %s", contentType)
	}

	body := io.Reader(resp.Body)
	if s.maxBytes > 0 {
		body = io.LimitReader(resp.Body, s.maxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("Failed to fetch image: %w", err)
	}
	if s.maxBytes > 0 && int64(len(data)) > s.maxBytes {
		return nil, fmt.Errorf("Failed to fetch image: image exceeds %d bytes", s.maxBytes)
	}

	if contentType == "" {
		contentType = defaultImageContentType
	}
	return &FetchedImage{Data: data, ContentType: contentType}, nil
}

// isImageContentType accepts image types, a missing header and the generic
// binary type some object stores serve.
func isImageContentType(contentType string) bool {
	if contentType == "" {
		return true
	}
	mediaType := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	return strings.HasPrefix(mediaType, "image/") || mediaType == "application/octet-stream"
}

func statusText(resp *http.Response) string {
	if text := http.StatusText(resp.StatusCode); text != "" {
		return text
	}
	return resp.Status
}
