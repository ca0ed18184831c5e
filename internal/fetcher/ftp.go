package fetcher

import (
	"context"
	"io"
	"net"
	"net/url"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// FTPFetcher retrieves files from FTP mirrors. Federal CSV dumps are still
// published on FTP alongside HTTPS.
type FTPFetcher struct {
	timeout time.Duration
}

// NewFTPFetcher creates an FTPFetcher with the given connect timeout.
func NewFTPFetcher(timeout time.Duration) *FTPFetcher {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &FTPFetcher{timeout: timeout}
}

// parseFTPURL extracts host (with port) and path from an FTP URL.
func parseFTPURL(rawURL string) (host string, path string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", eris.Wrap(err, "parse ftp url")
	}
	if u.Scheme != "ftp" {
		return "", "", eris.Errorf("expected ftp scheme, got %q", u.Scheme)
	}

	host = u.Host
	if _, _, splitErr := net.SplitHostPort(host); splitErr != nil {
		host = net.JoinHostPort(host, "21")
	}

	path = u.Path
	if path == "" {
		return "", "", eris.New("empty path in ftp url")
	}

	return host, path, nil
}

// Fetch retrieves the file at an ftp:// URL with anonymous login. The request
// method, headers, and body are ignored; FTP requests are plain retrievals.
func (f *FTPFetcher) Fetch(ctx context.Context, req Request) ([]byte, error) {
	host, path, err := parseFTPURL(req.URL)
	if err != nil {
		return nil, err
	}

	zap.L().Debug("ftp: connecting", zap.String("host", host), zap.String("path", path))

	conn, err := ftp.Dial(host, ftp.DialWithTimeout(f.timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, eris.Wrap(err, "ftp dial")
	}
	defer conn.Quit() //nolint:errcheck

	if err := conn.Login("anonymous", "anonymous@"); err != nil {
		return nil, eris.Wrap(err, "ftp login")
	}

	resp, err := conn.Retr(path)
	if err != nil {
		return nil, eris.Wrap(err, "ftp retrieve")
	}
	defer resp.Close() //nolint:errcheck

	data, err := io.ReadAll(resp)
	if err != nil {
		return nil, eris.Wrap(err, "ftp read")
	}
	return data, nil
}

// Client dispatches requests to the HTTP or FTP fetcher by URL scheme.
type Client struct {
	HTTP *HTTPFetcher
	FTP  *FTPFetcher
}

// NewClient builds the standard scheme-dispatching fetch client.
func NewClient(httpOpts HTTPOptions) *Client {
	return &Client{
		HTTP: NewHTTPFetcher(httpOpts),
		FTP:  NewFTPFetcher(httpOpts.Timeout),
	}
}

// Fetch routes ftp:// URLs to the FTP fetcher and everything else to HTTP.
func (c *Client) Fetch(ctx context.Context, req Request) ([]byte, error) {
	u, err := url.Parse(req.URL)
	if err != nil {
		return nil, eris.Wrapf(err, "fetch %s: parse url", req.URL)
	}
	if u.Scheme == "ftp" {
		return c.FTP.Fetch(ctx, req)
	}
	return c.HTTP.Fetch(ctx, req)
}
