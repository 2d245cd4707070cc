package telegram

import (
	"context"
	"net"
	"net/http"
	"time"
)

// newHTTPClient builds an http.Client that bounds each phase of a request
// separately: dialing and the TLS handshake by connect, every socket write by
// write, and every socket read (including waiting for response headers) by
// read. No overall timeout is set so large uploads are not cut short while
// they are still making progress.
func newHTTPClient(connect, read, write time.Duration) *http.Client {
	dialer := &net.Dialer{Timeout: connect, KeepAlive: 30 * time.Second}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			conn, err := dialer.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			return &deadlineConn{Conn: conn, read: read, write: write}, nil
		},
		TLSHandshakeTimeout:   connect,
		ResponseHeaderTimeout: read,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          2,
		IdleConnTimeout:       90 * time.Second,
	}

	return &http.Client{Transport: transport}
}

// deadlineConn refreshes the read or write deadline before every operation
type deadlineConn struct {
	net.Conn
	read  time.Duration
	write time.Duration
}

func (c *deadlineConn) Read(p []byte) (int, error) {
	if c.read > 0 {
		if err := c.Conn.SetReadDeadline(time.Now().Add(c.read)); err != nil {
			return 0, err
		}
	}
	return c.Conn.Read(p)
}

// Write also pushes the read deadline forward: the response reader is already
// waiting while the request body uploads, and must not expire while writes
// are still making progress.
func (c *deadlineConn) Write(p []byte) (int, error) {
	if c.write > 0 {
		if err := c.Conn.SetWriteDeadline(time.Now().Add(c.write)); err != nil {
			return 0, err
		}
	}
	n, err := c.Conn.Write(p)
	if err == nil && c.read > 0 {
		err = c.Conn.SetReadDeadline(time.Now().Add(c.read))
	}
	return n, err
}
