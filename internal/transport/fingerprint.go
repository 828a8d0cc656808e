package transport

import (
	"context"
	"fmt"
	"net"
	"time"

	tls "github.com/refraction-networking/utls"
)

// chromeHTTP1Hello returns a Chrome-like ClientHello with ALPN restricted to
// http/1.1. net/http cannot speak h2 over a utls connection, so h2 must never
// be negotiated.
func chromeHTTP1Hello() (tls.ClientHelloSpec, error) {
	hello, err := tls.UTLSIdToSpec(tls.HelloChrome_Auto)
	if err != nil {
		return tls.ClientHelloSpec{}, err
	}
	for i, ext := range hello.Extensions {
		if alpn, ok := ext.(*tls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
			hello.Extensions[i] = alpn
			break
		}
	}
	return hello, nil
}

// dialChromeTLS returns a DialTLSContext func that presents a Chrome TLS
// fingerprint to the origin.
func dialChromeTLS(insecureSkipVerify bool) func(ctx context.Context, network, addr string) (net.Conn, error) {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		dialer := &net.Dialer{Timeout: 10 * time.Second}
		conn, err := dialer.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}

		// a fresh hello per connection: ApplyPreset keeps references to it
		hello, err := chromeHTTP1Hello()
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("transport: build client hello: %w", err)
		}

		host, _, _ := net.SplitHostPort(addr)
		tlsConn := tls.UClient(conn, &tls.Config{
			ServerName:         host,
			InsecureSkipVerify: insecureSkipVerify,
		}, tls.HelloCustom)
		if err := tlsConn.ApplyPreset(&hello); err != nil {
			conn.Close()
			return nil, fmt.Errorf("transport: apply client hello: %w", err)
		}
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			conn.Close()
			return nil, err
		}
		return tlsConn, nil
	}
}
