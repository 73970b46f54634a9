// Package httpc provides a shared HTTP client with sensible defaults.
// Use this instead of http.DefaultClient so every request has a timeout.
package httpc

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/proxy"
)

// Default timeouts for HTTP operations.
const (
	DefaultTimeout         = 30 * time.Second
	DefaultConnectTimeout  = 10 * time.Second
	DefaultKeepAlive       = 30 * time.Second
	DefaultIdleConnTimeout = 90 * time.Second

	// RobotTimeout bounds calls to the on-board daemon. Long action
	// sequences are acknowledged only after they finish.
	RobotTimeout = 60 * time.Second
)

// Client is the shared client for cloud APIs.
var Client = NewClient(DefaultTimeout)

// NewClient creates a new HTTP client with the specified timeout.
// For most cases, use the shared Client variable instead.
func NewClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: newTransport(),
	}
}

// NewSocksClient creates a client that dials through a SOCKS5 proxy
// at socksAddr ("127.0.0.1:1080").
func NewSocksClient(socksAddr string, timeout time.Duration) (*http.Client, error) {
	dialer, err := proxy.SOCKS5("tcp", socksAddr, nil, &net.Dialer{
		Timeout:   DefaultConnectTimeout,
		KeepAlive: DefaultKeepAlive,
	})
	if err != nil {
		return nil, fmt.Errorf("socks5 proxy %s: %w", socksAddr, err)
	}

	transport := newTransport()
	if cd, ok := dialer.(proxy.ContextDialer); ok {
		transport.DialContext = cd.DialContext
	} else {
		transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialer.Dial(network, addr)
		}
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}, nil
}

// CloudClient returns the client for cloud APIs: the shared Client, or a
// proxied one when socksAddr is set.
func CloudClient(socksAddr string) (*http.Client, error) {
	if socksAddr == "" {
		return Client, nil
	}
	return NewSocksClient(socksAddr, DefaultTimeout)
}

func newTransport() *http.Transport {
	return &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   DefaultConnectTimeout,
			KeepAlive: DefaultKeepAlive,
		}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       DefaultIdleConnTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

// Do performs an HTTP request with the shared client.
func Do(req *http.Request) (*http.Response, error) {
	return Client.Do(req)
}
