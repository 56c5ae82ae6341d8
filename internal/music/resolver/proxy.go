package resolver

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"time"

	// Registers the socks4 scheme with x/net/proxy.
	_ "github.com/bdandy/go-socks4"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/proxy"
)

// NewHTTPClient builds the resolver's HTTP client, optionally routed
// through a proxy. Invalid or unsupported proxy settings fall back to a
// direct client rather than failing startup.
func NewHTTPClient(proxyStr string) *http.Client {
	if proxyStr == "" {
		return &http.Client{Timeout: 15 * time.Second}
	}

	proxyURL, err := url.Parse(proxyStr)
	if err != nil {
		log.Warn().Str("component", "resolver").Str("proxy", proxyStr).Err(err).Msg("invalid proxy URL, going direct")
		return &http.Client{Timeout: 15 * time.Second}
	}

	var transport *http.Transport

	switch proxyURL.Scheme {
	case "http", "https":
		transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}

	case "socks5":
		auth := &proxy.Auth{}
		if proxyURL.User != nil {
			auth.User = proxyURL.User.Username()
			if pass, ok := proxyURL.User.Password(); ok {
				auth.Password = pass
			}
		}
		dialer, derr := proxy.SOCKS5("tcp", proxyURL.Host, auth, &net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 10 * time.Second,
		})
		if derr != nil {
			log.Warn().Str("component", "resolver").Err(derr).Msg("socks5 dialer error, going direct")
			break
		}
		transport = &http.Transport{
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				return dialer.Dial(network, addr)
			},
		}

	case "socks4":
		dialer, derr := proxy.FromURL(proxyURL, &net.Dialer{Timeout: 10 * time.Second})
		if derr != nil {
			log.Warn().Str("component", "resolver").Err(derr).Msg("socks4 dialer error, going direct")
			break
		}
		transport = &http.Transport{
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				return dialer.Dial(network, addr)
			},
		}

	default:
		log.Warn().Str("component", "resolver").Str("scheme", proxyURL.Scheme).Msg("unsupported proxy scheme, going direct")
	}

	if transport == nil {
		return &http.Client{Timeout: 15 * time.Second}
	}

	return &http.Client{
		Timeout:   15 * time.Second,
		Transport: transport,
	}
}
