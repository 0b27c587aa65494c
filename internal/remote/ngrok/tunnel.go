package ngrok

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	ngrok "golang.ngrok.com/ngrok"
	"golang.ngrok.com/ngrok/config"
)

// Options describe the public endpoint forwarding to the local viewer.
type Options struct {
	// ViewerAddr is host:port or a full http URL of the viewer.
	ViewerAddr    string
	Authtoken     string
	Region        string
	Domain        string
	BasicAuthUser string
	BasicAuthPass string
}

type Tunnel struct {
	forwarder ngrok.Forwarder
}

// Start opens the tunnel. It returns once the public URL is assigned; the
// forwarder keeps running until Close or ctx ends.
func Start(ctx context.Context, opts Options) (*Tunnel, error) {
	backend, err := backendURL(opts.ViewerAddr)
	if err != nil {
		return nil, err
	}

	fwd, err := ngrok.ListenAndForward(ctx, backend,
		config.HTTPEndpoint(endpointOptions(opts)...),
		connectOptions(opts)...)
	if err != nil {
		return nil, fmt.Errorf("ngrok forward to %s: %w", backend, err)
	}

	return &Tunnel{forwarder: fwd}, nil
}

func backendURL(addr string) (*url.URL, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("ngrok viewer address is required")
	}
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}

	u, err := url.Parse(addr)
	if err != nil {
		return nil, err
	}
	if u.Host == "" {
		return nil, fmt.Errorf("ngrok viewer address %q has no host", addr)
	}
	return u, nil
}

func endpointOptions(opts Options) []config.HTTPEndpointOption {
	httpOpts := make([]config.HTTPEndpointOption, 0, 2)
	if opts.Domain != "" {
		httpOpts = append(httpOpts, config.WithDomain(opts.Domain))
	}
	if opts.BasicAuthUser != "" && opts.BasicAuthPass != "" {
		httpOpts = append(httpOpts, config.WithBasicAuth(opts.BasicAuthUser, opts.BasicAuthPass))
	}
	return httpOpts
}

func connectOptions(opts Options) []ngrok.ConnectOption {
	connectOpts := make([]ngrok.ConnectOption, 0, 2)
	switch {
	case opts.Authtoken != "":
		connectOpts = append(connectOpts, ngrok.WithAuthtoken(opts.Authtoken))
	case os.Getenv("NGROK_AUTHTOKEN") != "":
		connectOpts = append(connectOpts, ngrok.WithAuthtokenFromEnv())
	}
	if opts.Region != "" {
		connectOpts = append(connectOpts, ngrok.WithRegion(opts.Region))
	}
	return connectOpts
}

func (t *Tunnel) URL() string {
	if t == nil || t.forwarder == nil {
		return ""
	}
	return t.forwarder.URL()
}

func (t *Tunnel) Close() error {
	if t == nil || t.forwarder == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return t.forwarder.CloseWithContext(ctx)
}
