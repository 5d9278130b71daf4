package probe

import (
	"HealthScan/internal/domain"
	"HealthScan/internal/shared/constants"
	"context"
	"fmt"
	"net"
	"strconv"
	"time"
)

type TCPProbe struct {
	timeout time.Duration
}

func NewTCPProbe() *TCPProbe {
	return &TCPProbe{
		timeout: constants.TCPTimeout,
	}
}

func (p *TCPProbe) Kind() domain.Kind {
	return domain.TCPConnect
}

// Execute measures the time to open a TCP connection in milliseconds.
func (p *TCPProbe) Execute(ctx context.Context, spec domain.ProbeSpec) (Observation, error) {
	address, err := tcpAddress(spec.Target, spec.Params)
	if err != nil {
		return Observation{}, err
	}

	timeout := getDurationOption(spec.Params, "connect_timeout", p.timeout)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", address)
	connectTime := time.Since(start)
	if err != nil {
		return Observation{}, fmt.Errorf("connect %s: %w", address, err)
	}
	defer conn.Close()

	return observe(domain.NumberValue(float64(connectTime.Microseconds())/1000), map[string]string{
		"address":        address,
		"remote_address": conn.RemoteAddr().String(),
	}), nil
}

func tcpAddress(target string, options map[string]interface{}) (string, error) {
	if host, port, err := net.SplitHostPort(target); err == nil {
		if _, ok := parsePort(port); !ok {
			return "", fmt.Errorf("invalid port in %q", target)
		}
		return net.JoinHostPort(host, port), nil
	}

	port, ok := parsePort(options["port"])
	if !ok {
		return "", fmt.Errorf("target %q has no port and parameter 'port' is not set", target)
	}
	return net.JoinHostPort(target, strconv.Itoa(port)), nil
}
