package mqtt

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// DefaultPort is the plain MQTT port.
const DefaultPort = 1883

const defaultTLSPort = 8883

// BrokerURL turns a configured broker address into a paho server URL.
// It accepts "host", "host:port" and full URLs; mqtt:// and mqtts:// are
// mapped to tcp:// and ssl://. port applies when the address has none.
func BrokerURL(address string, port int) (string, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return "", fmt.Errorf("broker address is empty")
	}
	if port <= 0 {
		port = DefaultPort
	}

	if !strings.Contains(address, "://") {
		if host, p, err := net.SplitHostPort(address); err == nil {
			return "tcp://" + net.JoinHostPort(host, p), nil
		}
		return "tcp://" + net.JoinHostPort(address, strconv.Itoa(port)), nil
	}

	u, err := url.Parse(address)
	if err != nil {
		return "", fmt.Errorf("invalid broker address %q: %w", address, err)
	}

	switch u.Scheme {
	case "mqtt":
		u.Scheme = "tcp"
	case "mqtts":
		u.Scheme = "ssl"
	case "tcp", "ssl", "tls", "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported broker scheme %q (use tcp, ssl, ws or wss)", u.Scheme)
	}

	if u.Hostname() == "" {
		return "", fmt.Errorf("invalid broker address %q: missing host", address)
	}
	if u.Port() == "" && (u.Scheme == "tcp" || u.Scheme == "ssl" || u.Scheme == "tls") {
		p := port
		if u.Scheme != "tcp" && port == DefaultPort {
			p = defaultTLSPort
		}
		u.Host = net.JoinHostPort(u.Hostname(), strconv.Itoa(p))
	}
	return u.String(), nil
}
