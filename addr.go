package redis

import (
	"net"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
)

// defaultHost and defaultPort are used when an endpoint omits them.
const (
	defaultHost = "127.0.0.1"
	defaultPort = "6379"
)

// endpoint is a normalized connection target: either a TCP host:port or a
// filesystem path to a Unix domain socket.
type endpoint struct {
	network  string // "tcp" or "unix"
	address  string
	authPass string // lifted from a redis:// URL's userinfo, if present
}

// parseEndpoint accepts any of three shapes: a plain "host:port", a
// "redis://[:pass@]host:port" URL, or a filesystem path to a Unix socket.
func parseEndpoint(raw string) endpoint {
	if isUnixPath(raw) {
		return endpoint{network: "unix", address: filepath.Clean(raw)}
	}
	if strings.Contains(raw, "://") {
		if u, err := url.Parse(raw); err == nil && (u.Scheme == "redis" || u.Scheme == "rediss") {
			ep := endpoint{network: "tcp", address: normalizeHostPort(u.Host)}
			if u.User != nil {
				if pass, ok := u.User.Password(); ok {
					ep.authPass = pass
				} else if u.User.Username() != "" {
					ep.authPass = u.User.Username()
				}
			}
			return ep
		}
	}
	return endpoint{network: "tcp", address: normalizeHostPort(raw)}
}

func isUnixPath(s string) bool {
	return len(s) != 0 && s[0] == '/'
}

func normalizeHostPort(s string) string {
	host, port, err := net.SplitHostPort(s)
	if err != nil {
		host = s
	}
	if host == "" {
		host = defaultHost
	}
	if port == "" {
		port = defaultPort
	}
	return net.JoinHostPort(host, port)
}

// formatDB renders a SELECT index argument.
func formatDB(db int64) []byte {
	return []byte(strconv.FormatInt(db, 10))
}
