package llm

import (
	"net/http"
	"net/url"
	"strings"
	"time"
)

// newProxyFunc picks a proxy from configuration, falling back to the
// environment when none is set. Hosts listed in noProxy go direct.
func newProxyFunc(httpProxy, httpsProxy, noProxy string) func(*http.Request) (*url.URL, error) {
	if httpProxy == "" && httpsProxy == "" {
		return http.ProxyFromEnvironment
	}

	bypass := splitHosts(noProxy)
	return func(req *http.Request) (*url.URL, error) {
		if bypassed(req.URL.Hostname(), bypass) {
			return nil, nil
		}
		if req.URL.Scheme == "https" && httpsProxy != "" {
			return url.Parse(httpsProxy)
		}
		if httpProxy != "" {
			return url.Parse(httpProxy)
		}
		return http.ProxyFromEnvironment(req)
	}
}

func splitHosts(list string) []string {
	var out []string
	for _, h := range strings.Split(list, ",") {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			out = append(out, strings.TrimPrefix(h, "."))
		}
	}
	return out
}

func bypassed(host string, bypass []string) bool {
	host = strings.ToLower(host)
	for _, b := range bypass {
		if b == "*" || host == b || strings.HasSuffix(host, "."+b) {
			return true
		}
	}
	return false
}

// newHTTPClient builds the client every provider uses
func newHTTPClient(config Config, defaultTimeout time.Duration) *http.Client {
	timeout := time.Duration(config.Timeout) * time.Second
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy: newProxyFunc(config.HTTPProxy, config.HTTPSProxy, config.NoProxy),
		},
	}
}
