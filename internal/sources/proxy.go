package sources

import (
	"net/http"
	"net/url"
)

// ProxyFunc picks the configured proxy per scheme. With neither proxy set it
// falls back to HTTP_PROXY/HTTPS_PROXY/NO_PROXY from the environment.
func ProxyFunc(httpProxy, httpsProxy string) func(*http.Request) (*url.URL, error) {
	if httpProxy == "" && httpsProxy == "" {
		return http.ProxyFromEnvironment
	}

	return func(req *http.Request) (*url.URL, error) {
		if req.URL.Scheme == "https" && httpsProxy != "" {
			return url.Parse(httpsProxy)
		}
		if httpProxy != "" {
			return url.Parse(httpProxy)
		}
		return http.ProxyFromEnvironment(req)
	}
}
