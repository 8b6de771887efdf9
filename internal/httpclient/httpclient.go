package httpclient

import (
	"net"
	"net/http"
	"time"
)

// New builds the shared outbound HTTP client used by the book search
// integrations.
func New() *http.Client {
	tr := &http.Transport{
		MaxIdleConns:          20,
		MaxConnsPerHost:       20,
		IdleConnTimeout:       30 * time.Second,
		ForceAttemptHTTP2:     true,
		ExpectContinueTimeout: 1 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}
	return &http.Client{
		Timeout:   10 * time.Second,
		Transport: tr,
	}
}
