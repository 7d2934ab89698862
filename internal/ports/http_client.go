package ports

import "net/http"

// HTTPClient sends the out-of-browser requests: the captcha audio download
// and the speech recognition call. *http.Client satisfies it.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}
