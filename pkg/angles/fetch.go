package angles

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

// A Fetcher resolves a metadata reference (a path or an URL) to its content.
// Injecting it keeps the extraction code free of I/O policy; timeouts and
// retries belong to the Fetcher the caller supplies.
type Fetcher interface {
	Fetch(ref string) (io.ReadCloser, error)
}

type FileFetcher struct{}

func (FileFetcher) Fetch(ref string) (io.ReadCloser, error) {
	return os.Open(ref)
}

type HTTPFetcher struct {
	Client *http.Client
}

func (f HTTPFetcher) Fetch(ref string) (io.ReadCloser, error) {
	c := f.Client
	if c == nil {
		c = http.DefaultClient
	}

	res, err := c.Get(ref)

	if err != nil {
		return nil, err
	}

	if res.StatusCode != http.StatusOK {
		res.Body.Close()
		return nil, fmt.Errorf("fetching %s: unexpected status code: %d", ref, res.StatusCode)
	}

	return res.Body, nil
}

// AutoFetcher picks FileFetcher or HTTPFetcher based on the reference.
type AutoFetcher struct {
	Client *http.Client
}

func (f AutoFetcher) Fetch(ref string) (io.ReadCloser, error) {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return HTTPFetcher{Client: f.Client}.Fetch(ref)
	}

	return FileFetcher{}.Fetch(ref)
}
