package skillauth

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// CertificateFetcher retrieves the PEM bytes published at a validated certificate URL.
type CertificateFetcher interface {
	Fetch(ctx context.Context, certificateURL string) ([]byte, error)
}

// FetcherFunc adapts a function to CertificateFetcher.
type FetcherFunc func(ctx context.Context, certificateURL string) ([]byte, error)

func (f FetcherFunc) Fetch(ctx context.Context, certificateURL string) ([]byte, error) {
	return f(ctx, certificateURL)
}

// HTTPFetcher performs a single GET per call, without retries.
type HTTPFetcher struct {
	Client    *http.Client
	Timeout   time.Duration
	MaxSize   int64
	UserAgent string
}

// NewHTTPFetcher returns a fetcher bounded by timeout; zero means DefaultFetchTimeout.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &HTTPFetcher{
		Client:  &http.Client{Timeout: timeout},
		Timeout: timeout,
		MaxSize: DefaultMaxCertificateSize,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, certificateURL string) ([]byte, error) {
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}
	maxSize := f.MaxSize
	if maxSize <= 0 {
		maxSize = DefaultMaxCertificateSize
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, certificateURL, nil)
	if err != nil {
		return nil, err
	}
	if f.UserAgent != "" {
		request.Header.Set("User-Agent", f.UserAgent)
	}

	response, err := client.Do(request)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %v", response.Status)
	}

	pemData, err := io.ReadAll(io.LimitReader(response.Body, maxSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(pemData)) > maxSize {
		return nil, fmt.Errorf("certificate exceeds %v bytes", maxSize)
	}
	if len(pemData) == 0 {
		return nil, fmt.Errorf("empty response body")
	}
	return pemData, nil
}
