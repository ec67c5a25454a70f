package skillauth

import (
	"net/url"
	"path"
	"strconv"
	"strings"
)

// ValidateOrigin checks the signing certificate URL against the configured
// scheme, host, path prefix and port. It returns the normalized URL, which is
// the one that must be fetched.
func ValidateOrigin(cfg Config, certificateURL string) (string, error) {
	cfg = cfg.withDefaults()

	if certificateURL == "" {
		return "", mismatch(InvalidCertificateOrigin, "url", "", cfg.Scheme+"://"+cfg.Host+cfg.PathPrefix)
	}
	u, err := url.Parse(certificateURL)
	if err != nil {
		return "", &VerificationError{Kind: InvalidCertificateOrigin, Field: "url", Err: err}
	}

	// resolve dot segments so that the prefix check sees the effective path
	if u.Path != "" {
		cleaned := path.Clean(u.Path)
		if strings.HasSuffix(u.Path, "/") && !strings.HasSuffix(cleaned, "/") {
			cleaned += "/"
		}
		u.Path = cleaned
		u.RawPath = ""
	}

	// url.Parse lowercases the scheme, the comparison must see it as sent
	if scheme, _, _ := strings.Cut(certificateURL, ":"); scheme != cfg.Scheme {
		return "", mismatch(InvalidCertificateOrigin, "scheme", scheme, cfg.Scheme)
	}
	if u.Hostname() != cfg.Host {
		return "", mismatch(InvalidCertificateOrigin, "host", u.Hostname(), cfg.Host)
	}
	if !strings.HasPrefix(u.Path, cfg.PathPrefix) {
		return "", mismatch(InvalidCertificateOrigin, "path", u.Path, cfg.PathPrefix)
	}
	if port := u.Port(); port != "" && port != strconv.Itoa(cfg.Port) {
		return "", mismatch(InvalidCertificateOrigin, "port", port, strconv.Itoa(cfg.Port))
	}

	return u.String(), nil
}
