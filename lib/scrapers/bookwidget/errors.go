package bookwidget

import "fmt"

// ErrNoSiteIdentity means the interception session observed no request
// carrying a siteID parameter. The installation stays unconfigured and
// discovery must be retried wholesale.
var ErrNoSiteIdentity = fmt.Errorf("no site identity observed in widget traffic")

// UpstreamError is a non-success HTTP status or a vendor-reported
// success=false from a single endpoint.
type UpstreamError struct {
	Endpoint   string
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("vendor %s endpoint returned status %d", e.Endpoint, e.StatusCode)
	}
	if e.Message != "" {
		return fmt.Sprintf("vendor %s endpoint reported failure: %s", e.Endpoint, e.Message)
	}
	return fmt.Sprintf("vendor %s endpoint reported failure", e.Endpoint)
}
