package bookwidget

import "encoding/json"

// session status values as the vendor reports them
const (
	StatusOpen     = "open"
	StatusFull     = "full"
	StatusWaitlist = "waitlist"
	StatusComplete = "complete"
	StatusClosed   = "closed"
)

type SiteSettings struct {
	SiteName       string `json:"siteName"`
	Timezone       string `json:"timezone"`
	CurrencyCode   string `json:"currencyCode"`
	CurrencySymbol string `json:"currencySymbol"`
	ThemeColor     string `json:"themeColor"`
}

// SessionOccurrence is one scheduled class instance. The template id
// groups occurrences of the same class type across dates.
type SessionOccurrence struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Date            string `json:"date"`
	StartTime       string `json:"startTime"`
	EndTime         string `json:"endTime"`
	DurationMinutes int    `json:"durationMinutes"`
	Instructor      string `json:"instructor"`
	Capacity        int    `json:"capacity"`
	Reserved        int    `json:"reserved"`
	Remaining       int    `json:"remaining"`
	Status          string `json:"status"`
	Location        string `json:"location"`
	Address         string `json:"address"`
	SessionTemplate string `json:"sessionTemplate"`
	Category        string `json:"category"`
	Description     string `json:"description"`
}

type PackagePrice struct {
	Amount       string `json:"amount"`
	BillingCycle string `json:"billingCycle"`
}

type PackageOffering struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Category    string       `json:"category"`
	Description string       `json:"description"`
	Price       PackagePrice `json:"price"`
	IntroOffer  bool         `json:"introOffer"`
}

type settingsResponse struct {
	Success  bool         `json:"success"`
	Message  string       `json:"message"`
	Settings SiteSettings `json:"settings"`
}

type SessionsPage struct {
	Success    bool                `json:"success"`
	Message    string              `json:"message"`
	Page       int                 `json:"page"`
	TotalPages int                 `json:"totalPages"`
	Sessions   []SessionOccurrence `json:"sessions"`
}

type packagesResponse struct {
	Success  bool              `json:"success"`
	Message  string            `json:"message"`
	Packages []PackageOffering `json:"packages"`
}

type sessionDetailResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Session SessionOccurrence `json:"session"`
}

// decoders shared by the direct client and the discovery path, which
// receives the same payloads out of intercepted response bodies.

func DecodeSettings(body []byte) (SiteSettings, error) {
	var res settingsResponse
	err := json.Unmarshal(body, &res)
	if err != nil {
		return SiteSettings{}, err
	}
	if !res.Success {
		return SiteSettings{}, &UpstreamError{Endpoint: "settings", Message: res.Message}
	}
	return res.Settings, nil
}

func DecodeSessionsPage(body []byte) (SessionsPage, error) {
	var res SessionsPage
	err := json.Unmarshal(body, &res)
	if err != nil {
		return SessionsPage{}, err
	}
	return res, nil
}

func DecodePackages(body []byte) ([]PackageOffering, error) {
	var res packagesResponse
	err := json.Unmarshal(body, &res)
	if err != nil {
		return nil, err
	}
	if !res.Success {
		return nil, &UpstreamError{Endpoint: "packages", Message: res.Message}
	}
	return res.Packages, nil
}
