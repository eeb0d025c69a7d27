package schedsync

// canonical domain model reconciled against the host record store. All
// vendor payloads map into these, raw payloads are never persisted.

type BusinessDetails struct {
	Name    string
	Address string
	// the vendor exposes no contact fields, these stay blank
	Phone     string
	Email     string
	SourceUrl string
	Timezone  string
	Currency  string
}

const (
	PackageTypeStandard   = "package"
	PackageTypeIntroOffer = "intro_offer"
)

type Package struct {
	Name        string
	Description string
	// preformatted, e.g. "$29.99/month" or "$0"
	Price string
	// PackageTypeStandard or PackageTypeIntroOffer, derived strictly
	// from the vendor's intro-offer flag
	Type string
}

type Class struct {
	Name            string
	Description     string
	DurationMinutes int
	Category        string
}

type ScheduleEntry struct {
	Name       string
	StartTime  string
	EndTime    string
	Instructor string
	Status     string
	Location   string
	Capacity   int
	Remaining  int
}

// Schedule maps calendar dates (YYYY-MM-DD) to entries in vendor
// response order. Entries are not resorted by time.
type Schedule map[string][]ScheduleEntry

type ScrapedData struct {
	Business BusinessDetails
	Packages []Package
	Classes  []Class
	Schedule Schedule
}
