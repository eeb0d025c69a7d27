package main

type Config struct {
	// sqlite path (or libsql url) for the record store
	Database string `json:"database"`
	// badger directory for the class description cache, empty disables it
	CacheDir string `json:"cache_dir"`
	// the customer's widget page url
	TargetUrl string `json:"target_url"`
	// previously discovered site identity, empty until install ran
	SiteID string `json:"site_id"`
	// override for the vendor API base, mainly for testing
	VendorBaseUrl string `json:"vendor_base_url"`

	Port                   int `json:"port"`
	RefreshIntervalMinutes int `json:"refresh_interval_minutes"`
}
