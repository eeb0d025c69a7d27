package bookwidget

import (
	"testing"

	"github.com/chromedp/cdproto/network"
	"github.com/stretchr/testify/require"
)

func TestAccumulatorSiteIdentity(t *testing.T) {
	acc := newAccumulator(DefaultClassifiers())

	// requests without an identity never claim the slot
	acc.observeRequest("r1", "https://cdn.example.com/widget.js")
	acc.observeRequest("r2", "https://api.bookwidget.io/v2/wAPI/site/settings?siteID=abc123")
	acc.observeRequest("r3", "https://api.bookwidget.io/v2/wAPI/site/sessions?siteID=other")

	res, err := acc.result("")
	if err != nil {
		t.Fatal(err)
	}
	// first observed identity wins
	require.Equal(t, "abc123", res.SiteID)
}

func TestAccumulatorNoSiteIdentity(t *testing.T) {
	acc := newAccumulator(DefaultClassifiers())
	acc.observeRequest("r1", "https://cdn.example.com/widget.js")

	_, err := acc.result("")
	require.ErrorIs(t, err, ErrNoSiteIdentity)
}

func TestAccumulatorClassification(t *testing.T) {
	acc := newAccumulator(DefaultClassifiers())

	cases := []struct {
		id   network.RequestID
		url  string
		kind ResponseKind
		ok   bool
	}{
		{"r1", "https://api.bookwidget.io/v2/wAPI/site/settings?siteID=abc", KindSettings, true},
		{"r2", "https://api.bookwidget.io/v2/wAPI/site/sessions?siteID=abc&page=2", KindSessions, true},
		{"r3", "https://api.bookwidget.io/v2/wAPI/site/packages?siteID=abc", KindPackages, true},
		{"r4", "https://cdn.example.com/widget.js", "", false},
	}

	for _, c := range cases {
		acc.observeRequest(c.id, c.url)
		acc.observeResponse(c.id, c.url)
	}
	for _, c := range cases {
		kind, ok := acc.finish(c.id)
		require.Equal(t, c.ok, ok, c.url)
		require.Equal(t, c.kind, kind, c.url)
	}
}

func TestAccumulatorIdle(t *testing.T) {
	acc := newAccumulator(DefaultClassifiers())
	require.True(t, acc.idle())

	acc.observeRequest("r1", "https://api.bookwidget.io/v2/wAPI/site/settings?siteID=abc")
	acc.observeRequest("r2", "https://cdn.example.com/widget.js")
	require.False(t, acc.idle())

	acc.finish("r1")
	require.False(t, acc.idle())
	acc.finish("r2")
	require.True(t, acc.idle())

	// finishing an unknown request never underflows
	acc.finish("r3")
	require.True(t, acc.idle())

	// an in-progress body read holds idle open after its request finished
	acc.beginBodyRead()
	require.False(t, acc.idle())
	acc.endBodyRead()
	require.True(t, acc.idle())
}

func TestAccumulatorResultSnapshot(t *testing.T) {
	acc := newAccumulator(DefaultClassifiers())
	acc.observeRequest("r1", "https://api.bookwidget.io/v2/wAPI/site/sessions?siteID=abc&page=1")
	acc.addBody(KindSessions, []byte(`{"page":1}`))

	// a late body read keeps appending while the caller iterates a result
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			acc.addBody(KindSessions, []byte(`{"page":2}`))
		}
	}()

	for i := 0; i < 100; i++ {
		res, err := acc.result("")
		if err != nil {
			t.Fatal(err)
		}
		for _, body := range res.Bodies[KindSessions] {
			require.NotEmpty(t, body)
		}
	}
	<-done

	res, err := acc.result("")
	if err != nil {
		t.Fatal(err)
	}
	require.Len(t, res.Bodies[KindSessions], 1001)
}

func TestAccumulatorBodies(t *testing.T) {
	acc := newAccumulator(DefaultClassifiers())
	acc.observeRequest("r1", "https://api.bookwidget.io/v2/wAPI/site/sessions?siteID=abc&page=1")
	acc.observeResponse("r1", "https://api.bookwidget.io/v2/wAPI/site/sessions?siteID=abc&page=1")
	acc.observeRequest("r2", "https://api.bookwidget.io/v2/wAPI/site/sessions?siteID=abc&page=2")
	acc.observeResponse("r2", "https://api.bookwidget.io/v2/wAPI/site/sessions?siteID=abc&page=2")

	acc.addBody(KindSessions, []byte(`{"page":1}`))
	acc.addBody(KindSessions, []byte(`{"page":2}`))

	res, err := acc.result("<html></html>")
	if err != nil {
		t.Fatal(err)
	}
	require.Len(t, res.Bodies[KindSessions], 2)
	require.Equal(t, "<html></html>", res.PageHTML)
}

func TestSiteIDFromUrl(t *testing.T) {
	require.Equal(t, "abc123", siteIDFromUrl("https://api.bookwidget.io/v2/wAPI/site/settings?siteID=abc123&cache=0"))
	require.Equal(t, "", siteIDFromUrl("https://api.bookwidget.io/v2/wAPI/site/settings"))
	require.Equal(t, "", siteIDFromUrl("://not-a-url"))
}

func TestBusinessNameFromHTML(t *testing.T) {
	cases := []struct {
		html     string
		expected string
	}{
		{
			html:     `<html><head><meta property="og:site_name" content="Riverside Yoga"><title>Book Now</title></head></html>`,
			expected: "Riverside Yoga",
		},
		{
			html:     `<html><head><title>  Sunrise Pilates  </title></head></html>`,
			expected: "Sunrise Pilates",
		},
		{
			html:     `<html><body><p>no metadata</p></body></html>`,
			expected: "",
		},
	}

	for _, c := range cases {
		require.Equal(t, c.expected, BusinessNameFromHTML(c.html))
	}
}
