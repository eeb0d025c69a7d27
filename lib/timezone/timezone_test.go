package timezone

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	chicago, err := time.LoadLocation("America/Chicago")
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name     string
		expected *time.Location
	}{
		{name: "America/Chicago", expected: chicago},
		{name: "", expected: time.UTC},
		{name: "Not/AZone", expected: time.UTC},
	}

	for _, test := range cases {
		require.Equal(t, test.expected, Resolve(test.name))
	}
}

func TestDate(t *testing.T) {
	loc := Resolve("America/Chicago")
	require.Equal(t, "2026-08-25", Date(time.Date(2026, time.August, 25, 23, 30, 0, 0, loc)))
	require.Equal(t, "2026-01-02", Date(time.Date(2026, time.January, 2, 0, 0, 0, 0, time.UTC)))
}
