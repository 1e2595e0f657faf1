package http_test

import (
	"strconv"
	"testing"
	"time"
)

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		t.Fatalf("parse date %q: %v", s, err)
	}
	return d
}
