// Package testutil provides shared test helpers for pose and HTTP checks.
package testutil

import (
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/banshee-data/swervedrive/internal/geom"
)

// TB is the subset of testing.TB the helpers use.
type TB interface {
	Helper()
	Errorf(format string, args ...any)
	Fatalf(format string, args ...any)
}

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t TB, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertRotationNear checks that two rotations are within tol radians,
// measured the short way round.
func AssertRotationNear(t TB, got, want geom.Rotation, tol float64) {
	t.Helper()
	if d := math.Abs(got.Distance(want)); d > tol {
		t.Errorf("rotation = %.6fdeg, want %.6fdeg (off by %.3g rad)", got.Degrees(), want.Degrees(), d)
	}
}

// AssertPoseNear checks translation and heading separately so a failure names
// which part is off.
func AssertPoseNear(t TB, got, want geom.Pose2D, tol float64) {
	t.Helper()
	if d := got.Translation().Minus(want.Translation()).Norm(); d > tol {
		t.Errorf("position = (%.6f, %.6f), want (%.6f, %.6f) (off by %.3g m)",
			got.X(), got.Y(), want.X(), want.Y(), d)
	}
	AssertRotationNear(t, got.Heading(), want.Heading(), tol)
}

// NewJSONRequest creates a test request with body sent as application/json.
// An empty body sends no body at all.
func NewJSONRequest(method, path, body string) *http.Request {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

// NewLoopbackRequest creates a request that appears to come from localhost,
// which debug handlers require.
func NewLoopbackRequest(method, path string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, path, body)
	req.RemoteAddr = "127.0.0.1:12345"
	return req
}
