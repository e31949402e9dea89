package monitoring

import "testing"

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	var got string
	SetLogger(func(format string, v ...interface{}) {
		got = format
	})
	Logf("traced %d points", 12)
	if got != "traced %d points" {
		t.Errorf("custom logger not invoked, got %q", got)
	}

	// nil installs a no-op; must not panic.
	SetLogger(nil)
	Logf("muted")
}
