// Package shared holds helpers used across packages that belong to no
// single layer.
//
// The testutil subpackage provides a buffered slog handler for asserting on
// log output and writers for MIMIT-shaped CSV fixtures (banner line, header,
// semicolon-delimited rows):
//
//	func TestSomething(t *testing.T) {
//	    logger, logs := testutil.NewTestLogger(t)
//	    path := testutil.WriteRegistry(t, t.TempDir(), testutil.SampleStations())
//	    // ...
//	    testutil.AssertLogContains(t, logs, slog.LevelInfo, "registry processed")
//	}
package shared
