package harness

// RunStats tracks case outcomes and totals across a suite.
type RunStats struct {
	Total       int
	Current     int
	Passed      int
	Skipped     int
	Failed      int
	Runs        int   // Codec or extractor runs recorded as rows.
	CodecErrors int   // Runs whose status was not success.
	TotalBytes  int64 // Input bytes handed to codecs.
}

// OK reports whether no case failed.
func (s *RunStats) OK() bool { return s.Failed == 0 }
