package constants

// Stage is the canonical pipeline stage for a document in flight.
type Stage string

// Stable values (these exact strings appear in logs and diagnostics).
const (
	StagePending     Stage = "PENDING"     // discovered, not yet started
	StageNormalizing Stage = "NORMALIZING" // decoding + resizing pages
	StageExtracting  Stage = "EXTRACTING"  // provider chain in progress
	StageValidating  Stage = "VALIDATING"  // schema, rules, confidence
	StageSucceeded   Stage = "SUCCEEDED"   // terminal success
	StageFailed      Stage = "FAILED"      // terminal failure
)
