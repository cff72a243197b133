package bias

// insufficientDataError marks an analysis that cannot run on the data
// it was given: snapshot too small, or too few categories worth
// comparing. It never escapes the package; callers see a green result
// with the reason in the interpretation instead.
type insufficientDataError struct {
	Reason string
}

func (e *insufficientDataError) Error() string {
	return "insufficient data: " + e.Reason
}
