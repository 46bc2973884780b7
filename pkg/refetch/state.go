package refetch

// State is a read-only snapshot of a Resource's fetch lifecycle.
//
// IsFetching is true only between request issuance and settlement.
// IsFetched is true only after a successful fetch and is cleared when a
// new request is issued or when the reset delay elapses. Err holds the
// failure of the most recent settled fetch; it survives a reset and is
// cleared only by a new fetch attempt. Data holds the decoded body of the
// most recent success and stays visible while a refetch is in flight.
type State struct {
	IsFetching bool
	IsFetched  bool
	Err        *Error
	Data       any
}
