package domain

type PrefetchStatus string

const (
	PrefetchPending PrefetchStatus = "pending"
	PrefetchLoading PrefetchStatus = "loading"
	PrefetchDone    PrefetchStatus = "done"
	PrefetchError   PrefetchStatus = "error"
)

// Granularity selects how much Jira detail a fetch returns.
type Granularity string

const (
	GranularityLight Granularity = "light"
	GranularityFull  Granularity = "full"
)

type ReportingFrom string

const (
	ReportingOffice ReportingFrom = "office"
	ReportingHome   ReportingFrom = "home"
	ReportingClient ReportingFrom = "client"
)

// Valid reports whether r is one of the accepted location tags.
func (r ReportingFrom) Valid() bool {
	switch r {
	case ReportingOffice, ReportingHome, ReportingClient:
		return true
	}
	return false
}

// DefaultDoneStatuses lists the Jira status names treated as done-equivalent.
var DefaultDoneStatuses = []string{
	"Done", "Closed", "Resolved", "Cancelled", "Canceled", "Won't Do",
}
