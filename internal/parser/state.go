package parser

// State is the phase of the traversal a Parser is in
type State int32

const (
	Idle State = iota
	Started
	EnumeratingSchemas
	EnumeratingTables
	FetchingTableDetail
	Finished
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Started:
		return "started"
	case EnumeratingSchemas:
		return "enumerating schemas"
	case EnumeratingTables:
		return "enumerating tables"
	case FetchingTableDetail:
		return "fetching table detail"
	case Finished:
		return "finished"
	default:
		return "unknown"
	}
}
