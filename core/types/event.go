package types

// Event is a typed record of a state change applied by the ledger. The
// attribute map holds stringified values so events can be serialized to any
// transport without further conversion.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}
