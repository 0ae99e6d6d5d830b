package eventsourcing

// Command expresses the intent to change one aggregate.
type Command interface {
	AggregateID() string
}

// AppendResult describes the outcome of a handled command.
type AppendResult struct {
	Stream              StreamID
	NextExpectedVersion uint64
}
