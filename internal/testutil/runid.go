package testutil

// FixedRunIDGenerator hands out the same run id every time.
//
// Scenario files may pin a run id:
//
//	run_id: "run-00000000-0000-0000-0000-000000000001"
//
// so that recorded traces are byte-identical across executions.
type FixedRunIDGenerator struct {
	id string
}

// NewFixedRunIDGenerator creates a generator for id. An empty id becomes
// "test-run-default".
func NewFixedRunIDGenerator(id string) *FixedRunIDGenerator {
	if id == "" {
		id = "test-run-default"
	}
	return &FixedRunIDGenerator{id: id}
}

// Generate returns the fixed run id.
func (g *FixedRunIDGenerator) Generate() string {
	return g.id
}
