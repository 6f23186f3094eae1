package aggregates

// WriteTxOwnership says who opens the transaction around a write.
type WriteTxOwnership string

const (
	WriteTxOwnedByAggregate WriteTxOwnership = "aggregate_owned"
)

// ReadPolicy says where reads for an aggregate are served from.
type ReadPolicy string

const (
	// ReadPolicyInvariantScoped: the aggregate reads only what its own invariant checks need.
	ReadPolicyInvariantScoped ReadPolicy = "invariant_scoped_reads"
	// ReadPolicyTableRepoQueries: listings and lookups go through table repos, never the aggregate.
	ReadPolicyTableRepoQueries ReadPolicy = "table_repo_queries"
)

// Contract documents how an aggregate is persisted. RootTable carries the version column
// every write compares and bumps.
type Contract struct {
	Name             string
	RootTable        string
	WriteTxOwnership WriteTxOwnership
	ReadPolicy       ReadPolicy
	Notes            string
}

type Aggregate interface {
	Contract() Contract
}

func (c Contract) RequiresAggregateOwnedTx() bool {
	return c.WriteTxOwnership == WriteTxOwnedByAggregate
}
