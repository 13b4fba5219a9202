package matroska

// Cluster holds the absolute timestamp shared by the blocks of one Cluster
// element.
type Cluster struct {
	*Tree
	Timestamp int64
}

// NewCluster reads the Timestamp child of t. A missing Timestamp is
// reported as -1.
func NewCluster(t *Tree) (*Cluster, error) {
	ts, err := t.GetChildValue(TimestampID)
	if err != nil {
		return nil, err
	}
	return &Cluster{Tree: t, Timestamp: ts}, nil
}
