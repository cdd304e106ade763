package constants

// Snapshot storage names.
const (
	// KVBucketNameSnapshots is the name of the NATS KV bucket for roster snapshots.
	KVBucketNameSnapshots = "scoutnet-snapshots"

	// MemberlistSnapshotName is the snapshot entry holding the last raw
	// Scoutnet memberlist response.
	MemberlistSnapshotName = "memberlist"
)
