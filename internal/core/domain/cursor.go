package domain

// CheckpointKey names a persisted integer in the checkpoint store.
type CheckpointKey string

const (
	// CheckpointSyncedBlock is the highest block range end fully processed.
	CheckpointSyncedBlock CheckpointKey = "latest_block_number"
	// CheckpointSyncedExternalID is the profile backfill cursor. Not used by the block syncer.
	CheckpointSyncedExternalID CheckpointKey = "latest_user_id"
)

// PassState is the phase a sync pass is in.
type PassState string

const (
	PassStateIdle           PassState = "idle"
	PassStateComputingRange PassState = "computing_range"
	PassStateFetching       PassState = "fetching"
	PassStateScanning       PassState = "scanning"
	PassStatePersisting     PassState = "persisting"
)
