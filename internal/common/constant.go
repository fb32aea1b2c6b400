package common

// UserIDHeaderName is the gRPC metadata key carrying the user id. The id is
// a join key for the per-user document, not a credential.
const UserIDHeaderName = "x-soullink-user"

const (
	// LocalStateKey is the versioned key of the local record. Records under
	// older keys are ignored.
	LocalStateKey = "soullink_data_v11"

	// UserIDKey holds the generated user id in local storage.
	UserIDKey = "soullink_uid"
)
