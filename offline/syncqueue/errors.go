package syncqueue

import "errors"

var (
	ErrStoreRequired        = errors.New("syncqueue: store is required")
	ErrConnectivityRequired = errors.New("syncqueue: connectivity provider is required")
	ErrActionTypeRequired   = errors.New("syncqueue: action type is required")
	ErrHandlerRequired      = errors.New("syncqueue: action handler is required")
	ErrPayloadNotJSON       = errors.New("syncqueue: action payload must be valid JSON")
)

// NoNetworkMessage is the error string surfaced in Result.Errors when a
// drain is skipped because the device is offline.
const NoNetworkMessage = "no network connection"
