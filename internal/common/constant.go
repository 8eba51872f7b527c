package common

// Defaults for the storage pipeline. All of them can be overridden
// through the server configuration.
const (
	// DefaultMaxObjectSize is the largest payload accepted by StoreFile.
	DefaultMaxObjectSize int64 = 100 << 20 // 100 MiB

	// DefaultCompressionThreshold is the minimum payload size, in bytes,
	// at which compression is applied when requested.
	DefaultCompressionThreshold int64 = 1 << 10 // 1 KiB

	// DefaultMaxVersions bounds the per-item version history when the
	// item does not belong to a vault with its own setting.
	DefaultMaxVersions = 10

	// AlgorithmAESGCM is the identifier recorded on items and keys
	// encrypted with AES-256-GCM.
	AlgorithmAESGCM = "AES-256-GCM"
)
