package constants

// Default ingestion configuration values
const (
	DefaultBatchSize        = 100
	DefaultBatchDelayMs     = 1000
	DefaultEventQueueSize   = 256
	DefaultIntervalWindowHr = 24
)

// Default timeout values
const (
	DefaultHTTPTimeoutSec        = 30
	DefaultGracefulShutdownSec   = 30
	DefaultStorageRetryAttempts  = 3
	DefaultBackoffInitialMs      = 500
	DefaultBackoffMaxMs          = 5000
	DefaultServerPort            = 8083
	DefaultServerReadTimeoutSec  = 15
	DefaultServerWriteTimeoutSec = 15
	DefaultServerIdleTimeoutSec  = 60
)

// Encryption settings for the SQLite backend
const (
	EncryptionSecretEnvVar = "TELEREADER_ENCRYPTION_SECRET"
	EncryptionSaltEnvVar   = "TELEREADER_ENCRYPTION_SALT"
	DefaultEncryptionSalt  = "telereader-default-salt-v1"
	PBKDF2Iterations       = 100000
	EncryptionKeySize      = 32
	NonceSize              = 12
)
