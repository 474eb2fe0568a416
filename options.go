package cellarkv

// options.go implements database configuration options.

import (
	"fmt"
	"io"

	"github.com/aalhour/cellarkv/internal/compression"
	"github.com/aalhour/cellarkv/internal/engine"
	"github.com/aalhour/cellarkv/internal/logging"
)

// Logger is an alias for the logging.Logger interface.
// This allows users to pass their own logger implementation.
type Logger = logging.Logger

// LogLevel is an alias for the logging level.
type LogLevel = logging.Level

// Log levels for NewLogger.
const (
	LogLevelError = logging.LevelError
	LogLevelWarn  = logging.LevelWarn
	LogLevelInfo  = logging.LevelInfo
	LogLevelDebug = logging.LevelDebug
)

// NewLogger returns the default logger writing to w at the given level.
func NewLogger(w io.Writer, level LogLevel) Logger {
	return logging.NewLogger(w, level)
}

// DiscardLogger drops every message.
var DiscardLogger Logger = logging.Discard

// CompressionType is an alias for the compression type.
type CompressionType = compression.Type

// Compression type constants
const (
	NoCompression     = compression.NoCompression
	SnappyCompression = compression.SnappyCompression
	ZlibCompression   = compression.ZlibCompression
	LZ4Compression    = compression.LZ4Compression
	LZ4HCCompression  = compression.LZ4HCCompression
	ZstdCompression   = compression.ZstdCompression
)

// Backend selects where the database keeps its data.
type Backend int

const (
	// BackendFile stores the database in a single file.
	BackendFile Backend = iota
	// BackendInMemory keeps the database in memory. Nothing survives Close.
	BackendInMemory
)

// String returns the name used in options files.
func (b Backend) String() string {
	switch b {
	case BackendFile:
		return "file"
	case BackendInMemory:
		return "in-memory"
	default:
		return fmt.Sprintf("Backend(%d)", int(b))
	}
}

func parseBackend(s string) (Backend, error) {
	switch s {
	case "", "file":
		return BackendFile, nil
	case "in-memory", "memory":
		return BackendInMemory, nil
	default:
		return BackendFile, fmt.Errorf("%w: unknown backend %q", ErrInvalidOptions, s)
	}
}

func (b Backend) engine() engine.Backend {
	if b == BackendInMemory {
		return engine.BackendInMemory
	}
	return engine.BackendFile
}

// Durability controls when a write transaction's commit reaches disk.
type Durability int

const (
	// DurabilityImmediate syncs the commit to disk before Commit returns.
	DurabilityImmediate Durability = iota
	// DurabilityEventual writes the commit without waiting for the sync.
	DurabilityEventual
	// DurabilityNone keeps the commit in memory until a later durable
	// commit, Compact, or Close persists it.
	DurabilityNone
)

// String returns the name of the durability level.
func (d Durability) String() string {
	return d.engine().String()
}

func (d Durability) engine() engine.Durability {
	switch d {
	case DurabilityEventual:
		return engine.DurabilityEventual
	case DurabilityNone:
		return engine.DurabilityNone
	default:
		return engine.DurabilityImmediate
	}
}

// Options configures Create and Open.
type Options struct {
	// CacheSize is the initial size of the file's memory map, in bytes.
	// Default: 64MB
	CacheSize int

	// Backend selects file or in-memory storage.
	// Default: BackendFile
	Backend Backend

	// Encoding converts typed keys and values to bytes.
	// Default: Primitive
	Encoding Encoding

	// ValueCompression compresses encoded values of typed tables.
	// Keys are never compressed so that their order is preserved.
	// Default: NoCompression
	ValueCompression CompressionType

	// KeyBufferSize is the first buffer size tried when encoding a key.
	// Default: 256
	KeyBufferSize int

	// ValueBufferSize is the first buffer size tried when encoding a value.
	// Default: 4096
	ValueBufferSize int

	// MaxEncodedSize bounds the encode buffer growth.
	// Default: 256MB
	MaxEncodedSize int

	// Logger is the logger for database operations.
	// If nil, a default logger writing to stderr is used.
	Logger Logger
}

// DefaultOptions returns a new Options with default values.
func DefaultOptions() *Options {
	return &Options{
		CacheSize:        64 * 1024 * 1024, // 64MB
		Backend:          BackendFile,
		Encoding:         Primitive,
		ValueCompression: NoCompression,
		KeyBufferSize:    256,
		ValueBufferSize:  4096,
		MaxEncodedSize:   256 * 1024 * 1024, // 256MB
		Logger:           nil,               // Will use the default logger
	}
}

// Validate reports the first invalid setting.
func (o *Options) Validate() error {
	switch {
	case o.CacheSize < 0:
		return fmt.Errorf("%w: negative cache size %d", ErrInvalidOptions, o.CacheSize)
	case o.Backend != BackendFile && o.Backend != BackendInMemory:
		return fmt.Errorf("%w: unknown backend %d", ErrInvalidOptions, o.Backend)
	case o.KeyBufferSize <= 0:
		return fmt.Errorf("%w: key buffer size must be positive", ErrInvalidOptions)
	case o.ValueBufferSize <= 0:
		return fmt.Errorf("%w: value buffer size must be positive", ErrInvalidOptions)
	case o.MaxEncodedSize < o.KeyBufferSize || o.MaxEncodedSize < o.ValueBufferSize:
		return fmt.Errorf("%w: max encoded size %d is below the initial buffer sizes", ErrInvalidOptions, o.MaxEncodedSize)
	case !o.ValueCompression.IsSupported():
		return fmt.Errorf("%w: unsupported value compression %s", ErrInvalidOptions, o.ValueCompression)
	}
	return nil
}

// withDefaults returns a copy of o with zero fields filled in.
func (o *Options) withDefaults() *Options {
	def := *DefaultOptions()
	out := def
	if o != nil {
		out = *o
	}
	if out.Encoding == nil {
		out.Encoding = def.Encoding
	}
	if out.KeyBufferSize == 0 {
		out.KeyBufferSize = def.KeyBufferSize
	}
	if out.ValueBufferSize == 0 {
		out.ValueBufferSize = def.ValueBufferSize
	}
	if out.MaxEncodedSize == 0 {
		out.MaxEncodedSize = def.MaxEncodedSize
	}
	out.Logger = logging.OrDefault(out.Logger)
	return &out
}
