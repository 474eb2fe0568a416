package cellarkv

// options_file_test.go implements tests for options and the options file.

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aalhour/cellarkv/internal/logging"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	if err := opts.Validate(); err != nil {
		t.Fatalf("default options invalid: %v", err)
	}
	if opts.CacheSize != 64<<20 || opts.KeyBufferSize != 256 || opts.ValueBufferSize != 4096 || opts.MaxEncodedSize != 256<<20 {
		t.Fatalf("unexpected defaults: %+v", opts)
	}
	if opts.Encoding != Encoding(Primitive) || opts.ValueCompression != NoCompression || opts.Backend != BackendFile {
		t.Fatalf("unexpected defaults: %+v", opts)
	}
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Options)
	}{
		{"negative cache", func(o *Options) { o.CacheSize = -1 }},
		{"unknown backend", func(o *Options) { o.Backend = Backend(9) }},
		{"zero key buffer", func(o *Options) { o.KeyBufferSize = 0 }},
		{"zero value buffer", func(o *Options) { o.ValueBufferSize = 0 }},
		{"limit below buffers", func(o *Options) { o.MaxEncodedSize = 100 }},
		{"unknown compression", func(o *Options) { o.ValueCompression = CompressionType(0x42) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.mutate(opts)
			if err := opts.Validate(); !errors.Is(err, ErrInvalidOptions) {
				t.Fatalf("Validate = %v, want ErrInvalidOptions", err)
			}
		})
	}
}

func TestOptionsWithDefaults(t *testing.T) {
	got := (&Options{Backend: BackendInMemory}).withDefaults()
	if got.Encoding == nil || got.KeyBufferSize != 256 || got.ValueBufferSize != 4096 || got.MaxEncodedSize != 256<<20 {
		t.Fatalf("zero fields not defaulted: %+v", got)
	}
	if got.Backend != BackendInMemory {
		t.Fatalf("Backend = %s", got.Backend)
	}
	if logging.IsNil(got.Logger) {
		t.Fatal("Logger not defaulted")
	}
	def := (*Options)(nil).withDefaults()
	if def.CacheSize != 64<<20 || def.Encoding == nil || def.KeyBufferSize != 256 || def.ValueBufferSize != 4096 {
		t.Fatalf("nil options not defaulted: %+v", def)
	}
	if logging.IsNil(def.Logger) {
		t.Fatal("nil options: Logger not defaulted")
	}
}

func TestParseOptionsHuJSON(t *testing.T) {
	data := []byte(`{
  // comments are allowed
  "cache_size": 1048576,
  "backend": "in-memory",
  "encoding": "json",
  "value_compression": "zstd",
  "key_buffer_size": 64,
  "log_level": "debug", // trailing comma too
}`)
	opts, err := ParseOptions(data)
	if err != nil {
		t.Fatalf("ParseOptions: %v", err)
	}
	if opts.CacheSize != 1<<20 || opts.Backend != BackendInMemory || opts.Encoding != Encoding(JSON) {
		t.Fatalf("parsed %+v", opts)
	}
	if opts.ValueCompression != ZstdCompression || opts.KeyBufferSize != 64 || opts.ValueBufferSize != 4096 {
		t.Fatalf("parsed %+v", opts)
	}
	l, ok := opts.Logger.(*logging.DefaultLogger)
	if !ok || l.Level() != logging.LevelDebug {
		t.Fatalf("Logger = %#v", opts.Logger)
	}
}

func TestParseOptionsErrors(t *testing.T) {
	for _, data := range []string{
		`{`,
		`{"unknown_key": 1}`,
		`{"backend": "tape"}`,
		`{"encoding": "msgpack"}`,
		`{"value_compression": "brotli"}`,
		`{"log_level": "loud"}`,
		`{"key_buffer_size": -5}`,
	} {
		if _, err := ParseOptions([]byte(data)); !errors.Is(err, ErrInvalidOptions) {
			t.Errorf("ParseOptions(%s) = %v, want ErrInvalidOptions", data, err)
		}
	}
}

func TestOptionsFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "OPTIONS")

	opts := DefaultOptions()
	opts.CacheSize = 8 << 20
	opts.Backend = BackendInMemory
	opts.Encoding = Proto
	opts.ValueCompression = SnappyCompression
	opts.ValueBufferSize = 1024
	opts.Logger = logging.NewDefaultLogger(logging.LevelInfo)
	if err := WriteOptionsFile(path, opts); err != nil {
		t.Fatalf("WriteOptionsFile: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "//") {
		t.Fatalf("options file lacks its header comment:\n%s", data)
	}

	got, err := ReadOptionsFile(path)
	if err != nil {
		t.Fatalf("ReadOptionsFile: %v", err)
	}
	if got.CacheSize != opts.CacheSize || got.Backend != opts.Backend || got.Encoding != opts.Encoding ||
		got.ValueCompression != opts.ValueCompression || got.ValueBufferSize != opts.ValueBufferSize ||
		got.KeyBufferSize != opts.KeyBufferSize || got.MaxEncodedSize != opts.MaxEncodedSize {
		t.Fatalf("round trip:\n got %+v\nwant %+v", got, opts)
	}
	if l, ok := got.Logger.(*logging.DefaultLogger); !ok || l.Level() != logging.LevelInfo {
		t.Fatalf("Logger = %#v", got.Logger)
	}

	// A database can be created straight from the file.
	db, err := Create("from-options", got)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestWriteOptionsFileErrors(t *testing.T) {
	dir := t.TempDir()
	opts := DefaultOptions()
	opts.Encoding = Compressed(JSON, ZstdCompression)
	if err := WriteOptionsFile(filepath.Join(dir, "OPTIONS"), opts); !errors.Is(err, ErrInvalidOptions) {
		t.Fatalf("WriteOptionsFile custom encoding = %v, want ErrInvalidOptions", err)
	}
	if _, err := ReadOptionsFile(filepath.Join(dir, "missing")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("ReadOptionsFile missing = %v, want os.ErrNotExist", err)
	}
}
