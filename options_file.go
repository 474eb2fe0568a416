package cellarkv

// options_file.go implements options file persistence.
//
// The options file is HuJSON: JSON that also allows comments and trailing
// commas, so it can be edited by hand. Unknown keys are rejected.
//
// Example:
//
//	{
//	  // 128MB memory map
//	  "cache_size": 134217728,
//	  "backend": "file",
//	  "encoding": "json",
//	  "value_compression": "zstd",
//	  "log_level": "info",
//	}

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/natefinch/atomic"
	"github.com/tailscale/hujson"

	"github.com/aalhour/cellarkv/internal/compression"
	"github.com/aalhour/cellarkv/internal/logging"
)

const optionsFileHeader = "// cellarkv options file. Comments and trailing commas are allowed.\n"

type optionsFile struct {
	CacheSize        *int   `json:"cache_size,omitempty"`
	Backend          string `json:"backend,omitempty"`
	Encoding         string `json:"encoding,omitempty"`
	ValueCompression string `json:"value_compression,omitempty"`
	KeyBufferSize    int    `json:"key_buffer_size,omitempty"`
	ValueBufferSize  int    `json:"value_buffer_size,omitempty"`
	MaxEncodedSize   int    `json:"max_encoded_size,omitempty"`
	LogLevel         string `json:"log_level,omitempty"`
}

// ReadOptionsFile loads options from a HuJSON file. Settings missing from
// the file keep their DefaultOptions values.
func ReadOptionsFile(path string) (*Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read options file: %w", err)
	}
	opts, err := ParseOptions(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return opts, nil
}

// ParseOptions parses the contents of an options file.
func ParseOptions(data []byte) (*Options, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid HuJSON: %w", ErrInvalidOptions, err)
	}
	var f optionsFile
	dec := json.NewDecoder(bytes.NewReader(standardized))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOptions, err)
	}

	opts := DefaultOptions()
	if f.CacheSize != nil {
		opts.CacheSize = *f.CacheSize
	}
	if opts.Backend, err = parseBackend(f.Backend); err != nil {
		return nil, err
	}
	if f.Encoding != "" {
		if opts.Encoding, err = EncodingByName(f.Encoding); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidOptions, err)
		}
	}
	if opts.ValueCompression, err = compression.ParseType(f.ValueCompression); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOptions, err)
	}
	if f.KeyBufferSize != 0 {
		opts.KeyBufferSize = f.KeyBufferSize
	}
	if f.ValueBufferSize != 0 {
		opts.ValueBufferSize = f.ValueBufferSize
	}
	if f.MaxEncodedSize != 0 {
		opts.MaxEncodedSize = f.MaxEncodedSize
	}
	if f.LogLevel != "" {
		level, err := logging.ParseLevel(f.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidOptions, err)
		}
		opts.Logger = logging.NewDefaultLogger(level)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	logging.OrDefault(opts.Logger).Debugf("%sparsed options: backend=%s encoding=%s compression=%s",
		logging.NSOptions, opts.Backend, f.Encoding, opts.ValueCompression.Name())
	return opts, nil
}

// WriteOptionsFile stores opts as a HuJSON file, replacing path atomically.
// Custom encodings and loggers other than the default logger cannot be
// represented; the encoding is rejected and the logger is skipped.
func WriteOptionsFile(path string, opts *Options) error {
	if opts == nil {
		opts = DefaultOptions()
	}
	if err := opts.Validate(); err != nil {
		return err
	}
	f := optionsFile{
		CacheSize:        &opts.CacheSize,
		Backend:          opts.Backend.String(),
		ValueCompression: opts.ValueCompression.Name(),
		KeyBufferSize:    opts.KeyBufferSize,
		ValueBufferSize:  opts.ValueBufferSize,
		MaxEncodedSize:   opts.MaxEncodedSize,
	}
	if opts.Encoding != nil {
		name, ok := encodingName(opts.Encoding)
		if !ok {
			return fmt.Errorf("%w: encoding %T has no options file name", ErrInvalidOptions, opts.Encoding)
		}
		f.Encoding = name
	}
	if l, ok := opts.Logger.(*logging.DefaultLogger); ok && l != nil {
		f.LogLevel = l.Level().String()
	}

	body, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal options: %w", err)
	}
	data := append([]byte(optionsFileHeader), body...)
	data = append(data, '\n')

	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write options file: %w", err)
	}
	return nil
}
