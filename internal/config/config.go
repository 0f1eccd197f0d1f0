// Package config carries the segment manager's compile-time parameters
// as runtime-loaded values: segment size, header size, and the free pool
// shrink threshold. Loading a config file is an external collaborator's
// job, not the segment manager's own, but the Config type and its
// validated defaults are what the manager is built against, so they
// live here rather than as untyped constants.
package config

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the segment manager's tunables.
type Config struct {
	// SegSize is the fixed wire size of a segment, header included.
	SegSize int `yaml:"seg_size"`
	// SegHeaderSize is the size, in bytes, of the in-band header. The
	// wire format fixes this at 20. Only SegPayloadSize reads this field;
	// the header codec and the manager's payload offsets always use
	// segment.HeaderSize, so a value other than 20 does not describe a
	// working layout.
	SegHeaderSize int `yaml:"seg_header_size"`
	// SegFreeThreshold bounds the free pool; once exceeded, the pool is
	// shrunk to half this value.
	SegFreeThreshold int `yaml:"seg_free_threshold"`
}

// DefaultConfig returns the module's default parameters: a 1024-byte
// segment, a 20-byte header, and a free pool capped at 256 idle segments.
func DefaultConfig() Config {
	return Config{
		SegSize:          1024,
		SegHeaderSize:    20,
		SegFreeThreshold: 256,
	}
}

// SegPayloadSize returns the number of payload bytes a single segment
// can carry once the header is accounted for.
func (c Config) SegPayloadSize() int {
	return c.SegSize - c.SegHeaderSize
}

// Validate checks that the configuration describes a usable segment
// layout.
func (c Config) Validate() error {
	if c.SegHeaderSize <= 0 {
		return fmt.Errorf("config: seg_header_size must be positive, got %d", c.SegHeaderSize)
	}
	if c.SegSize <= c.SegHeaderSize {
		return fmt.Errorf("config: seg_size (%d) must exceed seg_header_size (%d)", c.SegSize, c.SegHeaderSize)
	}
	if c.SegFreeThreshold <= 0 {
		return fmt.Errorf("config: seg_free_threshold must be positive, got %d", c.SegFreeThreshold)
	}
	return nil
}

// Load parses a YAML configuration from r, keeping the DefaultConfig value
// for any field the YAML omits, then validates it. A field written
// explicitly as 0 stays 0 and fails validation.
func Load(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile opens path and delegates to Load.
func LoadFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()
	return Load(f)
}
