package slackfs

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// LegacyCandidateRoots are the directories slackdisk scans by default
var LegacyCandidateRoots = []string{"/bin", "/etc", "/home", "/lib", "/lib32", "/lib64", "/opt", "/root"}

const (
	// LegacyMinIdleDays skips files touched within the last 100 days
	LegacyMinIdleDays = 100

	// LegacyRootSlot is the host file holding the first fragment
	LegacyRootSlot = "/bin/bash"
)

// DefaultConfig returns the settings legacy slackdisk stores were written
// with.
func DefaultConfig() *Config {
	return &Config{
		CandidateRoots: append([]string(nil), LegacyCandidateRoots...),
		MinIdleDays:    LegacyMinIdleDays,
		RootSlot:       LegacyRootSlot,
		BmapPath:       "bmap",
		BlockSize:      DefaultBlockSize,
		Codec:          DefaultCodecConfig(),
		Parallel:       DefaultParallelConfig(),
	}
}

// ParseConfig reads YAML over the defaults. Keys left out keep their
// default value; unknown keys are rejected.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig reads a YAML config file. An empty path returns the defaults.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Marshal renders the config as a YAML document
func (c *Config) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
