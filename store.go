package slackfs

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Store is a covert store rooted at one slot. It owns the slot index,
// building it on first use and rebuilding it on request.
//
// A Store assumes a single writer: nothing guards the slot pool against
// other processes or concurrent calls.
type Store struct {
	accessor SlotAccessor
	config   Config
	codec    *Codec
	pipeline *Pipeline
	log      logrus.FieldLogger

	index *SlotIndex
}

// New creates a store over accessor
func New(accessor SlotAccessor, config *Config) (*Store, error) {
	if accessor == nil {
		return nil, ErrNilAccessor
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	codec, err := NewCodec(config.Codec)
	if err != nil {
		return nil, err
	}

	cfg := *config
	cfg.CandidateRoots = append([]string(nil), config.CandidateRoots...)
	log := cfg.logger()

	return &Store{
		accessor: accessor,
		config:   cfg,
		codec:    codec,
		pipeline: NewPipeline(codec, accessor, log),
		log:      log.WithField("root", cfg.RootSlot),
	}, nil
}

// Config returns a copy of the store configuration
func (s *Store) Config() Config {
	cfg := s.config
	cfg.CandidateRoots = append([]string(nil), s.config.CandidateRoots...)
	return cfg
}

// Codec returns the codec the store encodes with
func (s *Store) Codec() *Codec {
	return s.codec
}

// Accessor returns the slot accessor the store runs on
func (s *Store) Accessor() SlotAccessor {
	return s.accessor
}

// Index returns the slot index, building it on first use
func (s *Store) Index() (*SlotIndex, error) {
	if s.index != nil {
		return s.index, nil
	}
	return s.Rebuild()
}

// Rebuild scans the candidate roots again and replaces the index
func (s *Store) Rebuild() (*SlotIndex, error) {
	index, err := BuildIndex(s.accessor, s.config.CandidateRoots, s.config.MinIdleDays,
		WithIndexLogger(s.config.logger()), WithParallel(s.config.Parallel))
	if err != nil {
		return nil, err
	}
	s.index = index
	return index, nil
}

// Reconfigure changes the candidate roots and idle threshold. The index is
// dropped and rebuilt on next use.
func (s *Store) Reconfigure(roots []string, minIdleDays int) error {
	if minIdleDays < 0 {
		return NewValidationError("min_idle_days", minIdleDays, "cannot be negative")
	}
	s.config.CandidateRoots = append([]string(nil), roots...)
	s.config.MinIdleDays = minIdleDays
	s.index = nil
	return nil
}

// Total summarizes the usable capacity of the index
func (s *Store) Total() (string, error) {
	index, err := s.Index()
	if err != nil {
		return "", err
	}
	return index.Summary(), nil
}

// Save encodes payload and writes it to the root chain
func (s *Store) Save(payload any, password string) error {
	index, err := s.Index()
	if err != nil {
		return err
	}
	return s.pipeline.Save(payload, s.config.RootSlot, password, index)
}

// Load reads the root chain and decodes it into v
func (s *Store) Load(password string, v any) error {
	index, err := s.Index()
	if err != nil {
		return err
	}
	return s.pipeline.Load(s.config.RootSlot, password, index, v)
}

// SaveBytes stores a raw byte stream without serializing it
func (s *Store) SaveBytes(stream []byte, password string) error {
	index, err := s.Index()
	if err != nil {
		return err
	}
	return s.pipeline.SaveBytes(stream, s.config.RootSlot, password, index)
}

// LoadBytes returns the raw byte stream stored with SaveBytes
func (s *Store) LoadBytes(password string) ([]byte, error) {
	index, err := s.Index()
	if err != nil {
		return nil, err
	}
	return s.pipeline.LoadBytes(s.config.RootSlot, password, index)
}

// SaveTree persists a virtual filesystem tree
func (s *Store) SaveTree(tree *Tree, password string) error {
	return s.Save(tree.Root, password)
}

// LoadTree restores the tree saved with SaveTree
func (s *Store) LoadTree(password string) (*Tree, error) {
	var root Node
	if err := s.Load(password, &root); err != nil {
		return nil, err
	}
	if root.Kind != KindDir {
		return nil, newDecodeError("deserialize", fmt.Errorf("stored root is a %s", root.Kind))
	}
	if err := checkNode("/", &root); err != nil {
		return nil, newDecodeError("deserialize", err)
	}
	return treeFromRoot(&root), nil
}

// Init replaces whatever the root chain holds with an empty tree
func (s *Store) Init(password string) (*Tree, error) {
	tree := NewTree()
	if err := s.SaveTree(tree, password); err != nil {
		return nil, err
	}
	return tree, nil
}
