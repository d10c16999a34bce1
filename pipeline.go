package slackfs

import (
	"github.com/sirupsen/logrus"
)

// Pipeline persists payloads as encoded chains. The index is passed in
// explicitly on every call; Store owns one lazily for the common case.
type Pipeline struct {
	Codec  *Codec
	Chains *ChainStore
	Log    logrus.FieldLogger
}

// NewPipeline wires a codec and a chain store over accessor
func NewPipeline(codec *Codec, accessor SlotAccessor, log logrus.FieldLogger) *Pipeline {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Pipeline{
		Codec:  codec,
		Chains: NewChainStore(accessor, log),
		Log:    log.WithField("component", "pipeline"),
	}
}

func checkAvailable(index *SlotIndex) error {
	if index == nil {
		return ErrNilIndex
	}
	if index.TotalCapacity() == 0 {
		return &CapacityError{Message: "index has no usable slots", Unavailable: true}
	}
	return nil
}

// SaveBytes encodes a raw stream and writes it as the chain at root
func (p *Pipeline) SaveBytes(stream []byte, root, password string, index *SlotIndex) error {
	if err := checkAvailable(index); err != nil {
		return err
	}
	encoded, err := p.Codec.EncodeBytes(stream, password)
	if err != nil {
		return err
	}
	p.Log.WithFields(logrus.Fields{
		"original": len(stream),
		"encoded":  len(encoded),
	}).Info("saving stream")
	return p.Chains.Write(encoded, root, index)
}

// LoadBytes reads the chain at root and decodes it back to a raw stream
func (p *Pipeline) LoadBytes(root, password string, index *SlotIndex) ([]byte, error) {
	if index == nil {
		return nil, ErrNilIndex
	}
	encoded, err := p.Chains.Read(root, index)
	if err != nil {
		return nil, err
	}
	stream, err := p.Codec.DecodeBytes(encoded, password)
	if err != nil {
		return nil, err
	}
	p.Log.WithFields(logrus.Fields{
		"encoded":  len(encoded),
		"original": len(stream),
	}).Info("loaded stream")
	return stream, nil
}

// Save serializes and encodes payload, then writes it as the chain at root
func (p *Pipeline) Save(payload any, root, password string, index *SlotIndex) error {
	if err := checkAvailable(index); err != nil {
		return err
	}
	encoded, err := p.Codec.Encode(payload, password)
	if err != nil {
		return err
	}
	p.Log.WithField("encoded", len(encoded)).Info("saving payload")
	return p.Chains.Write(encoded, root, index)
}

// Load reads the chain at root and decodes it into v
func (p *Pipeline) Load(root, password string, index *SlotIndex, v any) error {
	if index == nil {
		return ErrNilIndex
	}
	encoded, err := p.Chains.Read(root, index)
	if err != nil {
		return err
	}
	return p.Codec.Decode(encoded, password, v)
}
