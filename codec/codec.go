// Package codec adapts BSON libraries to the encode/decode contract the
// round-trip harness times.
package codec

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
)

// Codec converts documents to and from their binary wire form.
type Codec interface {
	Encode(doc bson.D) ([]byte, error)
	Decode(data []byte) (bson.D, error)
}

// Names lists the codecs accepted by New.
func Names() []string {
	return []string{"bson", "raw"}
}

// New returns the codec registered under name.
func New(name string) (Codec, error) {
	switch name {
	case "bson":
		return BSON{}, nil
	case "raw":
		return Raw{}, nil
	default:
		return nil, fmt.Errorf("unknown codec %q", name)
	}
}

// BSON fully decodes every document into a fresh bson.D.
type BSON struct{}

func (BSON) Encode(doc bson.D) ([]byte, error) {
	return bson.Marshal(doc)
}

func (BSON) Decode(data []byte) (bson.D, error) {
	var doc bson.D
	if err := bson.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	return doc, nil
}

// Raw validates the encoded bytes and decodes only the top level; each
// value stays a bson.RawValue that is parsed on access.
type Raw struct{}

func (Raw) Encode(doc bson.D) ([]byte, error) {
	return bson.Marshal(doc)
}

func (Raw) Decode(data []byte) (bson.D, error) {
	raw := bson.Raw(data)
	if err := raw.Validate(); err != nil {
		return nil, err
	}

	elems, err := raw.Elements()
	if err != nil {
		return nil, err
	}

	doc := make(bson.D, 0, len(elems))
	for _, e := range elems {
		doc = append(doc, bson.E{Key: e.Key(), Value: e.Value()})
	}

	return doc, nil
}
