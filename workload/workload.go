// Package workload generates deterministic BSON datasets for the
// featherweight scenarios: flat documents of scalar fields, deeply nested
// documents, and documents carrying every BSON value kind.
package workload

import (
	"fmt"
	"math"
	mrand "math/rand"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/weiihann/featherweight/dataset"
)

// Dataset shapes accepted by Generate.
const (
	KindFlat = "flat"
	KindDeep = "deep"
	KindFull = "full"
)

// Kinds lists the dataset shapes in suite order.
func Kinds() []string {
	return []string{KindFlat, KindDeep, KindFull}
}

// FileName returns the conventional dataset file name for kind.
func FileName(kind string) string {
	switch kind {
	case KindFlat:
		return "FLAT_BSON.txt"
	case KindDeep:
		return "DEEP_BSON.txt"
	case KindFull:
		return "FULL_BSON.txt"
	default:
		return kind + ".txt"
	}
}

// Config controls dataset generation.
type Config struct {
	Documents int
	Fields    int
	Depth     int
	Seed      int64
}

// Generator produces deterministic datasets from a Config.
type Generator struct {
	cfg Config
	rng *mrand.Rand
}

// NewGenerator creates a Generator from the given Config.
func NewGenerator(cfg Config) *Generator {
	return &Generator{
		cfg: cfg,
		rng: mrand.New(mrand.NewSource(cfg.Seed)),
	}
}

// Generate returns cfg.Documents documents of the given kind.
func (g *Generator) Generate(kind string) (dataset.Dataset, error) {
	var build func(i int) bson.D

	switch kind {
	case KindFlat:
		build = g.flatDocument
	case KindDeep:
		build = g.deepDocument
	case KindFull:
		build = g.fullDocument
	default:
		return nil, fmt.Errorf("unknown dataset kind %q", kind)
	}

	ds := make(dataset.Dataset, 0, g.cfg.Documents)
	for i := 0; i < g.cfg.Documents; i++ {
		ds = append(ds, build(i))
	}

	return ds, nil
}

func (g *Generator) flatDocument(i int) bson.D {
	doc := make(bson.D, 0, g.cfg.Fields+1)
	doc = append(doc, bson.E{Key: "_id", Value: int64(i)})

	for f := 0; f < g.cfg.Fields; f++ {
		doc = append(doc, bson.E{
			Key:   fmt.Sprintf("%s%d", g.randomWord(), f),
			Value: g.scalar(f),
		})
	}

	return doc
}

func (g *Generator) deepDocument(i int) bson.D {
	doc := bson.D{{Key: "_id", Value: int64(i)}}

	return append(doc, bson.E{Key: "root", Value: g.nested(g.cfg.Depth)})
}

func (g *Generator) nested(depth int) bson.D {
	doc := bson.D{
		{Key: "depth", Value: int32(depth)},
		{Key: g.randomWord(), Value: g.randomWord()},
		{Key: g.randomWord(), Value: g.rng.Int31()},
	}

	if depth <= 0 {
		return doc
	}

	return append(doc,
		bson.E{Key: "child", Value: g.nested(depth - 1)},
		bson.E{Key: "siblings", Value: bson.A{
			g.rng.Float64(),
			bson.D{{Key: "leaf", Value: g.randomWord()}},
		}},
	)
}

func (g *Generator) fullDocument(i int) bson.D {
	return bson.D{
		{Key: "_id", Value: g.objectID()},
		{Key: "seq", Value: int64(i)},
		{Key: "int32", Value: g.rng.Int31()},
		{Key: "int64", Value: g.rng.Int63()},
		{Key: "double", Value: g.rng.NormFloat64() * 1000},
		{Key: "string", Value: g.randomWord()},
		{Key: "bool", Value: g.rng.Intn(2) == 1},
		{Key: "null", Value: nil},
		{Key: "date", Value: g.dateTime()},
		{Key: "binary", Value: primitive.Binary{Subtype: 0x00, Data: g.randomBytes(16)}},
		{Key: "uuid", Value: primitive.Binary{Subtype: 0x04, Data: g.randomBytes(16)}},
		{Key: "decimal", Value: g.decimal()},
		{Key: "regex", Value: primitive.Regex{Pattern: "^" + g.randomWord(), Options: "i"}},
		{Key: "timestamp", Value: primitive.Timestamp{T: uint32(g.rng.Int31()), I: 1}},
		{Key: "code", Value: primitive.JavaScript("function() { return 1; }")},
		{Key: "minkey", Value: primitive.MinKey{}},
		{Key: "maxkey", Value: primitive.MaxKey{}},
		{Key: "array", Value: bson.A{g.rng.Int31(), g.randomWord(), g.rng.Float64()}},
		{Key: "document", Value: bson.D{{Key: "k", Value: g.randomWord()}}},
	}
}

func (g *Generator) scalar(field int) any {
	switch field % 5 {
	case 0:
		return g.randomWord()
	case 1:
		return g.rng.Int31()
	case 2:
		return g.rng.Int63()
	case 3:
		return math.Round(g.rng.Float64()*1e6) / 1e3
	default:
		return g.rng.Intn(2) == 1
	}
}

const letters = "abcdefghijklmnopqrstuvwxyz"

func (g *Generator) randomWord() string {
	n := 3 + g.rng.Intn(8)
	buf := make([]byte, n)

	for i := range buf {
		buf[i] = letters[g.rng.Intn(len(letters))]
	}

	return string(buf)
}

func (g *Generator) randomBytes(n int) []byte {
	buf := make([]byte, n)
	g.rng.Read(buf)

	return buf
}

func (g *Generator) objectID() primitive.ObjectID {
	var id primitive.ObjectID
	g.rng.Read(id[:])

	return id
}

func (g *Generator) decimal() primitive.Decimal128 {
	d, err := primitive.ParseDecimal128(
		fmt.Sprintf("%d.%04d", g.rng.Intn(1_000_000), g.rng.Intn(10_000)),
	)
	if err != nil {
		return primitive.NewDecimal128(0, 0)
	}

	return d
}

func (g *Generator) dateTime() primitive.DateTime {
	base := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	offset := time.Duration(g.rng.Int63n(int64(30*365*24*time.Hour/time.Millisecond))) *
		time.Millisecond

	return primitive.NewDateTimeFromTime(base.Add(offset))
}
