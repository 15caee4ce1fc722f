package harness

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/weiihann/featherweight/codec"
	"github.com/weiihann/featherweight/dataset"
)

type mockCodec struct {
	mock.Mock
}

func (m *mockCodec) Encode(doc bson.D) ([]byte, error) {
	args := m.Called(doc)
	data, _ := args.Get(0).([]byte)

	return data, args.Error(1)
}

func (m *mockCodec) Decode(data []byte) (bson.D, error) {
	args := m.Called(data)
	doc, _ := args.Get(0).(bson.D)

	return doc, args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testDataset(n int) dataset.Dataset {
	ds := make(dataset.Dataset, n)
	for i := range ds {
		ds[i] = bson.D{{Key: "i", Value: int32(i)}}
	}

	return ds
}

func TestRoundTripOrder(t *testing.T) {
	ds := testDataset(3)
	m := &mockCodec{}

	for i, doc := range ds {
		m.On("Encode", doc).Return([]byte{byte(i)}, nil).Once()
		m.On("Decode", []byte{byte(i)}).Return(doc, nil).Once()
	}

	score, err := NewRunner("order", testLogger()).RoundTrip(ds, m)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, score, 0.0)

	m.AssertExpectations(t)
	require.Len(t, m.Calls, 6)

	for i := range ds {
		enc := m.Calls[2*i]
		dec := m.Calls[2*i+1]

		assert.Equal(t, "Encode", enc.Method)
		assert.Equal(t, ds[i], enc.Arguments.Get(0))
		assert.Equal(t, "Decode", dec.Method)
		assert.Equal(t, []byte{byte(i)}, dec.Arguments.Get(0))
	}
}

func TestRoundTripEncodeFailure(t *testing.T) {
	ds := testDataset(4)
	boom := errors.New("boom")
	m := &mockCodec{}

	m.On("Encode", ds[0]).Return([]byte{0}, nil)
	m.On("Decode", []byte{0}).Return(ds[0], nil)
	m.On("Encode", ds[1]).Return(nil, boom)

	_, err := NewRunner("fail", testLogger()).RoundTrip(ds, m)
	require.Error(t, err)

	var cerr *CodecError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, 1, cerr.Index)
	assert.Equal(t, "encode", cerr.Op)
	assert.ErrorIs(t, err, boom)

	m.AssertNumberOfCalls(t, "Encode", 2)
	m.AssertNumberOfCalls(t, "Decode", 1)
	m.AssertNotCalled(t, "Encode", ds[2])
	m.AssertNotCalled(t, "Encode", ds[3])
}

func TestRoundTripDecodeFailure(t *testing.T) {
	ds := testDataset(2)
	m := &mockCodec{}

	m.On("Encode", mock.Anything).Return([]byte{9}, nil)
	m.On("Decode", mock.Anything).Return(nil, errors.New("corrupt"))

	_, err := NewRunner("fail", testLogger()).RoundTrip(ds, m)

	var cerr *CodecError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, 0, cerr.Index)
	assert.Equal(t, "decode", cerr.Op)
	m.AssertNumberOfCalls(t, "Encode", 1)
}

func TestRoundTripEmptyDataset(t *testing.T) {
	m := &mockCodec{}

	score, err := NewRunner("empty", testLogger()).RoundTrip(nil, m)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, score, 0.0)
	m.AssertNotCalled(t, "Encode", mock.Anything)
}

func TestRunRepetitions(t *testing.T) {
	ds := testDataset(5)
	m := &mockCodec{}

	m.On("Encode", mock.Anything).Return([]byte{1}, nil)
	m.On("Decode", mock.Anything).Return(bson.D{}, nil)

	scores, err := NewRunner("reps", testLogger()).Run(
		context.Background(), ds, m, RunConfig{Repetitions: 3, Warmup: 1},
	)
	require.NoError(t, err)
	assert.Len(t, scores, 3)

	for _, s := range scores {
		assert.GreaterOrEqual(t, s, 0.0)
	}

	m.AssertNumberOfCalls(t, "Encode", 4*len(ds))
	m.AssertNumberOfCalls(t, "Decode", 4*len(ds))
}

func TestRunInvalidRepetitions(t *testing.T) {
	_, err := NewRunner("none", testLogger()).Run(
		context.Background(), testDataset(1), &mockCodec{}, RunConfig{},
	)
	assert.ErrorIs(t, err, ErrInvalidRepetitions)
}

func TestRunAbortsOnCodecError(t *testing.T) {
	ds := testDataset(3)
	m := &mockCodec{}

	m.On("Encode", mock.Anything).Return([]byte{1}, nil)
	m.On("Decode", mock.Anything).Return(nil, errors.New("bad")).Once()

	_, err := NewRunner("abort", testLogger()).Run(
		context.Background(), ds, m, RunConfig{Repetitions: 2},
	)

	var cerr *CodecError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, 0, cerr.Index)
	m.AssertNumberOfCalls(t, "Encode", 1)
}

func TestRunWithBSONCodec(t *testing.T) {
	ds := dataset.Dataset{
		{{Key: "a", Value: int32(1)}},
		{{Key: "b", Value: bson.D{{Key: "c", Value: "deep"}}}},
	}

	scores, err := NewRunner("bson", testLogger()).Run(
		context.Background(), ds, codec.BSON{}, RunConfig{Repetitions: 2},
	)
	require.NoError(t, err)
	assert.Len(t, scores, 2)
}

func TestResultFailed(t *testing.T) {
	assert.False(t, Result{Scenario: "ok"}.Failed())
	assert.True(t, Result{Scenario: "bad", Error: "boom"}.Failed())
}
