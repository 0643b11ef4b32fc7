package core

import (
	"errors"
	"time"

	"github.com/mus-format/mus-go"
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// Binary serializers for the records persisted by storage backends.
// Timestamps are stored as UTC Unix microseconds.

// ErrVectorTooLong is returned when a serialized vector length prefix exceeds
// the remaining input.
var ErrVectorTooLong = errors.New("vector length exceeds buffer")

var (
	IDMUS          = idMUS{}
	ItemMUS        = itemMUS{}
	CorpusStampMUS = corpusStampMUS{}
)

var (
	_ mus.Serializer[ID]          = IDMUS
	_ mus.Serializer[Item]        = ItemMUS
	_ mus.Serializer[CorpusStamp] = CorpusStampMUS
)

type idMUS struct{}

func (idMUS) Marshal(v ID, bs []byte) (n int) {
	return varint.Uint64.Marshal(uint64(v), bs)
}

func (idMUS) Unmarshal(bs []byte) (v ID, n int, err error) {
	u, n, err := varint.Uint64.Unmarshal(bs)
	return ID(u), n, err
}

func (idMUS) Size(v ID) (size int) {
	return varint.Uint64.Size(uint64(v))
}

func (idMUS) Skip(bs []byte) (n int, err error) {
	return varint.Uint64.Skip(bs)
}

type itemMUS struct{}

func (itemMUS) Marshal(v Item, bs []byte) (n int) {
	n = IDMUS.Marshal(v.Id, bs)
	n += ord.String.Marshal(v.Code, bs[n:])
	n += ord.String.Marshal(v.Name, bs[n:])
	n += ord.String.Marshal(v.Manufacturer, bs[n:])
	n += ord.String.Marshal(v.Category, bs[n:])
	n += ord.String.Marshal(v.Description, bs[n:])
	n += marshalVector(v.Vector, bs[n:])
	n += marshalTime(v.InsertedAt, bs[n:])
	n += marshalTime(v.UpdatedAt, bs[n:])
	return n
}

func (itemMUS) Unmarshal(bs []byte) (v Item, n int, err error) {
	var n1 int
	if v.Id, n1, err = IDMUS.Unmarshal(bs); err != nil {
		return
	}
	n += n1
	fields := []*string{&v.Code, &v.Name, &v.Manufacturer, &v.Category, &v.Description}
	for _, f := range fields {
		if *f, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
			return
		}
		n += n1
	}
	if v.Vector, n1, err = unmarshalVector(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.InsertedAt, n1, err = unmarshalTime(bs[n:]); err != nil {
		return
	}
	n += n1
	v.UpdatedAt, n1, err = unmarshalTime(bs[n:])
	n += n1
	return
}

func (itemMUS) Size(v Item) (size int) {
	size = IDMUS.Size(v.Id)
	size += ord.String.Size(v.Code)
	size += ord.String.Size(v.Name)
	size += ord.String.Size(v.Manufacturer)
	size += ord.String.Size(v.Category)
	size += ord.String.Size(v.Description)
	size += sizeVector(v.Vector)
	size += sizeTime(v.InsertedAt)
	size += sizeTime(v.UpdatedAt)
	return size
}

func (s itemMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}

type corpusStampMUS struct{}

func (corpusStampMUS) Marshal(v CorpusStamp, bs []byte) (n int) {
	n = ord.String.Marshal(v.Provider, bs)
	n += varint.Int64.Marshal(int64(v.Dimension), bs[n:])
	n += marshalTime(v.UpdatedAt, bs[n:])
	return n
}

func (corpusStampMUS) Unmarshal(bs []byte) (v CorpusStamp, n int, err error) {
	var n1 int
	if v.Provider, n1, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	n += n1
	var dim int64
	if dim, n1, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	v.Dimension = int(dim)
	v.UpdatedAt, n1, err = unmarshalTime(bs[n:])
	n += n1
	return
}

func (corpusStampMUS) Size(v CorpusStamp) (size int) {
	return ord.String.Size(v.Provider) +
		varint.Int64.Size(int64(v.Dimension)) +
		sizeTime(v.UpdatedAt)
}

func (s corpusStampMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}

func marshalVector(vec []float32, bs []byte) (n int) {
	n = varint.Uint64.Marshal(uint64(len(vec)), bs)
	for _, f := range vec {
		n += raw.Float32.Marshal(f, bs[n:])
	}
	return n
}

func unmarshalVector(bs []byte) (vec []float32, n int, err error) {
	length, n, err := varint.Uint64.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	if length == 0 {
		return nil, n, nil
	}
	// Each raw float32 occupies 4 bytes.
	if length > uint64(len(bs)-n)/4 {
		return nil, n, ErrVectorTooLong
	}
	vec = make([]float32, length)
	for i := range vec {
		var n1 int
		if vec[i], n1, err = raw.Float32.Unmarshal(bs[n:]); err != nil {
			return nil, n, err
		}
		n += n1
	}
	return vec, n, nil
}

func sizeVector(vec []float32) (size int) {
	size = varint.Uint64.Size(uint64(len(vec)))
	for _, f := range vec {
		size += raw.Float32.Size(f)
	}
	return size
}

func marshalTime(t time.Time, bs []byte) int {
	return varint.Int64.Marshal(timeToMicros(t), bs)
}

func unmarshalTime(bs []byte) (time.Time, int, error) {
	micros, n, err := varint.Int64.Unmarshal(bs)
	if err != nil {
		return time.Time{}, n, err
	}
	if micros == 0 {
		return time.Time{}, n, nil
	}
	return time.UnixMicro(micros).UTC(), n, nil
}

func sizeTime(t time.Time) int {
	return varint.Int64.Size(timeToMicros(t))
}

func timeToMicros(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMicro()
}
