// Copyright (C) 2026 Meadow authors.
// All rights reserved. This file is part of the meadow module.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package store

import (
	"encoding/binary"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/quietlychris/meadow-sub000/pkg/merrors"
)

// keyLen is an 8-byte big-endian microsecond timestamp plus an 8-byte
// per-bucket insertion sequence, so keys sort lexicographically in the same
// order records were inserted even when two records share a timestamp.
const keyLen = 16

// BoltStore persists each topic as its own bbolt bucket, keyed by a
// sortable timestamp+sequence byte string. This is the Go analog of the
// original design's per-topic sled tree.
type BoltStore struct {
	db *bolt.DB
}

// Open creates or opens a bbolt-backed store at path.
func Open(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, merrors.Wrap(merrors.KindOpeningStore, "open bbolt database", err)
	}
	return &BoltStore{db: db}, nil
}

func makeKey(t time.Time, seq uint64) []byte {
	key := make([]byte, keyLen)
	micros := t.UnixMicro()
	if micros < 0 {
		micros = 0
	}
	// Fixed-width big-endian encoding keeps byte-lexicographic order equal
	// to numeric order for any non-negative timestamp.
	binary.BigEndian.PutUint64(key[0:8], uint64(micros))
	binary.BigEndian.PutUint64(key[8:16], seq)
	return key
}

func (s *BoltStore) Insert(topic string, t time.Time, dataType string, data []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(topic))
		if err != nil {
			return merrors.Wrap(merrors.KindStoreUnavailable, "create topic bucket", err)
		}
		seq, err := b.NextSequence()
		if err != nil {
			return merrors.Wrap(merrors.KindStoreUnavailable, "allocate sequence", err)
		}
		key := makeKey(t, seq)
		if err := b.Put(key, encodeValue(dataType, data)); err != nil {
			return merrors.Wrap(merrors.KindStoreUnavailable, "put record", err)
		}
		return nil
	})
}

// encodeValue prefixes data with a length-delimited data-type tag so a
// record's original payload type is recoverable on read, without needing a
// second bucket or index.
func encodeValue(dataType string, data []byte) []byte {
	buf := make([]byte, 2+len(dataType)+len(data))
	binary.BigEndian.PutUint16(buf[0:2], uint16(len(dataType)))
	copy(buf[2:2+len(dataType)], dataType)
	copy(buf[2+len(dataType):], data)
	return buf
}

func decodeValue(buf []byte) (dataType string, data []byte) {
	if len(buf) < 2 {
		return "", nil
	}
	n := binary.BigEndian.Uint16(buf[0:2])
	dataType = string(buf[2 : 2+n])
	data = append([]byte(nil), buf[2+n:]...)
	return dataType, data
}

func decodeKeyTime(key []byte) time.Time {
	micros := int64(binary.BigEndian.Uint64(key[0:8]))
	return time.UnixMicro(micros)
}

func (s *BoltStore) Last(topic string) (Record, error) {
	return s.NthBack(topic, 0)
}

func (s *BoltStore) NthBack(topic string, n int64) (Record, error) {
	if n < 0 {
		return Record{}, merrors.New(merrors.KindGetFailure, "n must be non-negative")
	}

	var rec Record
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(topic))
		if b == nil {
			return merrors.New(merrors.KindNonExistentTopic, topic)
		}
		c := b.Cursor()
		key, val := c.Last()
		if key == nil {
			return merrors.New(merrors.KindNoNthValue, topic)
		}
		for i := int64(0); i < n; i++ {
			key, val = c.Prev()
			if key == nil {
				return merrors.New(merrors.KindNoNthValue, topic)
			}
		}
		dataType, data := decodeValue(val)
		rec = Record{Time: decodeKeyTime(key), DataType: dataType, Data: data}
		return nil
	})
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (s *BoltStore) Topics() ([]string, error) {
	var topics []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.ForEach(func(name []byte, _ *bolt.Bucket) error {
			topics = append(topics, string(name))
			return nil
		})
	})
	if err != nil {
		return nil, merrors.Wrap(merrors.KindStoreUnavailable, "enumerate topics", err)
	}
	// bbolt has no hidden default bucket the way sled does, so there is
	// nothing to filter out; sorting alone satisfies the ordering guarantee.
	sort.Strings(topics)
	return topics, nil
}

func (s *BoltStore) Close() error {
	if err := s.db.Close(); err != nil {
		return merrors.Wrap(merrors.KindStoreUnavailable, "close bbolt database", err)
	}
	return nil
}
