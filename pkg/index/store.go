package index

import (
	"encoding/binary"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"github.com/hprofgraph/hprofviz/internal/apperrors"
	"github.com/hprofgraph/hprofviz/internal/chunkio"
	"github.com/hprofgraph/hprofviz/pkg/hprof"
)

var (
	bucketObjClass    = []byte("obj-id-class-id")
	bucketObjPrimType = []byte("obj-id-prim-array-type")
	bucketMetadata    = []byte("metadata")
	keyFingerprint    = []byte("fingerprint")
)

// Store is the embedded key-value store backing obj-id -> class-id and
// obj-id -> primitive-array-type lookups, guarded by a fingerprint that
// binds it to the exact hprof it was built from. Lookups are read-only and
// safe for concurrent use by many goroutines: bbolt's MVCC view
// transactions never block each other or a concurrent reader.
type Store struct {
	db *bolt.DB
}

// Open opens an existing index file and verifies its stored fingerprint
// matches want byte-for-byte. A mismatch means the index was built from a
// different hprof (or a different run of the same one with different
// content) and must not be trusted.
func Open(path string, want hprof.Fingerprint) (*Store, error) {
	db, err := bolt.Open(path, 0o644, nil)
	if err != nil {
		return nil, apperrors.IOFailure("open index store", err)
	}

	var got hprof.Fingerprint
	err = db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketMetadata)
		if b == nil {
			return apperrors.IndexInconsistency("index missing metadata bucket")
		}
		raw := b.Get(keyFingerprint)
		if raw == nil {
			return apperrors.IndexInconsistency("index missing stored fingerprint")
		}
		decoded, err := hprof.DecodeFingerprint(raw)
		if err != nil {
			return err
		}
		got = decoded
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	if got != want {
		db.Close()
		return nil, apperrors.FingerprintMismatch(
			fmt.Sprintf("index fingerprint %+v does not match hprof fingerprint %+v", got, want))
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database file.
func (s *Store) Close() error {
	return s.db.Close()
}

// GetClassID returns the class object id for a plain-object or
// reference-array object id, or ok=false if objID is not in the table -
// which is expected for class objects and primitive arrays, which are
// never entered into this table.
func (s *Store) GetClassID(objID uint64) (classID uint64, ok bool, err error) {
	err = s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketObjClass)
		if b == nil {
			return nil
		}
		var keyBuf [8]byte
		binary.BigEndian.PutUint64(keyBuf[:], objID)
		v := b.Get(keyBuf[:])
		if v == nil {
			return nil
		}
		classID = binary.BigEndian.Uint64(v)
		ok = true
		return nil
	})
	if err != nil {
		return 0, false, apperrors.IOFailure("index lookup: class id", err)
	}
	return classID, ok, nil
}

// GetPrimArrayType returns the primitive-array element type code for an
// object id, or ok=false if objID is not a primitive array.
func (s *Store) GetPrimArrayType(objID uint64) (typeCode uint8, ok bool, err error) {
	err = s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketObjPrimType)
		if b == nil {
			return nil
		}
		var keyBuf [8]byte
		binary.BigEndian.PutUint64(keyBuf[:], objID)
		v := b.Get(keyBuf[:])
		if v == nil {
			return nil
		}
		typeCode = v[0]
		ok = true
		return nil
	})
	if err != nil {
		return 0, false, apperrors.IOFailure("index lookup: primitive array type", err)
	}
	return typeCode, ok, nil
}

// bulkLoad inserts the two merged, already-sorted files' contents into
// fresh buckets with Bucket.Put in key order, then records fingerprint.
// Because the merged files are sorted by key and every insert is strictly
// increasing, FillPercent 1.0 lets bbolt pack each leaf page full instead of
// leaving the half-empty pages random insertion would produce.
func bulkLoad(path string, fingerprint hprof.Fingerprint, mergedObjClass, mergedObjPrimType string, compressor *chunkio.Compressor) (*Store, error) {
	db, err := bolt.Open(path, 0o644, nil)
	if err != nil {
		return nil, apperrors.IOFailure("create index store", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		classBucket, err := tx.CreateBucketIfNotExists(bucketObjClass)
		if err != nil {
			return err
		}
		classBucket.FillPercent = 1.0

		r, err := newChunkFileReader(objClassCodec, mergedObjClass, compressor)
		if err != nil {
			return err
		}
		defer r.Close()
		for {
			item, ok, err := r.next()
			if err != nil {
				return err
			}
			if !ok {
				break
			}
			var keyBuf, valBuf [8]byte
			binary.BigEndian.PutUint64(keyBuf[:], item.ObjID)
			binary.BigEndian.PutUint64(valBuf[:], item.ClassID)
			if err := classBucket.Put(keyBuf[:], valBuf[:]); err != nil {
				return err
			}
		}

		primBucket, err := tx.CreateBucketIfNotExists(bucketObjPrimType)
		if err != nil {
			return err
		}
		primBucket.FillPercent = 1.0

		pr, err := newChunkFileReader(objPrimTypeCodec, mergedObjPrimType, compressor)
		if err != nil {
			return err
		}
		defer pr.Close()
		for {
			item, ok, err := pr.next()
			if err != nil {
				return err
			}
			if !ok {
				break
			}
			var keyBuf [8]byte
			binary.BigEndian.PutUint64(keyBuf[:], item.ObjID)
			if err := primBucket.Put(keyBuf[:], []byte{item.TypeCode}); err != nil {
				return err
			}
		}

		metaBucket, err := tx.CreateBucketIfNotExists(bucketMetadata)
		if err != nil {
			return err
		}
		return metaBucket.Put(keyFingerprint, fingerprint.Encode())
	})
	if err != nil {
		db.Close()
		return nil, apperrors.IOFailure("bulk-load index", err)
	}

	return &Store{db: db}, nil
}
