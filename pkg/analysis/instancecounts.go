// Package analysis implements the non-graph heap-dump analyzers: the
// parallel instance-counts reduction, the non-parallel object-dump walk,
// and the class-hierarchy query.
package analysis

import (
	"context"
	"sort"
	"sync"

	"github.com/hprofgraph/hprofviz/internal/parallel"
	"github.com/hprofgraph/hprofviz/pkg/hprof"
)

// InstanceCountRow is one output row of the instance-counts analyzer.
// PerInstanceSizeBytes and TotalBytes are only known when at least one
// Class sub-record for ClassObjID was observed in the dump; SizeKnown is false
// otherwise and those columns render blank.
type InstanceCountRow struct {
	ClassObjID           hprof.Id
	ClassName            string
	Count                uint64
	SizeKnown            bool
	PerInstanceSizeBytes uint32
	TotalBytes           uint64
}

// RowWriter is the generic output seam instance-counts rows are emitted
// through; internal/csvwriter is the one concrete implementation shipped.
type RowWriter interface {
	WriteRow(InstanceCountRow) error
	Flush() error
}

// instanceCountsState is one worker's (or one record's) partial
// contribution to the reduction: the metadata this record taught us, plus
// counters local to it. Combining two states unions the metadata maps
// (duplicate keys keep either side, since the same Utf8/LoadClass/Class
// record can never disagree with itself across records) and sums the
// counters.
type instanceCountsState struct {
	utf8      map[hprof.Id]string
	loadClass map[hprof.Id]hprof.Id // class obj id -> name id
	classes   map[hprof.Id]hprof.Class
	instances map[hprof.Id]uint64 // class obj id -> count
	primArrays map[hprof.PrimitiveArrayType]uint64
}

func newInstanceCountsState() *instanceCountsState {
	return &instanceCountsState{
		utf8:       make(map[hprof.Id]string),
		loadClass:  make(map[hprof.Id]hprof.Id),
		classes:    make(map[hprof.Id]hprof.Class),
		instances:  make(map[hprof.Id]uint64),
		primArrays: make(map[hprof.PrimitiveArrayType]uint64),
	}
}

func (s *instanceCountsState) mergeInto(total *instanceCountsState) {
	for k, v := range s.utf8 {
		total.utf8[k] = v
	}
	for k, v := range s.loadClass {
		total.loadClass[k] = v
	}
	for k, v := range s.classes {
		total.classes[k] = v
	}
	for k, v := range s.instances {
		total.instances[k] += v
	}
	for k, v := range s.primArrays {
		total.primArrays[k] += v
	}
}

// Config controls the instance-counts reduction's parallelism.
type Config struct {
	Workers parallel.Config
}

// DefaultConfig returns the default instance-counts configuration.
func DefaultConfig() Config {
	return Config{Workers: parallel.DefaultConfig()}
}

// InstanceCounts runs the parallel per-class instance-count reduction over
// buf and writes the resulting rows, sorted by count descending, to w.
func InstanceCounts(ctx context.Context, buf []byte, cfg Config, w RowWriter) error {
	header, recordStream, err := hprof.ParseHeader(buf)
	if err != nil {
		return err
	}
	headerLen := int64(len(buf) - len(recordStream))

	total := newInstanceCountsState()
	var mu sync.Mutex

	it := hprof.NewRecordIterator(recordStream, header.IDSize, headerLen)
	bridge := parallel.NewRecordBridge(cfg.Workers, func() (hprof.Record, bool, error) {
		return it.Next()
	})

	err = bridge.Run(ctx, func(_ context.Context, r hprof.Record) error {
		local, err := partialInstanceCounts(r)
		if err != nil {
			return err
		}
		mu.Lock()
		local.mergeInto(total)
		mu.Unlock()
		return nil
	})
	if err != nil {
		return err
	}

	rows := buildRows(total)
	for _, row := range rows {
		if err := w.WriteRow(row); err != nil {
			return err
		}
	}
	return w.Flush()
}

func partialInstanceCounts(r hprof.Record) (*instanceCountsState, error) {
	s := newInstanceCountsState()

	switch r.Tag {
	case hprof.TagUtf8:
		u, _, err := r.AsUtf8()
		if err != nil {
			return nil, err
		}
		s.utf8[u.NameID] = u.Text()
		return s, nil

	case hprof.TagLoadClass:
		lc, _, err := r.AsLoadClass()
		if err != nil {
			return nil, err
		}
		s.loadClass[lc.ClassObjectID] = lc.ClassNameID
		return s, nil
	}

	if !r.IsHeapDumpEnvelope() {
		return s, nil
	}

	subIt := r.SubRecords()
	for {
		sr, ok, err := subIt.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		switch sr.Tag {
		case hprof.HeapTagClass:
			s.classes[sr.Class.ObjID] = sr.Class
		case hprof.HeapTagInstance:
			s.instances[sr.Instance.ClassObjID]++
		case hprof.HeapTagObjectArray:
			s.instances[sr.ObjectArray.ArrayClassObjID]++
		case hprof.HeapTagPrimitiveArray:
			s.primArrays[sr.PrimitiveArray.ElementType]++
		}
	}
	return s, nil
}

func buildRows(total *instanceCountsState) []InstanceCountRow {
	rows := make([]InstanceCountRow, 0, len(total.instances))
	for classObjID, count := range total.instances {
		row := InstanceCountRow{ClassObjID: classObjID, Count: count}
		row.ClassName = resolveClassName(total, classObjID)
		if c, ok := total.classes[classObjID]; ok {
			row.SizeKnown = true
			row.PerInstanceSizeBytes = c.InstanceSizeBytes
			row.TotalBytes = count * uint64(c.InstanceSizeBytes)
		}
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].ClassObjID < rows[j].ClassObjID
	})
	return rows
}

func resolveClassName(total *instanceCountsState, classObjID hprof.Id) string {
	nameID, ok := total.loadClass[classObjID]
	if !ok {
		return "(unknown class)"
	}
	name, ok := total.utf8[nameID]
	if !ok {
		return "(utf8 not found)"
	}
	return name
}
