package index

import (
	"container/heap"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/hprofgraph/hprofviz/internal/apperrors"
	"github.com/hprofgraph/hprofviz/internal/chunkio"
)

// mergeFanIn bounds how many sorted files one merge round combines.
// Throughput falls off steeply past single digits of sources (more
// simultaneously-open files means more seeks competing for the same
// disk), so a few rounds of 8-way merges beats one large many-way merge.
const mergeFanIn = 8

// mergeChunks repeatedly merges the sorted chunk files under chunksDir,
// mergeFanIn at a time in parallel, until exactly one globally sorted file
// remains, which it returns the path to. mergeRootDir holds each round's
// intermediate output in its own numbered subdirectory.
func mergeChunks[T any](codec Codec[T], chunksDir, mergeRootDir string, compressor *chunkio.Compressor) (string, error) {
	files, err := listFiles(chunksDir)
	if err != nil {
		return "", err
	}
	if len(files) == 0 {
		return "", fmt.Errorf("index: no chunk files to merge under %s", chunksDir)
	}

	round := 0
	for {
		if len(files) == 1 {
			return files[0], nil
		}

		roundDir := filepath.Join(mergeRootDir, fmt.Sprintf("%02d", round))
		if err := os.MkdirAll(roundDir, 0o755); err != nil {
			return "", fmt.Errorf("index: create merge round dir: %w", err)
		}

		batches := chunkBatches(files, mergeFanIn)
		outputs := make([]string, len(batches))

		var g errgroup.Group
		for batchIndex, batch := range batches {
			batchIndex, batch := batchIndex, batch
			g.Go(func() error {
				out := filepath.Join(roundDir, fmt.Sprintf("chunk-%03d", batchIndex))
				if err := mergeBatch(codec, batch, out, compressor); err != nil {
					return err
				}
				outputs[batchIndex] = out
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return "", err
		}

		for _, f := range files {
			if err := os.Remove(f); err != nil {
				return "", fmt.Errorf("index: remove merged-away chunk: %w", err)
			}
		}

		files = outputs
		round++
	}
}

func listFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("index: list chunk dir %s: %w", dir, err)
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}

func chunkBatches(files []string, fanIn int) [][]string {
	var batches [][]string
	for i := 0; i < len(files); i += fanIn {
		end := i + fanIn
		if end > len(files) {
			end = len(files)
		}
		batches = append(batches, files[i:end])
	}
	return batches
}

// mergeBatch does one n-way merge of batch's sorted files into out.
func mergeBatch[T any](codec Codec[T], batch []string, out string, compressor *chunkio.Compressor) error {
	sources := make([]*chunkFileReader[T], 0, len(batch))
	defer func() {
		for _, s := range sources {
			s.Close()
		}
	}()

	for _, path := range batch {
		r, err := newChunkFileReader(codec, path, compressor)
		if err != nil {
			return err
		}
		sources = append(sources, r)
	}

	outFile, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("index: create merge output: %w", err)
	}
	defer outFile.Close()

	outWriter, err := compressor.WrapWriter(outFile)
	if err != nil {
		return err
	}

	h := &mergeHeap[T]{codec: codec}
	for i, s := range sources {
		item, ok, err := s.next()
		if err != nil {
			return err
		}
		if ok {
			heap.Push(h, mergeHeapItem[T]{value: item, source: i})
		}
	}
	heap.Init(h)

	enc := make([]byte, codec.Size)
	for h.Len() > 0 {
		top := heap.Pop(h).(mergeHeapItem[T])
		codec.Encode(top.value, enc)
		if _, err := outWriter.Write(enc); err != nil {
			return fmt.Errorf("index: write merged datum: %w", err)
		}

		next, ok, err := sources[top.source].next()
		if err != nil {
			return err
		}
		if ok {
			heap.Push(h, mergeHeapItem[T]{value: next, source: top.source})
		}
	}

	if err := outWriter.Close(); err != nil {
		return err
	}

	return verifySorted(codec, out, compressor)
}

// verifySorted re-reads a just-written merge output and asserts its keys are
// non-decreasing. The merge heap produces sorted output by construction, but
// a bug in the heap ordering or codec would otherwise surface only as subtly
// wrong downstream lookups; this check fails loudly instead.
func verifySorted[T any](codec Codec[T], path string, compressor *chunkio.Compressor) error {
	r, err := newChunkFileReader(codec, path, compressor)
	if err != nil {
		return err
	}
	defer r.Close()

	hasPrev := false
	var prevKey uint64
	for {
		item, ok, err := r.next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		key := codec.Key(item)
		if hasPrev && key < prevKey {
			return apperrors.IndexInconsistency(
				fmt.Sprintf("merge output %s is not sorted: key %d follows %d", path, key, prevKey))
		}
		prevKey = key
		hasPrev = true
	}
	return nil
}

type mergeHeapItem[T any] struct {
	value  T
	source int
}

// mergeHeap is a container/heap min-heap ordered by each datum's sort key,
// replacing the original implementation's linear peek-and-scan across
// peekable iterators with a logarithmic pop/push - the same merge
// algorithm, expressed with Go's standard heap rather than hand-rolled
// peekable wrappers.
type mergeHeap[T any] struct {
	codec Codec[T]
	items []mergeHeapItem[T]
}

func (h *mergeHeap[T]) Len() int { return len(h.items) }
func (h *mergeHeap[T]) Less(i, j int) bool {
	return h.codec.Key(h.items[i].value) < h.codec.Key(h.items[j].value)
}
func (h *mergeHeap[T]) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }
func (h *mergeHeap[T]) Push(x any)    { h.items = append(h.items, x.(mergeHeapItem[T])) }
func (h *mergeHeap[T]) Pop() any {
	old := h.items
	n := len(old)
	item := old[n-1]
	h.items = old[:n-1]
	return item
}

// chunkFileReader sequentially decodes one chunk file's datums.
type chunkFileReader[T any] struct {
	codec Codec[T]
	file  *os.File
	r     io.Reader
}

func newChunkFileReader[T any](codec Codec[T], path string, compressor *chunkio.Compressor) (*chunkFileReader[T], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("index: open chunk file %s: %w", path, err)
	}
	r, err := compressor.WrapReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &chunkFileReader[T]{codec: codec, file: f, r: r}, nil
}

func (c *chunkFileReader[T]) next() (T, bool, error) {
	var zero T
	buf := make([]byte, c.codec.Size)
	if _, err := io.ReadFull(c.r, buf); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return zero, false, nil
		}
		return zero, false, fmt.Errorf("index: read chunk datum: %w", err)
	}
	return c.codec.Decode(buf), true, nil
}

func (c *chunkFileReader[T]) Close() error {
	return c.file.Close()
}
