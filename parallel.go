package sonorous

import (
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"
)

// sealJob is one chunk sealed by a worker
type sealJob struct {
	plaintext []byte
	block     []byte
}

// encodeFileBodyParallel produces the same byte layout as encodeFileBody but
// seals up to workers chunks concurrently. Chunks are read and written in
// order; only the sealing runs in parallel, so at most workers chunks are
// held in memory at once.
func encodeFileBodyParallel(w io.Writer, src io.Reader, codec *BlockCodec, path string, workers int, progress ProgressFunc) (int64, error) {
	if workers < 2 {
		return encodeFileBody(w, src, codec, path, progress)
	}

	jobs := make([]sealJob, workers)
	for i := range jobs {
		jobs[i].plaintext = make([]byte, ChunkSize)
	}
	defer func() {
		for i := range jobs {
			clear(jobs[i].plaintext)
		}
	}()

	var total int64
	for eof := false; !eof; {
		// Fill the window
		filled := 0
		for filled < len(jobs) {
			n, err := readChunk(src, jobs[filled].plaintext[:ChunkSize], path)
			if err != nil {
				return total, err
			}
			if n == 0 {
				eof = true
				break
			}
			jobs[filled].plaintext = jobs[filled].plaintext[:n]
			filled++
			if n < ChunkSize {
				eof = true
				break
			}
		}

		if err := sealWindow(codec, jobs[:filled]); err != nil {
			return total, withEntry(err, path, 0)
		}

		for i := 0; i < filled; i++ {
			if _, err := w.Write([]byte{markerChunk}); err != nil {
				return total, NewIOError("write", path, err)
			}
			if _, err := w.Write(jobs[i].block); err != nil {
				return total, NewIOError("write", path, err)
			}
			n := int64(len(jobs[i].plaintext))
			total += n
			if progress != nil {
				progress(path, n)
			}
			jobs[i].block = nil
			jobs[i].plaintext = jobs[i].plaintext[:ChunkSize]
		}
	}

	if _, err := w.Write([]byte{markerEnd}); err != nil {
		return total, NewIOError("write", path, err)
	}
	return total, nil
}

// sealWindow seals every job concurrently. Each job draws its own nonce.
func sealWindow(codec *BlockCodec, jobs []sealJob) error {
	if len(jobs) == 0 {
		return nil
	}
	if len(jobs) == 1 {
		block, err := codec.SealBlock(jobs[0].plaintext)
		jobs[0].block = block
		return err
	}

	var g errgroup.Group
	for i := range jobs {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("panic in sealing worker: %v", r)
				}
			}()
			jobs[i].block, err = codec.SealBlock(jobs[i].plaintext)
			return err
		})
	}
	return g.Wait()
}
