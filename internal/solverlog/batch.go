package solverlog

import (
	"context"
	"runtime"
	"sync"
)

// FileResult is the outcome of parsing one file of a batch.
type FileResult struct {
	Path string
	Run  *LogRun
	Err  error
}

// ParseFiles parses every path with at most workers goroutines (GOMAXPROCS
// when workers < 1). Results keep the order of paths; a failing file does not
// stop the others. Files not yet started when ctx is done report ctx.Err().
func ParseFiles(ctx context.Context, paths []string, workers int) []FileResult {
	results := make([]FileResult, len(paths))
	if len(paths) == 0 {
		return results
	}

	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	workers = min(workers, len(paths))
	chunk := (len(paths) + workers - 1) / workers

	var wg sync.WaitGroup
	for start := 0; start < len(paths); start += chunk {
		end := min(start+chunk, len(paths))
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			for i := s; i < e; i++ {
				results[i].Path = paths[i]
				if err := ctx.Err(); err != nil {
					results[i].Err = err
					continue
				}
				results[i].Run, results[i].Err = ParseFile(paths[i])
			}
		}(start, end)
	}
	wg.Wait()

	return results
}
