// batch_processor.go: Parallel directory conversion with a worker pool
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
)

// FileTask is one file conversion job handed to a worker.
type FileTask struct {
	InputPath  string
	OutputPath string
	Config     *Config
}

// BatchProcessor converts every nanolog file under a directory tree
// using a fixed-size worker pool.
type BatchProcessor struct {
	converter *BinaryToJSONConverter
	config    *Config
	stats     *BatchStats
	mu        sync.RWMutex
}

// BatchStats tracks conversion totals across a directory run.
type BatchStats struct {
	FilesProcessed int64
	FilesError     int64
	BytesProcessed int64
	StartTime      time.Time
	EndTime        time.Time
}

// NewBatchProcessor creates a batch processor configured from config.
func NewBatchProcessor(config *Config) (*BatchProcessor, error) {
	return &BatchProcessor{
		converter: NewBinaryToJSONConverterWithOptions(config.Pretty, config.LevelFilter, config.ValidateOnly, config.MaxLines),
		config:    config,
		stats: &BatchStats{
			StartTime: time.Now(),
		},
	}, nil
}

// ProcessDirectory walks inputDir, converting every nanolog file it
// finds into outputDir, mirroring the relative directory structure.
func (bp *BatchProcessor) ProcessDirectory(inputDir, outputDir string) error {
	workers := runtime.NumCPU()
	if bp.config.Verbose {
		fmt.Fprintf(os.Stderr, "Initializing batch processor with %d workers\n", workers)
	}

	if err := os.MkdirAll(outputDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %v", err)
	}

	taskChan := make(chan *FileTask, workers*2)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go bp.worker(taskChan, &wg)
	}

	taskCount := 0
	go func() {
		defer close(taskChan)

		err := filepath.Walk(inputDir, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				if path != inputDir && !bp.config.Recursive {
					return filepath.SkipDir
				}
				return nil
			}
			if !bp.isLogFile(path) {
				if bp.config.Verbose {
					fmt.Fprintf(os.Stderr, "Skipping %s (not a log file)\n", path)
				}
				return nil
			}

			relPath, err := filepath.Rel(inputDir, path)
			if err != nil {
				return err
			}
			outputPath := filepath.Join(outputDir, strings.TrimSuffix(relPath, filepath.Ext(relPath))+".json")

			task := &FileTask{
				InputPath:  path,
				OutputPath: outputPath,
				Config:     bp.config,
			}

			taskChan <- task
			taskCount++

			if bp.config.Verbose && taskCount%100 == 0 {
				fmt.Fprintf(os.Stderr, "Queued %d tasks...\n", taskCount)
			}

			return nil
		})

		if err != nil {
			fmt.Fprintf(os.Stderr, "Error scanning directory: %v\n", err)
		}
	}()

	if bp.config.Verbose {
		fmt.Fprintf(os.Stderr, "Processing files with %d workers...\n", workers)
	}

	wg.Wait()

	bp.stats.EndTime = time.Now()
	bp.printStats()

	return nil
}

func (bp *BatchProcessor) worker(taskChan <-chan *FileTask, wg *sync.WaitGroup) {
	defer wg.Done()

	for task := range taskChan {
		if err := bp.convertSingleFile(task); err != nil {
			bp.mu.Lock()
			bp.stats.FilesError++
			bp.mu.Unlock()

			if bp.config.Verbose {
				fmt.Fprintf(os.Stderr, "Error converting %s: %v\n", task.InputPath, err)
			}
			continue
		}

		bp.mu.Lock()
		bp.stats.FilesProcessed++
		bp.mu.Unlock()
	}
}

func (bp *BatchProcessor) convertSingleFile(task *FileTask) error {
	input, err := os.Open(task.InputPath)
	if err != nil {
		return fmt.Errorf("failed to open input: %v", err)
	}
	defer input.Close()

	if dir := filepath.Dir(task.OutputPath); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create output directory: %v", err)
		}
	}

	output, err := os.Create(task.OutputPath)
	if err != nil {
		return fmt.Errorf("failed to create output: %v", err)
	}
	defer output.Close()

	if info, err := input.Stat(); err == nil {
		bp.mu.Lock()
		bp.stats.BytesProcessed += info.Size()
		bp.mu.Unlock()
	}

	return bp.converter.Convert(input, output)
}

// isLogFile filters directory entries down to files nanolog is likely
// to have written.
func (bp *BatchProcessor) isLogFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".log" || ext == ".nanolog" || ext == ".txt"
}

func (bp *BatchProcessor) printStats() {
	bp.mu.RLock()
	defer bp.mu.RUnlock()

	duration := bp.stats.EndTime.Sub(bp.stats.StartTime)

	fmt.Fprintf(os.Stderr, "\nBatch processing complete\n")
	fmt.Fprintf(os.Stderr, "Files processed: %d\n", bp.stats.FilesProcessed)
	fmt.Fprintf(os.Stderr, "Files error: %d\n", bp.stats.FilesError)
	fmt.Fprintf(os.Stderr, "Bytes processed: %d (%.2f MB)\n",
		bp.stats.BytesProcessed, float64(bp.stats.BytesProcessed)/(1024*1024))
	fmt.Fprintf(os.Stderr, "Duration: %v\n", duration)

	if duration > 0 {
		filesPerSec := float64(bp.stats.FilesProcessed) / duration.Seconds()
		mbPerSec := float64(bp.stats.BytesProcessed) / (1024 * 1024) / duration.Seconds()
		fmt.Fprintf(os.Stderr, "Throughput: %.2f files/sec, %.2f MB/sec\n", filesPerSec, mbPerSec)
	}
}
