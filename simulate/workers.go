package main

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	digitizer "github.com/next-exp/ahdc_digitizer/pkg"
)

type WorkerData struct {
	Hit  digitizer.Hit
	Hitn int
}

type HitResult struct {
	Hitn       int                `json:"hitn"`
	Integrated map[string]float64 `json:"integrated,omitempty"`
	Multi      map[string][]int   `json:"multi,omitempty"`
	ChargeTime map[int][]float64  `json:"charge_time,omitempty"`
	Err        string             `json:"error,omitempty"`
}

func worker(id int, process *digitizer.AhdcHitProcess, jobs <-chan WorkerData,
	results chan<- HitResult, wg *sync.WaitGroup) {
	defer wg.Done()
	for job := range jobs {
		if VerbosityLevel > 1 {
			logger.Info(fmt.Sprintf("Worker %d processing hit %d", id, job.Hitn), "workers")
		}
		results <- processHit(process, job)
	}
}

func processHit(process *digitizer.AhdcHitProcess, job WorkerData) (result HitResult) {
	result.Hitn = job.Hitn
	defer func() {
		if r := recover(); r != nil {
			errMessage := fmt.Errorf("worker recovered from panic on hit %d: %v", job.Hitn, r)
			logger.Error(errMessage.Error())
			result = HitResult{Hitn: job.Hitn, Err: errMessage.Error()}
		}
	}()

	signal, err := process.Process(job.Hit, job.Hitn)
	if err != nil {
		message := fmt.Errorf("error processing hit %d: %w", job.Hitn, err)
		logger.Error(message.Error())
		result.Err = message.Error()
		return result
	}
	result.Integrated = digitizer.IntegratedOutput(signal)
	result.Multi = digitizer.MultiOutput(signal)
	result.ChargeTime = digitizer.ChargeTimeOutput(signal)

	if configuration.PlotFile != "" && job.Hitn < configuration.PlotHits {
		filename := plotFilename(configuration.PlotFile, job.Hitn)
		if err := digitizer.PlotSignal(signal, filename); err != nil {
			logger.Error(fmt.Sprintf("error plotting hit %d: %v", job.Hitn, err))
		}
	}
	return result
}

func plotFilename(base string, hitn int) string {
	ext := filepath.Ext(base)
	return fmt.Sprintf("%s_hit%d%s", strings.TrimSuffix(base, ext), hitn, ext)
}

func sendHitsToWorkers(reader *digitizer.HitReader, jobs chan<- WorkerData) {
	defer close(jobs)
	for {
		hitn := reader.HitCount
		hit, err := reader.Next()
		if err == io.EOF {
			return
		}
		if err != nil {
			message := fmt.Errorf("error reading hit: %w", err)
			logger.Error(message.Error())
			return
		}
		jobs <- WorkerData{Hit: hit, Hitn: hitn}
	}
}

// processWorkerResults writes one JSON line per hit, errored hits included,
// and returns the number of hits digitized and failed.
func processWorkerResults(results <-chan HitResult, out io.Writer) (int, int) {
	encoder := json.NewEncoder(out)
	written, failed := 0, 0
	for result := range results {
		if err := encoder.Encode(result); err != nil {
			logger.Error(fmt.Sprintf("error writing hit %d: %v", result.Hitn, err))
			failed++
			continue
		}
		if result.Err != "" {
			failed++
			continue
		}
		written++
	}
	return written, failed
}
