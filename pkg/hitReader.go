package digitizer

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// HitReader streams the hits of a JSON array one at a time.
type HitReader struct {
	decoder  *json.Decoder
	HitCount int
	maxHits  int
}

func NewHitReader(in io.Reader, maxHits int) (*HitReader, error) {
	decoder := json.NewDecoder(in)
	token, err := decoder.Token()
	if err != nil {
		return nil, fmt.Errorf("error reading hits file: %w", err)
	}
	if delim, ok := token.(json.Delim); !ok || delim != '[' {
		return nil, fmt.Errorf("hits file must hold a JSON array, found %v", token)
	}
	return &HitReader{decoder: decoder, HitCount: 0, maxHits: maxHits}, nil
}

// Next returns the following hit, io.EOF at the end of the array or once
// maxHits hits were read.
func (r *HitReader) Next() (Hit, error) {
	var hit Hit
	if r.HitCount >= r.maxHits {
		if verbosity > 0 {
			logger.Info("Max hits reached", "hitReader")
		}
		return hit, io.EOF
	}
	if !r.decoder.More() {
		return hit, io.EOF
	}
	if err := r.decoder.Decode(&hit); err != nil {
		return hit, fmt.Errorf("error decoding hit %d: %w", r.HitCount, err)
	}
	if verbosity > 1 {
		message := fmt.Sprintf("Reading hit %d: layer %d%d, component %d, %d steps",
			r.HitCount, hit.Superlayer, hit.Layer, hit.Component, len(hit.Edep))
		logger.Info(message, "hitReader")
	}
	r.HitCount++
	return hit, nil
}

// ReadAllHits loads a whole hits file.
func ReadAllHits(filename string, maxHits int) ([]Hit, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}
	defer file.Close()

	reader, err := NewHitReader(file, maxHits)
	if err != nil {
		return nil, err
	}
	hits := make([]Hit, 0)
	for {
		hit, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		hits = append(hits, hit)
	}
	return hits, nil
}
