package main

import (
	"fmt"
	"sync"

	digitizer "github.com/next-exp/ahdc_digitizer/pkg"
)

// Replica is one re-digitization of the reference hit.
type Replica struct {
	Index   int
	Decoded map[string]float64
	Err     error
}

// worker re-digitizes its own copy of the hit with a private noise generator
// for each replica index received.
func worker(id int, base *digitizer.Signal, settings digitizer.Settings, noise digitizer.NoiseGenerator,
	jobs <-chan int, results chan<- Replica, wg *sync.WaitGroup) {
	defer wg.Done()
	signal := base.Clone()
	for index := range jobs {
		results <- runReplica(id, signal, settings, noise, index)
	}
}

func runReplica(id int, signal *digitizer.Signal, settings digitizer.Settings, noise digitizer.NoiseGenerator, index int) (replica Replica) {
	replica.Index = index
	defer func() {
		if r := recover(); r != nil {
			replica.Err = fmt.Errorf("worker %d recovered from panic in replica %d: %v", id, index, r)
		}
	}()

	if VerbosityLevel > 2 {
		logger.Info(fmt.Sprintf("Worker %d processing replica %d", id, index), "worker")
	}
	if err := signal.GenerateNoise(noise, settings.NoiseMean, settings.NoiseStdev); err != nil {
		replica.Err = err
		return replica
	}
	if _, err := signal.Digitize(); err != nil {
		replica.Err = err
		return replica
	}
	replica.Decoded = signal.Decode()
	return replica
}

func sendReplicasToWorkers(ensemble int, jobs chan<- int) {
	for i := 0; i < ensemble; i++ {
		jobs <- i
	}
	close(jobs)
}

// Ensemble collects the decoded values of every replica by key.
type Ensemble struct {
	Values map[string][]float64
	Failed int
}

func collectReplicas(results <-chan Replica) Ensemble {
	ensemble := Ensemble{Values: make(map[string][]float64)}
	for replica := range results {
		if replica.Err != nil {
			ensemble.Failed++
			logger.Error(fmt.Sprintf("Replica %d: %v", replica.Index, replica.Err))
			continue
		}
		for key, value := range replica.Decoded {
			ensemble.Values[key] = append(ensemble.Values[key], value)
		}
	}
	return ensemble
}
