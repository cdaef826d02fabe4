package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	sqlx "github.com/jmoiron/sqlx"
	digitizer "github.com/next-exp/ahdc_digitizer/pkg"
	"gonum.org/v1/gonum/stat"
)

var dbConn *sqlx.DB
var configuration digitizer.Configuration

var (
	logger         digitizer.Logger
	VerbosityLevel int
)

// Keys whose spread measures the resolution of the decoder.
var resolutionKeys = []string{digitizer.KeyCFDTime, digitizer.KeyDriftTime, digitizer.KeyEnergy}

// Keys that must not change between replicas.
var truthKeys = []string{digitizer.KeyMCTime, digitizer.KeyMCEtot}

func init() {
	logger = digitizer.NewSlogLogger(os.Stdout, os.Stderr)
}

func main() {
	configFilename := flag.String("config", "", "Configuration file path")
	flag.Parse()

	var err error
	configuration, err = LoadConfiguration(*configFilename)
	if err != nil {
		message := fmt.Errorf("Error reading configuration file: %w", err)
		logger.Error(message.Error())
		os.Exit(1)
	}
	digitizer.SetLogger(logger)
	digitizer.SetVerbosity(configuration.Verbosity)

	VerbosityLevel = configuration.Verbosity
	if VerbosityLevel > 0 {
		message := fmt.Sprintf("Reading configuration file: %s", *configFilename)
		logger.Info(message, "main")
		printConfiguration(configuration, logger)
	}

	hits, err := digitizer.ReadAllHits(configuration.FileIn, configuration.HitIndex+1)
	if err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
	if configuration.HitIndex < 0 || configuration.HitIndex >= len(hits) {
		logger.Error(fmt.Sprintf("Hit index %d out of range, file has %d hits", configuration.HitIndex, len(hits)))
		os.Exit(1)
	}

	source, err := calibrationSource(configuration)
	if err != nil {
		message := fmt.Errorf("Error connection to database: %w", err)
		logger.Error(message.Error())
		os.Exit(1)
	}
	if dbConn != nil {
		defer dbConn.Close()
	}
	store := digitizer.NewCalibrationStore(source)

	settings := configuration.Settings()
	base, err := referenceSignal(store, settings, hits[configuration.HitIndex], configuration)
	if err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}

	start := time.Now()
	ensemble := runEnsemble(base, settings, configuration.Ensemble, configuration.NumWorkers, configuration.Seed)
	duration := time.Since(start)
	logger.Info(fmt.Sprintf("Replicas: %d, failed: %d, time: %d ms",
		configuration.Ensemble, ensemble.Failed, duration.Milliseconds()), "main")

	for _, summary := range summarize(ensemble, resolutionKeys) {
		logger.Info(summary.String(), "resolution")
	}
	for _, key := range truthKeys {
		if !constant(ensemble.Values[key]) {
			logger.Error(fmt.Sprintf("%s changed between replicas", key))
		}
	}

	if configuration.PlotFile != "" {
		for _, key := range resolutionKeys {
			values := ensemble.Values[key]
			if len(values) == 0 {
				continue
			}
			filename := histogramFilename(configuration.PlotFile, key)
			title := fmt.Sprintf("Hit %d, %d replicas", configuration.HitIndex, len(values))
			if err := digitizer.PlotHistogram(values, 50, title, key, filename); err != nil {
				logger.Error(err.Error())
			}
		}
	}
}

func calibrationSource(config digitizer.Configuration) (digitizer.CalibrationSource, error) {
	if config.NoDB {
		return digitizer.DefaultSource{ClampDoca: config.ClampDoca}, nil
	}
	var err error
	dbConn, err = digitizer.ConnectToDatabase(config.User, config.Passwd, config.Host, config.DBName)
	if err != nil {
		return nil, err
	}
	return digitizer.NewDBSource(dbConn, digitizer.DefaultGeometry(), config.ClampDoca), nil
}

// referenceSignal builds the analog signal shared by every replica. Drift
// times are smeared once, here, so that replicas differ by noise only.
func referenceSignal(store *digitizer.CalibrationStore, settings digitizer.Settings, hit digitizer.Hit,
	config digitizer.Configuration) (*digitizer.Signal, error) {
	cal, err := store.Load(config.RunNumber)
	if err != nil {
		return nil, err
	}
	signal, err := digitizer.NewSignal(hit, config.HitIndex, cal)
	if err != nil {
		return nil, err
	}
	signal.SetParams(settings.Params)
	signal.SetCFD(settings.CFD)
	if settings.SmearDriftTimes {
		signal = signal.SmearDriftTimes(digitizer.NewGaussianNoise(config.Seed))
	}
	return signal, nil
}

func runEnsemble(base *digitizer.Signal, settings digitizer.Settings, size, numWorkers int, seed uint64) Ensemble {
	jobs := make(chan int, 100)
	results := make(chan Replica, 100)

	var wg sync.WaitGroup
	for w := 1; w <= max(numWorkers, 1); w++ {
		wg.Add(1)
		go worker(w, base, settings, digitizer.NewGaussianNoise(seed+uint64(w)), jobs, results, &wg)
	}
	go sendReplicasToWorkers(size, jobs)
	go func() {
		wg.Wait()
		close(results)
	}()
	return collectReplicas(results)
}

type Summary struct {
	Key     string
	Entries int
	Mean    float64
	StdDev  float64
}

func (s Summary) String() string {
	return fmt.Sprintf("%s: entries %d, mean %g, stdev %g", s.Key, s.Entries, s.Mean, s.StdDev)
}

func summarize(ensemble Ensemble, keys []string) []Summary {
	summaries := make([]Summary, 0, len(keys))
	for _, key := range keys {
		values := ensemble.Values[key]
		summary := Summary{Key: key, Entries: len(values)}
		if len(values) > 1 {
			summary.Mean, summary.StdDev = stat.MeanStdDev(values, nil)
		} else if len(values) == 1 {
			summary.Mean = values[0]
		}
		summaries = append(summaries, summary)
	}
	return summaries
}

func constant(values []float64) bool {
	for _, v := range values {
		if v != values[0] {
			return false
		}
	}
	return true
}

// histogramFilename inserts the key before the extension: out.png -> out_t_cfd.png.
func histogramFilename(base string, key string) string {
	ext := filepath.Ext(base)
	return fmt.Sprintf("%s_%s%s", strings.TrimSuffix(base, ext), key, ext)
}
