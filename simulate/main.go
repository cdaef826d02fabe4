package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	sqlx "github.com/jmoiron/sqlx"
	digitizer "github.com/next-exp/ahdc_digitizer/pkg"
)

var dbConn *sqlx.DB
var configuration digitizer.Configuration

var (
	logger         digitizer.Logger
	VerbosityLevel int
)

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

	file, err := os.Open(configuration.FileIn)
	if err != nil {
		message := fmt.Errorf("Error opening file: %w", err)
		logger.Error(message.Error())
		os.Exit(1)
	}
	defer file.Close()

	reader, err := digitizer.NewHitReader(file, configuration.MaxHits)
	if err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}

	var out io.Writer = os.Stdout
	if configuration.FileOut != "" {
		fileOut, err := os.Create(configuration.FileOut)
		if err != nil {
			message := fmt.Errorf("Error creating output file: %w", err)
			logger.Error(message.Error())
			os.Exit(1)
		}
		defer fileOut.Close()
		out = fileOut
	}

	start := time.Now()
	jobs := make(chan WorkerData, 100)
	results := make(chan HitResult, 100)

	var wg sync.WaitGroup
	for w := 1; w <= max(configuration.NumWorkers, 1); w++ {
		noise := digitizer.NewGaussianNoise(configuration.Seed + uint64(w))
		process := digitizer.NewAhdcHitProcess(store, configuration.Settings(), noise)
		if err := process.InitWithRunNumber(configuration.RunNumber); err != nil {
			logger.Error(err.Error())
			os.Exit(1)
		}
		wg.Add(1)
		go worker(w, process, jobs, results, &wg)
	}
	go sendHitsToWorkers(reader, jobs)
	go func() {
		wg.Wait()
		close(results)
	}()

	written, failed := processWorkerResults(results, out)

	duration := time.Since(start)
	message := fmt.Sprintf("Hits written: %d, failed: %d, time: %d ms", written, failed, duration.Milliseconds())
	logger.Info(message, "main")
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
