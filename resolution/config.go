package main

import (
	"encoding/json"
	"fmt"
	"os"

	digitizer "github.com/next-exp/ahdc_digitizer/pkg"
)

func LoadConfiguration(filename string) (digitizer.Configuration, error) {
	// Set default values
	config := digitizer.DefaultConfiguration()

	data, err := os.ReadFile(filename)
	if err != nil {
		return config, err
	}
	err = json.Unmarshal(data, &config)
	if err != nil {
		return config, err
	}
	return config, nil
}

func printConfiguration(config digitizer.Configuration, logger digitizer.Logger) {
	logger.Info(fmt.Sprintf("File in: %s", config.FileIn), "config")
	logger.Info(fmt.Sprintf("Plot file: %s", config.PlotFile), "config")
	logger.Info(fmt.Sprintf("Run number: %d", config.RunNumber), "config")
	logger.Info(fmt.Sprintf("No DB: %t", config.NoDB), "config")
	logger.Info(fmt.Sprintf("Host: %s", config.Host), "config")
	logger.Info(fmt.Sprintf("DB name: %s", config.DBName), "config")
	logger.Info(fmt.Sprintf("Hit index: %d", config.HitIndex), "config")
	logger.Info(fmt.Sprintf("Ensemble size: %d", config.Ensemble), "config")
	logger.Info(fmt.Sprintf("Verbosity: %d", config.Verbosity), "config")
	logger.Info(fmt.Sprintf("Number of workers: %d", config.NumWorkers), "config")
	logger.Info(fmt.Sprintf("Seed: %d", config.Seed), "config")
	logger.Info(fmt.Sprintf("Noise: mean %g, stdev %g", config.NoiseMean, config.NoiseStdev), "config")
	logger.Info(fmt.Sprintf("CFD: fraction %g, delay %d", config.CFDFraction, config.CFDDelay), "config")
	logger.Info(fmt.Sprintf("Sampling time: %g ns", config.SamplingTime), "config")
	logger.Info(fmt.Sprintf("Electron yield: %g", config.ElectronYield), "config")
	logger.Info(fmt.Sprintf("ADC max: %d", config.AdcMax), "config")
	logger.Info(fmt.Sprintf("Window: [%g, %g] ns, delay %g ns", config.Tmin, config.Tmax, config.Delay), "config")
	logger.Info(fmt.Sprintf("Landau width: %g ns", config.LandauWidth), "config")
	logger.Info(fmt.Sprintf("Clamp doca: %t", config.ClampDoca), "config")
	logger.Info(fmt.Sprintf("Smear drift times: %t", config.SmearDriftTimes), "config")
}
