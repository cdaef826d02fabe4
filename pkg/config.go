package digitizer

type Configuration struct {
	FileIn          string  `json:"file_in"`
	FileOut         string  `json:"file_out"`
	PlotFile        string  `json:"plot_file"`
	PlotHits        int     `json:"plot_hits"`
	RunNumber       int     `json:"run_number"`
	MaxHits         int     `json:"max_hits"`
	Verbosity       int     `json:"verbosity"`
	NumWorkers      int     `json:"num_workers"`
	NoDB            bool    `json:"no_db"`
	Host            string  `json:"host"`
	User            string  `json:"user"`
	Passwd          string  `json:"pass"`
	DBName          string  `json:"dbname"`
	Seed            uint64  `json:"seed"`
	NoiseMean       float64 `json:"noise_mean"`
	NoiseStdev      float64 `json:"noise_stdev"`
	CFDFraction     float64 `json:"cfd_fraction"`
	CFDDelay        int     `json:"cfd_delay"`
	SamplingTime    float64 `json:"sampling_time"`
	ElectronYield   float64 `json:"electron_yield"`
	AdcMax          int     `json:"adc_max"`
	Tmin            float64 `json:"tmin"`
	Tmax            float64 `json:"tmax"`
	Delay           float64 `json:"delay"`
	LandauWidth     float64 `json:"landau_width"`
	ClampDoca       bool    `json:"clamp_doca"`
	SmearDriftTimes bool    `json:"smear_drift_times"`
	Ensemble        int     `json:"ensemble"`
	HitIndex        int     `json:"hit_index"`
}

// DefaultConfiguration holds the values used for options missing from the
// configuration file.
func DefaultConfiguration() Configuration {
	params := DefaultParams()
	cfd := DefaultCFD()
	return Configuration{
		PlotHits:      0,
		RunNumber:     0,
		MaxHits:       1000000000,
		Verbosity:     0,
		NumWorkers:    1,
		NoDB:          true,
		Host:          "clasdb.jlab.org",
		User:          "clasreader",
		Passwd:        "",
		DBName:        "clas12",
		Seed:          1,
		NoiseMean:     0,
		NoiseStdev:    0,
		CFDFraction:   cfd.Fraction,
		CFDDelay:      cfd.Delay,
		SamplingTime:  params.SamplingTime,
		ElectronYield: params.ElectronYield,
		AdcMax:        params.AdcMax,
		Tmin:          params.Tmin,
		Tmax:          params.Tmax,
		Delay:         params.Delay,
		LandauWidth:   params.LandauWidth,
		Ensemble:      1000,
		HitIndex:      0,
	}
}

func (c Configuration) Settings() Settings {
	return Settings{
		Params: Params{
			SamplingTime:  c.SamplingTime,
			ElectronYield: c.ElectronYield,
			AdcMax:        c.AdcMax,
			Tmin:          c.Tmin,
			Tmax:          c.Tmax,
			Delay:         c.Delay,
			LandauWidth:   c.LandauWidth,
		},
		CFD: CFD{
			Fraction: c.CFDFraction,
			Delay:    c.CFDDelay,
		},
		NoiseMean:       c.NoiseMean,
		NoiseStdev:      c.NoiseStdev,
		SmearDriftTimes: c.SmearDriftTimes,
	}
}
