// Package config loads filter tuning from YAML files.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strings"

	filter "github.com/milosgajdos/go-fusion"
	"github.com/milosgajdos/go-fusion/matrix"
	"github.com/milosgajdos/go-fusion/noise"
	"github.com/milosgajdos/go-fusion/sigma"
	"gonum.org/v1/gonum/mat"
	"gopkg.in/natefinch/lumberjack.v2"
	"gopkg.in/yaml.v3"
)

// Config is filter tuning configuration
type Config struct {
	Sigma SigmaConfig `yaml:"sigma"`
	Noise NoiseConfig `yaml:"noise"`
	IMM   IMMConfig   `yaml:"imm"`
	Log   LogConfig   `yaml:"log"`
}

// SigmaConfig selects sigma points algorithm and its parameters
type SigmaConfig struct {
	// Kind is either merwe or julier
	Kind  string  `yaml:"kind"`
	Alpha float64 `yaml:"alpha"`
	Beta  float64 `yaml:"beta"`
	Kappa float64 `yaml:"kappa"`
}

// NoiseConfig configures process and measurement noise
type NoiseConfig struct {
	ProcessVariance     float64 `yaml:"process_variance"`
	MeasurementVariance float64 `yaml:"measurement_variance"`
	BlockSize           int     `yaml:"block_size"`
}

// IMMConfig configures the mode probabilities of IMM filter bank
type IMMConfig struct {
	Mu         []float64   `yaml:"mu"`
	Transition [][]float64 `yaml:"transition"`
}

// LogConfig configures logging
type LogConfig struct {
	Level string `yaml:"level"`
	// Filename is the log file; "-" or empty logs to stderr
	Filename   string `yaml:"filename"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
	Compress   bool   `yaml:"compress"`
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Sigma: SigmaConfig{
			Kind:  "merwe",
			Alpha: 0.1,
			Beta:  2.0,
			Kappa: 1.0,
		},
		Noise: NoiseConfig{
			ProcessVariance:     0.01,
			MeasurementVariance: 0.05,
			BlockSize:           1,
		},
		IMM: IMMConfig{
			Mu: []float64{0.9, 0.1},
			Transition: [][]float64{
				{0.97, 0.03},
				{0.03, 0.97},
			},
		},
		Log: LogConfig{
			Level:      "info",
			Filename:   "-",
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     7,
		},
	}
}

// Load reads configuration from the YAML file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return Parse(data)
}

// Parse parses YAML configuration. Values missing from data keep their defaults.
// It returns error if data can not be decoded or the resulting configuration is invalid.
func Parse(data []byte) (*Config, error) {
	c := Default()
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return c, nil
}

// Validate checks configuration values.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Sigma.Kind) {
	case "merwe":
		if c.Sigma.Alpha <= 0 || c.Sigma.Alpha > 1 {
			return fmt.Errorf("%w: sigma alpha must be in (0, 1]: %g", filter.ErrInvalidArgument, c.Sigma.Alpha)
		}
		if c.Sigma.Beta < 0 {
			return fmt.Errorf("%w: negative sigma beta: %g", filter.ErrInvalidArgument, c.Sigma.Beta)
		}
	case "julier":
	default:
		return fmt.Errorf("%w: unknown sigma points kind: %q", filter.ErrInvalidArgument, c.Sigma.Kind)
	}

	if c.Noise.ProcessVariance < 0 || c.Noise.MeasurementVariance < 0 {
		return fmt.Errorf("%w: negative noise variance", filter.ErrInvalidArgument)
	}
	if c.Noise.BlockSize < 1 {
		return fmt.Errorf("%w: invalid noise block size: %d", filter.ErrInvalidArgument, c.Noise.BlockSize)
	}

	if _, _, err := c.IMM.Matrices(); err != nil {
		return err
	}

	if _, err := c.Log.level(); err != nil {
		return err
	}

	return nil
}

// Points returns sigma points for n-dimensional state.
func (s SigmaConfig) Points(n int, arith filter.Arithmetic) (sigma.Points, error) {
	switch strings.ToLower(s.Kind) {
	case "merwe":
		m, err := sigma.NewMerweScaled(n, s.Alpha, s.Beta, s.Kappa, arith)
		if err != nil {
			return nil, err
		}
		return m, nil
	case "julier":
		j, err := sigma.NewJulier(n, s.Kappa, arith)
		if err != nil {
			return nil, err
		}
		return j, nil
	}

	return nil, fmt.Errorf("%w: unknown sigma points kind: %q", filter.ErrInvalidArgument, s.Kind)
}

// Process returns discrete white process noise for blocks of order dim sampled every dt.
func (n NoiseConfig) Process(dim int, dt float64) (*noise.White, error) {
	return noise.NewDiscreteWhite(dim, dt, n.ProcessVariance, n.BlockSize)
}

// Measurement returns zero mean Gaussian measurement noise of dimension dim
// with independent components.
func (n NoiseConfig) Measurement(dim int) (*noise.Gaussian, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("%w: invalid measurement dimension: %d", filter.ErrInvalidArgument, dim)
	}

	cov := mat.NewSymDense(dim, nil)
	for i := 0; i < dim; i++ {
		cov.SetSym(i, i, n.MeasurementVariance)
	}

	return noise.NewGaussian(make([]float64, dim), cov)
}

// Matrices returns initial mode probabilities and mode transition matrix.
// It returns error if mu does not sum to 1 or the transition matrix is not row-stochastic.
func (c IMMConfig) Matrices() ([]float64, *mat.Dense, error) {
	n := len(c.Mu)
	if n == 0 {
		return nil, nil, fmt.Errorf("%w: no mode probabilities", filter.ErrInvalidArgument)
	}
	if len(c.Transition) != n {
		return nil, nil, fmt.Errorf("%w: transition matrix has %d rows, expected %d", filter.ErrInvalidArgument, len(c.Transition), n)
	}

	sum := 0.0
	for _, p := range c.Mu {
		if p < 0 {
			return nil, nil, fmt.Errorf("%w: negative mode probability: %g", filter.ErrInvalidArgument, p)
		}
		sum += p
	}
	if math.Abs(sum-1) > 1e-9 {
		return nil, nil, fmt.Errorf("%w: mode probabilities sum to %g", filter.ErrInvalidArgument, sum)
	}

	m := mat.NewDense(n, n, nil)
	for i, row := range c.Transition {
		if len(row) != n {
			return nil, nil, fmt.Errorf("%w: transition matrix row %d has %d columns, expected %d", filter.ErrInvalidArgument, i, len(row), n)
		}
		for _, p := range row {
			if p < 0 {
				return nil, nil, fmt.Errorf("%w: negative transition probability in row %d", filter.ErrInvalidArgument, i)
			}
		}
		m.SetRow(i, row)
	}

	for i, s := range matrix.RowSums(m) {
		if math.Abs(s-1) > 1e-9 {
			return nil, nil, fmt.Errorf("%w: transition matrix row %d sums to %g", filter.ErrInvalidArgument, i, s)
		}
	}

	mu := make([]float64, n)
	copy(mu, c.Mu)

	return mu, m, nil
}

func (l LogConfig) level() (slog.Level, error) {
	var lvl slog.Level
	if l.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return lvl, fmt.Errorf("%w: invalid log level: %q", filter.ErrInvalidArgument, l.Level)
	}

	return lvl, nil
}

// Writer returns the log destination: stderr, or a size rotated log file.
func (l LogConfig) Writer() io.Writer {
	if l.Filename == "" || l.Filename == "-" {
		return os.Stderr
	}

	return &lumberjack.Logger{
		Filename:   l.Filename,
		MaxSize:    l.MaxSize,
		MaxBackups: l.MaxBackups,
		MaxAge:     l.MaxAge,
		Compress:   l.Compress,
		LocalTime:  true,
	}
}

// Logger returns a text logger writing to l.Writer.
func (l LogConfig) Logger() (*slog.Logger, error) {
	lvl, err := l.level()
	if err != nil {
		return nil, err
	}

	return slog.New(slog.NewTextHandler(l.Writer(), &slog.HandlerOptions{Level: lvl})), nil
}
