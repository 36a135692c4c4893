//Package engine provides the inference backends the pose pipeline runs on
package engine

import (
	"fmt"
	"os"

	"github.com/chenBenjamin97/pose-overlay/pkg/pose"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
)

const (
	BackendONNX = "onnx"
	BackendDNN  = "dnn"
)

//Config describes which model to load and how to talk to it
type Config struct {
	Backend     string  `mapstructure:"backend"`
	ModelPath   string  `mapstructure:"model_path"`
	LibraryPath string  `mapstructure:"library_path"` //onnxruntime shared library, onnx backend only
	InputName   string  `mapstructure:"input_name"`
	OutputName  string  `mapstructure:"output_name"`
	OutputShape []int64 `mapstructure:"output_shape"` //fixed output shape, onnx backend only
	NumThreads  int     `mapstructure:"num_threads"`

	//set from the pipeline's model size
	InputWidth  int `mapstructure:"-"`
	InputHeight int `mapstructure:"-"`
}

//DefaultConfig matches a yolov7-w6-pose export with NMS folded into the graph
func DefaultConfig() Config {
	return Config{
		Backend:     BackendONNX,
		ModelPath:   "./models/yolov7-w6-pose.onnx",
		InputName:   "images",
		OutputName:  "output",
		OutputShape: []int64{100, int64(pose.RowWidth(pose.NumKeypoints))},
		InputWidth:  pose.DefaultModelSize,
		InputHeight: pose.DefaultModelSize,
	}
}

//Validate checks the parts of cfg every backend relies on
func (c Config) Validate() error {
	if c.ModelPath == "" {
		return fmt.Errorf("Validate: missing model path: %w", pose.ErrInference)
	}
	if c.InputWidth <= 0 || c.InputHeight <= 0 {
		return fmt.Errorf("Validate: input size %dx%d: %w", c.InputWidth, c.InputHeight, pose.ErrInvalidImage)
	}
	if c.Backend == BackendONNX {
		if len(c.OutputShape) == 0 {
			return fmt.Errorf("Validate: onnx backend needs an output shape: %w", pose.ErrInference)
		}
		for _, d := range c.OutputShape {
			if d <= 0 {
				return fmt.Errorf("Validate: output shape %v has a non positive dimension: %w", c.OutputShape, pose.ErrInference)
			}
		}
	}
	return nil
}

//New loads the model described by cfg with the requested backend
func New(cfg Config, log logrus.FieldLogger) (pose.Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("New: model file '%s' is not available, got '%v': %w", cfg.ModelPath, err, pose.ErrInference)
	}

	var (
		e   pose.Engine
		err error
	)
	switch cfg.Backend {
	case BackendONNX:
		e, err = NewONNX(cfg)
	case BackendDNN:
		e, err = NewDNN(cfg)
	default:
		return nil, fmt.Errorf("New: unknown backend '%s': %w", cfg.Backend, pose.ErrInference)
	}
	if err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{"backend": cfg.Backend, "model": cfg.ModelPath}).Info("New: model loaded")
	return e, nil
}

//ToDense copies a flat row-major output into a matrix of rows of length cols.
//An empty output yields a nil matrix.
func ToDense(data []float32, cols int) (*mat.Dense, error) {
	if cols <= 0 {
		return nil, fmt.Errorf("ToDense: %d columns: %w", cols, pose.ErrMalformedOutput)
	}
	if len(data)%cols != 0 {
		return nil, fmt.Errorf("ToDense: %d values do not split into rows of %d: %w", len(data), cols, pose.ErrMalformedOutput)
	}
	if len(data) == 0 {
		return nil, nil
	}

	values := make([]float64, len(data))
	for i, v := range data {
		values[i] = float64(v)
	}
	return mat.NewDense(len(data)/cols, cols, values), nil
}
