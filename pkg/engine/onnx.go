package engine

import (
	"fmt"
	"sync"

	"github.com/chenBenjamin97/pose-overlay/pkg/pose"
	ort "github.com/yalue/onnxruntime_go"
	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/mat"
)

var (
	ortOnce    sync.Once
	ortInitErr error
)

//initEnvironment loads the onnxruntime library once per process, later calls reuse the first outcome
func initEnvironment(libraryPath string) error {
	ortOnce.Do(func() {
		if libraryPath != "" {
			ort.SetSharedLibraryPath(libraryPath)
		}
		ortInitErr = ort.InitializeEnvironment()
	})
	return ortInitErr
}

//ONNX runs the model through onnxruntime with fixed input and output tensors
type ONNX struct {
	mu      sync.Mutex
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
	cols    int
}

//NewONNX creates a session bound to preallocated tensors
func NewONNX(cfg Config) (*ONNX, error) {
	if err := initEnvironment(cfg.LibraryPath); err != nil {
		return nil, fmt.Errorf("NewONNX: could not initialize onnxruntime, got '%v': %w", err, pose.ErrInference)
	}

	inputShape := ort.NewShape(1, 3, int64(cfg.InputHeight), int64(cfg.InputWidth))
	input, err := ort.NewTensor(inputShape, make([]float32, inputShape.FlattenedSize()))
	if err != nil {
		return nil, fmt.Errorf("NewONNX: input tensor, got '%v': %w", err, pose.ErrInference)
	}

	output, err := ort.NewEmptyTensor[float32](ort.NewShape(cfg.OutputShape...))
	if err != nil {
		input.Destroy()
		return nil, fmt.Errorf("NewONNX: output tensor, got '%v': %w", err, pose.ErrInference)
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, fmt.Errorf("NewONNX: session options, got '%v': %w", err, pose.ErrInference)
	}
	defer options.Destroy()

	if cfg.NumThreads > 0 {
		options.SetIntraOpNumThreads(cfg.NumThreads)
		options.SetInterOpNumThreads(1)
	}

	session, err := ort.NewAdvancedSession(cfg.ModelPath,
		[]string{cfg.InputName}, []string{cfg.OutputName},
		[]ort.ArbitraryTensor{input}, []ort.ArbitraryTensor{output}, options)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, fmt.Errorf("NewONNX: could not load '%s', got '%v': %w", cfg.ModelPath, err, pose.ErrInference)
	}

	return &ONNX{
		session: session,
		input:   input,
		output:  output,
		cols:    int(cfg.OutputShape[len(cfg.OutputShape)-1]),
	}, nil
}

//Infer copies blob into the input tensor, runs the session and returns a copy of the output
func (e *ONNX) Infer(blob gocv.Mat) (*mat.Dense, error) {
	data, err := blob.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("Infer: blob is not float32, got '%v': %w", err, pose.ErrInference)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	dst := e.input.GetData()
	if len(data) != len(dst) {
		return nil, fmt.Errorf("Infer: blob has %d values, model expects %d: %w", len(data), len(dst), pose.ErrInference)
	}
	copy(dst, data)

	if err := e.session.Run(); err != nil {
		return nil, fmt.Errorf("Infer: got '%v': %w", err, pose.ErrInference)
	}

	return ToDense(e.output.GetData(), e.cols)
}

func (e *ONNX) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	err := e.session.Destroy()
	e.input.Destroy()
	e.output.Destroy()
	return err
}
