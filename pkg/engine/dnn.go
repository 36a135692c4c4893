package engine

import (
	"fmt"
	"sync"

	"github.com/chenBenjamin97/pose-overlay/pkg/pose"
	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/mat"
)

//DNN runs the model through OpenCV's dnn module
type DNN struct {
	mu         sync.Mutex
	net        gocv.Net
	outputName string
}

//NewDNN loads any model format OpenCV can read (onnx, pb, ...)
func NewDNN(cfg Config) (*DNN, error) {
	net := gocv.ReadNet(cfg.ModelPath, "")
	if net.Empty() {
		return nil, fmt.Errorf("NewDNN: Could not load model '%s': %w", cfg.ModelPath, pose.ErrInference)
	}
	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	return &DNN{net: net, outputName: cfg.OutputName}, nil
}

//Infer forwards blob and flattens the output to one row per candidate, row width taken from the last output dimension
func (e *DNN) Infer(blob gocv.Mat) (*mat.Dense, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.net.SetInput(blob, "")
	prob := e.net.Forward(e.outputName)
	defer prob.Close()

	if prob.Empty() {
		return nil, fmt.Errorf("Infer: empty output from '%s': %w", e.outputName, pose.ErrInference)
	}

	s := prob.Size()
	data, err := prob.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("Infer: output is not float32, got '%v': %w", err, pose.ErrMalformedOutput)
	}

	return ToDense(data, s[len(s)-1])
}

func (e *DNN) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.net.Close()
}
