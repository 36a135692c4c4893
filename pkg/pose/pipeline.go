package pose

import (
	"errors"
	"fmt"
	"image"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/mat"
)

//Engine runs the pose network on a normalized 1x3xHxW blob and returns one row per candidate, laid out as
//x1, y1, x2, y2, objectness, class followed by NumKeypoints (x, y, confidence) triples.
//A nil matrix means the network produced no rows.
type Engine interface {
	Infer(blob gocv.Mat) (*mat.Dense, error)
	Close() error
}

//Config holds every tunable of the pipeline
type Config struct {
	ModelWidth        int     `mapstructure:"model_width"`
	ModelHeight       int     `mapstructure:"model_height"`
	ScaleUp           bool    `mapstructure:"scale_up"`
	ConfThreshold     float64 `mapstructure:"conf_threshold"`
	KeypointThreshold float64 `mapstructure:"keypoint_threshold"`
	Normalization     string  `mapstructure:"normalization"`
	DrawBoxes         bool    `mapstructure:"draw_boxes"`
}

//DefaultConfig returns the settings of the reference pose model
func DefaultConfig() Config {
	return Config{
		ModelWidth:        DefaultModelSize,
		ModelHeight:       DefaultModelSize,
		ScaleUp:           true,
		ConfThreshold:     0.1,
		KeypointThreshold: DefaultKeypointThreshold,
		Normalization:     "unit",
		DrawBoxes:         false,
	}
}

//Result is what one processed frame yields. Primary is the keypoint set of the first subject, nil when nothing was detected.
type Result struct {
	Subjects  []Subject
	Primary   []Keypoint
	Transform LetterboxTransform
}

//Pipeline turns frames into skeleton overlays: letterbox, normalize, infer, filter, map back, draw
type Pipeline struct {
	cfg    Config
	norm   Normalization
	engine Engine
	topo   Topology
	log    logrus.FieldLogger
}

//NewPipeline validates cfg and binds it to an engine. The engine is owned by the pipeline from now on.
func NewPipeline(cfg Config, engine Engine, log logrus.FieldLogger) (*Pipeline, error) {
	if engine == nil {
		return nil, fmt.Errorf("NewPipeline: no engine: %w", ErrInference)
	}
	if cfg.ModelWidth <= 0 || cfg.ModelHeight <= 0 {
		return nil, fmt.Errorf("NewPipeline: model size %dx%d: %w", cfg.ModelWidth, cfg.ModelHeight, ErrInvalidImage)
	}
	norm, err := NormalizationByName(cfg.Normalization)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	topo := COCOTopology()
	if err := topo.Validate(); err != nil {
		return nil, err
	}

	return &Pipeline{cfg: cfg, norm: norm, engine: engine, topo: topo, log: log}, nil
}

//Config returns the configuration the pipeline runs with
func (p *Pipeline) Config() Config {
	return p.cfg
}

//Close releases the engine
func (p *Pipeline) Close() error {
	return p.engine.Close()
}

//ProcessFrame runs the whole pipeline on frame and draws the skeletons of every subject onto it.
//frame is only drawn on once all coordinates are in its own frame; when nothing is detected it is left untouched.
//Errors wrapping ErrInvalidImage mean the frame cannot be processed, errors wrapping ErrInference mean the engine failed.
func (p *Pipeline) ProcessFrame(frame *gocv.Mat) (Result, error) {
	padded, transform, err := Letterbox(*frame, LetterboxOptions{
		Width:   p.cfg.ModelWidth,
		Height:  p.cfg.ModelHeight,
		ScaleUp: p.cfg.ScaleUp,
		Fill:    LetterboxFill,
	})
	defer padded.Close()
	if err != nil {
		return Result{}, fmt.Errorf("ProcessFrame: %w", err)
	}

	blob := Blob(padded, p.norm)
	defer blob.Close()

	raw, err := p.engine.Infer(blob)
	if err != nil {
		if !errors.Is(err, ErrInference) {
			err = fmt.Errorf("%w: %v", ErrInference, err)
		}
		return Result{}, fmt.Errorf("ProcessFrame: %w", err)
	}

	dets, err := FilterDetections(raw, p.cfg.ConfThreshold, NumKeypoints)
	if err != nil {
		return Result{}, fmt.Errorf("ProcessFrame: %w", err)
	}
	if len(dets) == 0 {
		p.log.Debug("ProcessFrame: no subject above threshold")
		return Result{Subjects: []Subject{}, Transform: transform}, nil
	}

	subjects, err := MapDetections(dets, transform, image.Pt(frame.Cols(), frame.Rows()))
	if err != nil {
		return Result{}, fmt.Errorf("ProcessFrame: %w", err)
	}

	for _, s := range subjects {
		if p.cfg.DrawBoxes {
			DrawSubjectBox(frame, s, p.topo.LimbColors[0])
		}
		DrawSkeleton(frame, s.Keypoints, p.topo, p.cfg.KeypointThreshold)
	}

	p.log.WithFields(logrus.Fields{
		"subjects": len(subjects),
		"ratio":    transform.Ratio,
	}).Debug("ProcessFrame: frame annotated")

	return Result{Subjects: subjects, Primary: subjects[0].Keypoints, Transform: transform}, nil
}
