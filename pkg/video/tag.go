package video

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"

	"github.com/chenBenjamin97/pose-overlay/pkg/pose"
	"github.com/chenBenjamin97/pose-overlay/pkg/utils"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"gocv.io/x/gocv"
)

//DefaultCodec is the fourcc annotated videos are written with when 'video.codec' is not set
const DefaultCodec = "MJPG"

//FrameKeypoints is one line of the keypoints file: the primary subject of a frame, null when nobody was found
type FrameKeypoints struct {
	Frame     int             `json:"frame"`
	Keypoints []pose.Keypoint `json:"keypoints"`
}

//Stats summarises an annotation run
type Stats struct {
	Frames    int //frames read from the source
	Annotated int //frames with at least one subject
	Skipped   int //frames that could not be processed and were written unchanged
}

//Tag annotates a video from the 'source' directory of the configuration file. The annotated video is saved in the 'ready'
//directory and the primary subject keypoints of every frame in the 'keypoints' directory.
//srcVideoName should include file's extension ('.mp4', etc.)
func Tag(p *pose.Pipeline, srcVideoName string, log logrus.FieldLogger) (Stats, error) {
	base := utils.BaseName(srcVideoName)
	srcVideoPath := path.Join(viper.GetString("directory.source"), srcVideoName)
	outputVideoPath := path.Join(viper.GetString("directory.ready"), base+utils.AnnotatedVideoExt)
	keypointsPath := path.Join(viper.GetString("directory.keypoints"), base+utils.KeypointsExt)

	codec := viper.GetString("video.codec")
	if codec == "" {
		codec = DefaultCodec
	}

	stats, err := Annotate(p, srcVideoPath, outputVideoPath, keypointsPath, codec, log)
	if err != nil {
		log.Errorf("Tag: Error tagging video file '%v', got '%v'", srcVideoPath, err)
		return stats, err
	}

	log.WithFields(logrus.Fields{
		"video":     srcVideoName,
		"frames":    stats.Frames,
		"annotated": stats.Annotated,
		"skipped":   stats.Skipped,
	}).Info("Tag: done")
	return stats, nil
}

//Annotate runs the pipeline on every frame of srcVideoPath, writes the annotated frames to outputVideoPath and
//one FrameKeypoints line per frame to keypointsPath.
//Frames that cannot be processed are written unchanged; an engine failure stops the run since every later frame would fail too.
func Annotate(p *pose.Pipeline, srcVideoPath, outputVideoPath, keypointsPath, codec string, log logrus.FieldLogger) (Stats, error) {
	var stats Stats

	capture, err := gocv.VideoCaptureFile(srcVideoPath)
	if err != nil {
		return stats, fmt.Errorf("Annotate: could not open '%s', got '%v'", srcVideoPath, err)
	}
	defer capture.Close()

	width, height := int(capture.Get(gocv.VideoCaptureFrameWidth)), int(capture.Get(gocv.VideoCaptureFrameHeight))
	videoWriter, err := gocv.VideoWriterFile(outputVideoPath, codec, capture.Get(gocv.VideoCaptureFPS), width, height, true)
	if err != nil {
		return stats, fmt.Errorf("Annotate: could not create '%s', got '%v'", outputVideoPath, err)
	}
	defer videoWriter.Close()
	if !videoWriter.IsOpened() {
		return stats, fmt.Errorf("Annotate: could not open a '%s' writer for '%s'", codec, outputVideoPath)
	}

	keypointsFile, err := os.Create(keypointsPath)
	if err != nil {
		return stats, fmt.Errorf("Annotate: could not create '%s', got '%v'", keypointsPath, err)
	}
	defer keypointsFile.Close()

	keypointsWriter := bufio.NewWriter(keypointsFile)
	encoder := json.NewEncoder(keypointsWriter)

	frameMat := gocv.NewMat()
	defer frameMat.Close()

	for capture.Read(&frameMat) {
		if frameMat.Empty() {
			continue
		}
		frameNum := stats.Frames
		stats.Frames++

		res, err := p.ProcessFrame(&frameMat)
		if err != nil {
			if errors.Is(err, pose.ErrInference) {
				keypointsWriter.Flush()
				return stats, fmt.Errorf("Annotate: frame %d: %w", frameNum, err)
			}
			log.Warnf("Annotate: Could not process frame number %v of '%v', got '%v'. Writing it unchanged.", frameNum, srcVideoPath, err)
			stats.Skipped++
		} else if len(res.Subjects) > 0 {
			stats.Annotated++
		}

		if err := encoder.Encode(FrameKeypoints{Frame: frameNum, Keypoints: res.Primary}); err != nil {
			return stats, fmt.Errorf("Annotate: writing keypoints of frame %d, got '%v'", frameNum, err)
		}
		if err := videoWriter.Write(frameMat); err != nil {
			return stats, fmt.Errorf("Annotate: writing frame %d, got '%v'", frameNum, err)
		}
	}

	if err := keypointsWriter.Flush(); err != nil {
		return stats, fmt.Errorf("Annotate: flushing '%s', got '%v'", keypointsPath, err)
	}
	return stats, nil
}
