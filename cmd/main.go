package main

import (
	"fmt"

	"github.com/chenBenjamin97/pose-overlay/pkg/api"
	"github.com/chenBenjamin97/pose-overlay/pkg/engine"
	"github.com/chenBenjamin97/pose-overlay/pkg/pose"
	"github.com/chenBenjamin97/pose-overlay/pkg/utils"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

func setDefaults() {
	poseDefaults, engineDefaults := pose.DefaultConfig(), engine.DefaultConfig()

	viper.SetDefault("log.level", "info")
	viper.SetDefault("http.port", "8080")
	viper.SetDefault("directory.source", "./data/source")
	viper.SetDefault("directory.ready", "./data/ready")
	viper.SetDefault("directory.keypoints", "./data/keypoints")
	viper.SetDefault("video.codec", "MJPG")

	viper.SetDefault("pipeline.model_width", poseDefaults.ModelWidth)
	viper.SetDefault("pipeline.model_height", poseDefaults.ModelHeight)
	viper.SetDefault("pipeline.scale_up", poseDefaults.ScaleUp)
	viper.SetDefault("pipeline.conf_threshold", poseDefaults.ConfThreshold)
	viper.SetDefault("pipeline.keypoint_threshold", poseDefaults.KeypointThreshold)
	viper.SetDefault("pipeline.normalization", poseDefaults.Normalization)
	viper.SetDefault("pipeline.draw_boxes", poseDefaults.DrawBoxes)

	viper.SetDefault("engine.backend", engineDefaults.Backend)
	viper.SetDefault("engine.model_path", engineDefaults.ModelPath)
	viper.SetDefault("engine.input_name", engineDefaults.InputName)
	viper.SetDefault("engine.output_name", engineDefaults.OutputName)
	viper.SetDefault("engine.output_shape", engineDefaults.OutputShape)
}

//loadConfig decodes the 'pipeline' and 'engine' subtrees on top of the package defaults.
//A subtree from the config file replaces the registered defaults as a whole, so keys it leaves out must keep the default values.
func loadConfig() (pose.Config, engine.Config, error) {
	poseCfg := pose.DefaultConfig()
	if err := viper.UnmarshalKey("pipeline", &poseCfg); err != nil {
		return pose.Config{}, engine.Config{}, fmt.Errorf("loadConfig: Could not parse 'pipeline' configuration, got '%v'", err)
	}

	engineCfg := engine.DefaultConfig()
	if _, ok := viper.GetStringMap("engine")["output_shape"]; ok {
		engineCfg.OutputShape = nil //a shorter shape must not keep the default's trailing dimensions
	}
	if err := viper.UnmarshalKey("engine", &engineCfg); err != nil {
		return pose.Config{}, engine.Config{}, fmt.Errorf("loadConfig: Could not parse 'engine' configuration, got '%v'", err)
	}
	engineCfg.InputWidth, engineCfg.InputHeight = poseCfg.ModelWidth, poseCfg.ModelHeight

	return poseCfg, engineCfg, nil
}

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	setDefaults()
	viper.AddConfigPath(".")
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Fatalf("Error: Could not read config file, got '%v'", err)
		}
		log.Warn("No config file found, running with defaults")
	}

	if level, err := logrus.ParseLevel(viper.GetString("log.level")); err != nil {
		log.Warnf("Unknown log level '%s', keeping '%v'", viper.GetString("log.level"), log.GetLevel())
	} else {
		log.SetLevel(level)
	}

	//create missing directories from config file
	if err := utils.EnsureDirs(viper.GetString("directory.source"), viper.GetString("directory.ready"), viper.GetString("directory.keypoints")); err != nil {
		log.Fatalf("Error: %v", err)
	}

	poseCfg, engineCfg, err := loadConfig()
	if err != nil {
		log.Fatalf("Error: %v", err)
	}

	e, err := engine.New(engineCfg, log)
	if err != nil {
		log.Fatalf("Error: Could not load model, got '%v'", err)
	}

	p, err := pose.NewPipeline(poseCfg, e, log)
	if err != nil {
		e.Close()
		log.Fatalf("Error: Could not build pipeline, got '%v'", err)
	}
	defer p.Close()

	r := api.SetRouter(p, log)
	if err := r.Run(":" + viper.GetString("http.port")); err != nil {
		log.Fatalf("Error: Got '%v'", err)
	}
}
