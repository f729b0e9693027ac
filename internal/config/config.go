package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "stagecraft"

type Window struct {
	Width  int32
	Height int32
	Title  string
	FPS    int32
}

type Project struct {
	Stages       string
	ClassDB      string
	Models       string
	WatchClassDB bool
}

type Render struct {
	ModelScale     float32
	AreaColor      [4]float32
	CubeColor      [4]float32
	Highlight      [3]float32
	FrustumCulling bool
}

type Config struct {
	Window   Window
	Project  Project
	Render   Render
	Decoders int
	LogLevel string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("window.width", 1600)
	v.SetDefault("window.height", 900)
	v.SetDefault("window.title", "stagecraft")
	v.SetDefault("window.fps", 60)

	v.SetDefault("project.stages", "./project/stages")
	v.SetDefault("project.classdb", "./project/classdb")
	v.SetDefault("project.models", "./project/models")
	v.SetDefault("project.watchClassDB", true)

	v.SetDefault("render.modelScale", 0.01)
	v.SetDefault("render.areaColor", []float64{0, 1, 0, 1})
	v.SetDefault("render.cubeColor", []float64{1, 0.5, 0, 1})
	v.SetDefault("render.highlight", []float64{1, 1, 0})
	v.SetDefault("render.frustumCulling", true)

	v.SetDefault("assets.decoders", 4)
	v.SetDefault("log.level", "info")
}

// Load reads stagecraft.json from configDir (if present) on top of the
// defaults. Environment variables prefixed STAGECRAFT_ override both.
func Load(configDir string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName(FileName)
	v.SetConfigType("json")
	v.AddConfigPath(configDir)
	v.SetEnvPrefix("STAGECRAFT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Window: Window{
			Width:  v.GetInt32("window.width"),
			Height: v.GetInt32("window.height"),
			Title:  v.GetString("window.title"),
			FPS:    v.GetInt32("window.fps"),
		},
		Project: Project{
			Stages:       v.GetString("project.stages"),
			ClassDB:      v.GetString("project.classdb"),
			Models:       v.GetString("project.models"),
			WatchClassDB: v.GetBool("project.watchClassDB"),
		},
		Decoders: v.GetInt("assets.decoders"),
		LogLevel: v.GetString("log.level"),
	}
	cfg.Render.ModelScale = float32(v.GetFloat64("render.modelScale"))
	cfg.Render.FrustumCulling = v.GetBool("render.frustumCulling")

	var err error
	if err = floats(v, "render.areaColor", cfg.Render.AreaColor[:]); err != nil {
		return nil, err
	}
	if err = floats(v, "render.cubeColor", cfg.Render.CubeColor[:]); err != nil {
		return nil, err
	}
	if err = floats(v, "render.highlight", cfg.Render.Highlight[:]); err != nil {
		return nil, err
	}

	if cfg.Render.ModelScale <= 0 {
		return nil, fmt.Errorf("render.modelScale must be positive, got %v", cfg.Render.ModelScale)
	}
	if cfg.Decoders < 1 {
		cfg.Decoders = 1
	}
	return cfg, nil
}

// floats copies a numeric list setting into dst, which fixes its length.
func floats(v *viper.Viper, key string, dst []float32) error {
	var raw []float64
	if err := v.UnmarshalKey(key, &raw); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if len(raw) != len(dst) {
		return fmt.Errorf("%s: want %d components, got %d", key, len(dst), len(raw))
	}
	for i, f := range raw {
		dst[i] = float32(f)
	}
	return nil
}
