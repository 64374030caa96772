package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/qmuntal/gltf"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/meshkit/gltfexport/exporter"
	"github.com/meshkit/gltfexport/gltfutil"
	"github.com/meshkit/gltfexport/logger"
)

func defaultOutputFile(input string) string {
	ext := filepath.Ext(input)
	return input[:len(input)-len(ext)] + ".glb"
}

// settingsFile mirrors exporter.Settings for the YAML config.
type settingsFile struct {
	Normals      *bool `yaml:"normals"`
	Tangents     *bool `yaml:"tangents"`
	TexCoords    *bool `yaml:"texcoords"`
	Colors       *bool `yaml:"colors"`
	Morph        *bool `yaml:"morph"`
	MorphNormal  *bool `yaml:"morph_normal"`
	MorphTangent *bool `yaml:"morph_tangent"`
	Skins        *bool `yaml:"skins"`
	LooseEdges   *bool `yaml:"loose_edges"`
	LoosePoints  *bool `yaml:"loose_points"`
	Materials    *bool `yaml:"materials"`
	YUp          *bool `yaml:"yup"`
}

func loadSettings(path string) (*exporter.Settings, error) {
	cfg := exporter.DefaultSettings()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f settingsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	apply := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}
	apply(&cfg.Normals, f.Normals)
	apply(&cfg.Tangents, f.Tangents)
	apply(&cfg.TexCoords, f.TexCoords)
	apply(&cfg.Colors, f.Colors)
	apply(&cfg.Morph, f.Morph)
	apply(&cfg.MorphNormal, f.MorphNormal)
	apply(&cfg.MorphTangent, f.MorphTangent)
	apply(&cfg.Skins, f.Skins)
	apply(&cfg.LooseEdges, f.LooseEdges)
	apply(&cfg.LoosePoints, f.LoosePoints)
	apply(&cfg.Materials, f.Materials)
	apply(&cfg.YUp, f.YUp)
	return cfg, nil
}

func main() {
	output := flag.String("o", "", "output file (.gltf or .glb)")
	conf := flag.String("conf", "", "exporter settings yaml")
	logLevel := flag.String("log", "info", "log level (debug|info|warn|error)")
	logFile := flag.String("logfile", "", "also log to this file (rotated)")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Println("usage: scene2gltf [options] mesh.yaml")
		flag.PrintDefaults()
		os.Exit(1)
	}
	input := flag.Arg(0)
	if *output == "" {
		*output = defaultOutputFile(input)
	}

	var fileCfg logger.FileConfig
	if *logFile != "" {
		fileCfg = logger.DefaultFileConfig(*logFile)
	}
	log := logger.New(*logLevel, fileCfg)
	defer log.Sync()

	cfg, err := loadSettings(*conf)
	if err != nil {
		log.Fatal("loading settings", zap.Error(err))
	}
	cfg.Logger = log

	m, arm, err := loadMeshFile(input)
	if err != nil {
		log.Fatal("loading mesh", zap.String("file", input), zap.Error(err))
	}

	res, err := exporter.ExtractPrimitives(m, arm, cfg)
	if err != nil {
		log.Fatal("extraction failed", zap.Error(err))
	}
	if res.NeedNeutralJoint {
		log.Warn("unweighted vertices were bound to a neutral joint; add it to the skin",
			zap.String("mesh", m.Name))
	}

	doc, err := gltfutil.ToDocument(m.Name, res)
	if err != nil {
		log.Fatal("building document", zap.Error(err))
	}

	if strings.EqualFold(filepath.Ext(*output), ".glb") {
		err = gltf.SaveBinary(doc, *output)
	} else {
		err = gltf.Save(doc, *output)
	}
	if err != nil {
		log.Fatal("writing output", zap.String("file", *output), zap.Error(err))
	}
	log.Info("saved", zap.String("file", *output), zap.Int("primitives", len(res.Primitives)))
}
