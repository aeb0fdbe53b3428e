package main

import (
	"errors"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/nci/terrain/utils"
)

func TestNewPipelineChecksConfigFirst(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "missing.asc")

	tests := map[string]func(*utils.PipelineConfig){
		"algorithm": func(cfg *utils.PipelineConfig) { cfg.SlopeAlgorithm = "sobel" },
		"scheme":    func(cfg *utils.PipelineConfig) { cfg.ColorizeSlope = "rainbow" },
		"format":    func(cfg *utils.PipelineConfig) { cfg.Format = "jpeg" },
	}
	for name, modify := range tests {
		cfg := utils.NewPipelineConfig()
		cfg.DTM = missing
		cfg.Format = "aaigrid"
		modify(cfg)

		_, err := newPipeline(cfg, nil)
		var cerr *utils.ConfigError
		if !errors.As(err, &cerr) {
			t.Errorf("%s: expecting a ConfigError, actual %v", name, err)
		}
	}

	cfg := utils.NewPipelineConfig()
	cfg.DTM = missing
	cfg.Format = "aaigrid"
	_, err := newPipeline(cfg, nil)
	var ierr *utils.InputError
	if !errors.As(err, &ierr) || !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expecting an InputError, actual %v", err)
	}

	cfg.DTM = filepath.Join(dir, "dtm.asc")
	if err := ioutil.WriteFile(cfg.DTM, []byte("ncols 1\nnrows 1\nxllcorner 0\nyllcorner 0\ncellsize 1\n5\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if p, err := newPipeline(cfg, nil); err != nil || p == nil {
		t.Errorf("expecting a pipeline, actual %v", err)
	}
}
