// Copyright 2017, 2020 The Img2pdf Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package converter implements function for converting images to PDF
package converter

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/UNO-SOFT/filecache"
	config "github.com/stvp/go-toml-config"
)

var globalLogger atomic.Pointer[slog.Logger]

func init() { globalLogger.Store(slog.New(slog.NewTextHandler(io.Discard, nil))) }

// SetLogger replaces the package logger, returning the previous one.
// It is safe to call while conversions are running.
func SetLogger(lgr *slog.Logger) *slog.Logger {
	if lgr == nil {
		return globalLogger.Load()
	}
	return globalLogger.Swap(lgr)
}

func getLogger() *slog.Logger { return globalLogger.Load() }

func lookPath(fn string) string {
	path, err := exec.LookPath(fn)
	if err != nil {
		return ""
	}
	return path
}

// MaxGroupSize is the maximum number of images per PDF the front ends accept.
const MaxGroupSize = 50

var (
	// ConfEngine is the name of the image to PDF encoder (pdfcpu, direct or gm)
	ConfEngine = config.String("engine", EnginePdfCPU)

	// ConfGm is the path for GraphicsMagick
	ConfGm = config.String("gm", lookPath("gm"))

	// ConfChildTimeout is the time before the gm child gets killed (0: never)
	ConfChildTimeout = config.Duration("childTimeout", 0)

	// ConfGroupSize is the default number of images per PDF
	ConfGroupSize = config.Int("groupSize", 1)

	// ConfOutputDir is the default output directory (the current directory if empty)
	ConfOutputDir = config.String("outputDir", "")

	// ConfUseCache enables the encoded PDF cache
	ConfUseCache = config.Bool("cache", false)

	// ConfWorkdir is the working directory (will be os.TempDir() if empty)
	ConfWorkdir = config.String("workdir", "")

	// ConfListenAddr is a listen address for HTTP requests
	ConfListenAddr = config.String("listen", ":9500")

	// ConfRequestTimeout limits one HTTP conversion request
	ConfRequestTimeout = config.Duration("requestTimeout", 10*time.Minute)

	// ConfLogFile specifies the file to log - instead of command line.
	ConfLogFile = config.String("logfile", "")
)

// LoadConfig loads TOML config file
func LoadConfig(ctx context.Context, fn string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if fn != "" {
		if err := config.Parse(fn); err != nil {
			getLogger().Warn("Cannot open config file", "file", fn, "error", err)
		}
	}
	if *ConfEngine == EngineGm && *ConfGm == "" {
		getLogger().Warn("no gm found, falling back to " + EnginePdfCPU)
		*ConfEngine = EnginePdfCPU
	}
	if *ConfWorkdir != "" {
		_ = os.Setenv("TMPDIR", *ConfWorkdir)
		Workdir = *ConfWorkdir
	}
	if !*ConfUseCache {
		return nil
	}
	var err error
	cd := filepath.Join(Workdir, "img2pdf-filecache")
	_ = os.MkdirAll(cd, 0700)
	if Cache, err = filecache.Open(cd); err != nil {
		var tErr error
		if cd, tErr = os.MkdirTemp(Workdir, "img2pdf-filecache-*"); tErr != nil {
			return err
		} else if Cache, tErr = filecache.Open(cd); tErr != nil {
			return err
		}
	}
	getLogger().Debug("cache", "dir", cd)
	return nil
}

// Workdir is the main working directory
var Workdir = os.TempDir()

// Cache holds the already encoded groups, nil if caching is disabled.
var Cache *filecache.Cache

// LeaveTempFiles should be true only for debugging purposes (leaves temp files)
var LeaveTempFiles = false

// name of the event log in the resulting archive
const MessagesFn = "ZZZ-messages.txt"
