// Copyright 2017 The Img2pdf Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/renameio/v2"
	"github.com/peterbourgon/ff/v3/ffcli"
	"golang.org/x/sync/errgroup"

	"github.com/tgulacsi/img2pdf/converter"
)

type convertFlags struct {
	outDir, engine, zipOut string
	groupSize              int
	cache                  bool
}

func newConvertCmd() *ffcli.Command {
	var cf convertFlags
	fs := newFlagSet("convert")
	fs.IntVar(&cf.groupSize, "n", 0, "images per PDF (1: one PDF per image); default from config (groupSize)")
	fs.StringVar(&cf.outDir, "o", "", "output directory; default from config (outputDir) or the current directory")
	fs.StringVar(&cf.engine, "engine", "", "encoder engine ("+strings.Join(converter.Engines(), ", ")+"); default from config")
	fs.StringVar(&cf.zipOut, "zip", "", "also write the PDFs into this zip file (- for stdout)")
	fs.BoolVar(&cf.cache, "cache", false, "use the encoded PDF cache")
	return &ffcli.Command{Name: "convert", ShortHelp: "convert images (or directories of images) to PDF",
		ShortUsage: "img2pdf convert [flags] <image or directory>...", FlagSet: fs,
		Exec: func(ctx context.Context, args []string) error {
			return convertImages(ctx, os.Stdout, os.Stderr, cf, args)
		},
	}
}

// convertImages runs one conversion, rendering the events to errOut
// and the result to out.
func convertImages(ctx context.Context, out, errOut io.Writer, cf convertFlags, args []string) error {
	if len(args) == 0 {
		return errors.New("at least one image or directory is required")
	}
	if cf.groupSize == 0 {
		cf.groupSize = *converter.ConfGroupSize
	}
	if cf.groupSize < 1 || cf.groupSize > converter.MaxGroupSize {
		return fmt.Errorf("images per PDF must be between 1 and %d, got %d", converter.MaxGroupSize, cf.groupSize)
	}
	if cf.outDir == "" {
		if cf.outDir = *converter.ConfOutputDir; cf.outDir == "" {
			var err error
			if cf.outDir, err = os.Getwd(); err != nil {
				return err
			}
		}
	}
	if cf.engine == "" {
		cf.engine = *converter.ConfEngine
	}
	cache := converter.Cache
	if !cf.cache && !*converter.ConfUseCache {
		cache = nil
	} else if cache == nil {
		logger.Warn("cache requested, but not configured (set cache=true in the config)")
	}

	images, err := converter.ExpandPaths(args)
	if err != nil {
		return err
	}
	w, err := converter.NewWorker(cf.engine, cache)
	if err != nil {
		return err
	}
	run, err := w.Start(ctx, converter.Job{Images: images, OutputDir: cf.outDir, GroupSize: cf.groupSize})
	if err != nil {
		return err
	}
	logger.Info("convert", "run", run.ID, "images", len(images), "groupSize", cf.groupSize, "outputDir", cf.outDir, "engine", cf.engine)

	var grp errgroup.Group
	grp.Go(func() error { return renderEvents(errOut, run.Events()) })
	res := run.Wait()
	if err := grp.Wait(); err != nil {
		logger.Warn("render events", "error", err)
	}
	if !res.OK {
		fmt.Fprintf(out, "FAILED: %s\n", res.Message)
		return res.Err
	}
	if cf.zipOut == "-" {
		fmt.Fprintf(errOut, "%s (%d written, %d failed)\n", res.Message, len(res.Outputs), len(res.Errors))
	} else {
		fmt.Fprintf(out, "%s (%d written, %d failed)\n", res.Message, len(res.Outputs), len(res.Errors))
		for _, fn := range res.Outputs {
			fmt.Fprintln(out, fn)
		}
	}
	if cf.zipOut != "" && len(res.Outputs) != 0 {
		return zipOutputs(ctx, cf.zipOut, out, res.Outputs)
	}
	return nil
}

// renderEvents writes the events one per line, until the channel is closed.
func renderEvents(w io.Writer, events <-chan converter.Event) error {
	var err error
	for e := range events {
		if err != nil {
			continue // drain
		}
		switch e := e.(type) {
		case converter.Progress:
			_, err = fmt.Fprintf(w, "[%3d%%]\n", e.Percent)
		case converter.Message:
			_, err = fmt.Fprintf(w, "%s\n", e.Text)
		}
	}
	return err
}

func zipOutputs(ctx context.Context, zipfn string, stdout io.Writer, filenames []string) error {
	if zipfn == "-" {
		return converter.ZipFiles(ctx, stdout, filenames...)
	}
	fh, err := renameio.NewPendingFile(zipfn, renameio.WithPermissions(0644))
	if err != nil {
		return err
	}
	defer func() { _ = fh.Cleanup() }()
	if err = converter.ZipFiles(ctx, fh, filenames...); err != nil {
		return fmt.Errorf("zip %s: %w", zipfn, err)
	}
	return fh.CloseAtomicallyReplace()
}
