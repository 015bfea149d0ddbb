// Copyright 2017, 2022 The Img2pdf Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Command img2pdf converts images to PDF files, one per image or
// several images per PDF.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/UNO-SOFT/zlog/v2"
	"github.com/kardianos/osext"
	"github.com/peterbourgon/ff/v3/ffcli"
	"github.com/tgulacsi/go/globalctx"
	"golang.org/x/sync/errgroup"

	"github.com/tgulacsi/img2pdf/converter"
)

var (
	verbose zlog.VerboseVar
	logger  = zlog.NewLogger(zlog.MaybeConsoleHandler(&verbose, os.Stderr)).SLog()
)

func main() {
	if err := Main(); err != nil {
		logger.Error("Main", "error", err)
		os.Exit(1)
	}
}

var configFile, listenAddr string

func newFlagSet(name string) *flag.FlagSet { return flag.NewFlagSet(name, flag.ContinueOnError) }

func Main() error {
	var (
		leaveTempFiles bool
		logFile        string
	)

	fs := newFlagSet("img2pdf")
	fs.Var(&verbose, "v", "verbose logging")
	fs.BoolVar(&leaveTempFiles, "x", false, "leave tempfiles?")
	fs.StringVar(&configFile, "config", "", "config file (TOML)")
	fs.StringVar(&logFile, "logfile", "", "logfile")
	appCmd := &ffcli.Command{
		Name:       "img2pdf",
		ShortUsage: "img2pdf [flags] <subcommand>",
		ShortHelp:  "img2pdf converts images (JPEG, PNG, BMP, TIFF, GIF) to PDF",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return flag.ErrHelp
		},
	}

	appCmd.Subcommands = append(appCmd.Subcommands, newConvertCmd())

	var savereq bool
	fs = newFlagSet("serve")
	fs.BoolVar(&savereq, "savereq", false, "save requests")
	serveCmd := ffcli.Command{Name: "serve", ShortHelp: "serve HTTP",
		ShortUsage: "img2pdf serve [flags] [addr.to.listen.on:port]", FlagSet: fs,
		Exec: func(ctx context.Context, args []string) error {
			if len(args) != 0 {
				listenAddr = args[0]
			}
			listeners := getListeners()
			if listenAddr == "" && len(listeners) == 0 {
				listenAddr = *converter.ConfListenAddr
			}
			logger.Info("serve", "listeners", len(listeners), "listenAddr", listenAddr)

			grp, grpCtx := errgroup.WithContext(ctx)
			srvs := make(chan *http.Server, len(listeners)+1)
			if listenAddr != "" {
				s := newHTTPServer(listenAddr, savereq)
				srvs <- s
				grp.Go(func() error {
					logger.Info("listening", "address", listenAddr)
					return s.ListenAndServe()
				})
			}
			for _, l := range listeners {
				s := newHTTPServer("", savereq)
				srvs <- s
				grp.Go(func() error {
					logger.Info("listening", "listener", l.Addr().String())
					return s.Serve(l)
				})
			}
			close(srvs)
			<-grpCtx.Done()
			for _, l := range listeners {
				l.Close()
			}
			for s := range srvs {
				ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
				_ = s.Shutdown(ctx)
				cancel()
				_ = s.Close()
			}
			if err := grp.Wait(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		},
	}
	appCmd.Subcommands = append(appCmd.Subcommands, &serveCmd)
	appCmd.Subcommands = append(appCmd.Subcommands, platformCommands()...)

	if err := appCmd.Parse(os.Args[1:]); err != nil {
		return err
	}

	closeLogfile, err := logToFile(logFile)
	if err != nil {
		return err
	}
	converter.SetLogger(logger.With("pkg", "converter"))
	logger.Debug("config", "leave_tempfiles?", leaveTempFiles)
	converter.LeaveTempFiles = leaveTempFiles
	if configFile == "" {
		if self, execErr := osext.Executable(); execErr != nil {
			logger.Info("Cannot determine executable file name", "error", execErr)
		} else {
			ini := filepath.Join(filepath.Dir(self), "img2pdf.ini")
			f, iniErr := os.Open(ini)
			if iniErr != nil {
				logger.Debug("Cannot open config", "file", ini, "error", iniErr)
			} else {
				_ = f.Close()
				configFile = ini
			}
		}
	}
	ctx, cancel := globalctx.Wrap(context.Background())
	defer cancel()
	logger.Debug("Loading config", "file", configFile)
	if err = converter.LoadConfig(ctx, configFile); err != nil {
		logger.Error("Parsing config", "file", configFile, "error", err)
		return err
	}
	if closeLogfile == nil {
		if closeLogfile, err = logToFile(*converter.ConfLogFile); err != nil {
			logger.Error("logToFile", "error", err)
		}
	}
	logger.Debug("parameters",
		"engine", *converter.ConfEngine,
		"gm", *converter.ConfGm,
		"groupSize", *converter.ConfGroupSize,
		"outputDir", *converter.ConfOutputDir,
		"cache", *converter.ConfUseCache,
		"workdir", converter.Workdir,
		"listen", *converter.ConfListenAddr,
		"logfile", *converter.ConfLogFile,
	)

	if closeLogfile != nil {
		defer func() {
			logger.Info("close log file", "error", closeLogfile())
		}()
	}

	return appCmd.Run(ctx)
}

func logToFile(fn string) (func() error, error) {
	if fn == "" {
		return nil, nil
	}
	fh, err := os.OpenFile(fn, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0640)
	if err != nil {
		logger.Error("open log file", "file", fn, "error", err)
		return nil, fmt.Errorf("%s: %w", fn, err)
	}
	logger.Info("Will log to", "file", fh.Name())
	logger = zlog.NewLogger(zlog.MaybeConsoleHandler(&verbose, io.MultiWriter(os.Stderr, fh))).SLog()
	converter.SetLogger(logger.With("pkg", "converter"))
	logger.Info("Logging to", "file", fh.Name())
	return fh.Close, nil
}
