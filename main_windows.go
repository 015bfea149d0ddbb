//go:build windows

// Copyright 2017 The Img2pdf Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/kardianos/service"
	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/tgulacsi/img2pdf/converter"
)

// getListeners returns nil, as there is no socket activation on Windows.
func getListeners() []net.Listener { return nil }

func platformCommands() []*ffcli.Command {
	var name string
	fs := newFlagSet("service")
	fs.StringVar(&name, "name", "img2pdf", "service name")
	return []*ffcli.Command{{
		Name: "service", ShortHelp: "manage the Windows service",
		ShortUsage: "img2pdf service [-name=img2pdf] install|remove|run|start|stop",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			todo := "run"
			if len(args) != 0 {
				todo = args[0]
			}
			return doServiceWindows(todo, name)
		},
	}}
}

var _ = service.Interface((*program)(nil))

type program struct {
	service.Logger
	server *http.Server
}

func (p *program) Start(S service.Service) error {
	logger.Info("starting", "service", S.String())
	if p.Logger != nil {
		_ = p.Logger.Info("Starting service")
	}
	addr := listenAddr
	if addr == "" {
		addr = *converter.ConfListenAddr
	}
	p.server = newHTTPServer(addr, false)
	go func() {
		if err := p.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("ListenAndServe", "address", addr, "error", err)
			if p.Logger != nil {
				_ = p.Logger.Error(err.Error())
			}
		}
	}()
	return nil
}

func (p *program) Stop(S service.Service) error {
	logger.Info("stopping", "service", S.String())
	if p.Logger != nil {
		_ = p.Logger.Info("Stopping service")
	}
	if p.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return p.server.Shutdown(ctx)
}

func doServiceWindows(todo, short string) error {
	capShort := strings.ToUpper(short[:1]) + short[1:]
	name := capShort + " HTTP service"

	args := []string{"service", "-name=" + short, "run"}
	if configFile != "" {
		args = append([]string{"-config=" + configFile}, args...)
	}
	p := &program{}
	s, err := service.New(p, &service.Config{
		Name:             short,
		DisplayName:      name,
		Description:      capShort + " converts images to PDF through HTTP",
		Arguments:        args,
		WorkingDirectory: converter.Workdir,
	})
	if err != nil {
		return fmt.Errorf("start service %s: %w", name, err)
	}
	errs := make(chan error, 5)
	if p.Logger, err = s.Logger(errs); err != nil {
		return fmt.Errorf("get logger: %w", err)
	}
	go func() {
		for err := range errs {
			if err != nil {
				logger.Error("service", "error", err)
			}
		}
	}()

	switch todo {
	case "install":
		if err = s.Install(); err != nil {
			return fmt.Errorf("install: %w", err)
		}
		logger.Info("Service " + name + " installed.")
	case "remove":
		if err = s.Uninstall(); err != nil {
			return fmt.Errorf("remove: %w", err)
		}
		logger.Info("Service " + name + " removed.")
	case "run":
		logger.Info("running", "service", name)
		if err = s.Run(); err != nil {
			err = fmt.Errorf("run %s: %w", name, err)
			if p.Logger != nil {
				_ = p.Logger.Error(name + " failed: " + err.Error())
			}
			return err
		}
	case "start":
		if err = s.Start(); err != nil {
			return fmt.Errorf("start %s: %w", name, err)
		}
		logger.Info("Service " + name + " started.")
	case "stop":
		if err = s.Stop(); err != nil {
			return fmt.Errorf("stop %s: %w", name, err)
		}
		logger.Info("Service " + name + " stopped.")
	default:
		return fmt.Errorf("unknown service command %q (install, remove, run, start or stop)", todo)
	}
	return nil
}
