//go:build !windows

// Copyright 2017 The Img2pdf Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package main

import (
	"net"

	"github.com/coreos/go-systemd/v22/activation"
	"github.com/peterbourgon/ff/v3/ffcli"
)

// platformCommands returns the subcommands specific to this OS.
func platformCommands() []*ffcli.Command { return nil }

// getListeners returns the systemd socket activated listeners, if any.
func getListeners() []net.Listener {
	listeners, err := activation.Listeners()
	if err != nil {
		logger.Warn("socket activation", "error", err)
		return nil
	}
	res := listeners[:0]
	for _, l := range listeners {
		if l != nil {
			res = append(res, l)
		}
	}
	return res
}
