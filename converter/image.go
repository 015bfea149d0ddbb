// Copyright 2017 The Img2pdf Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package converter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
)

func command(ctx context.Context, prg string, args ...string) *exec.Cmd {
	if prg == "" {
		prg, args = args[0], args[1:]
	}
	return exec.CommandContext(ctx, prg, args...)
}

// ImagesToPdfGm converts images to PDF using GraphicsMagick
func ImagesToPdfGm(ctx context.Context, w io.Writer, images []string) error {
	if *ConfGm == "" {
		return errors.New("gm (GraphicsMagick) not found")
	}
	if *ConfChildTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *ConfChildTimeout)
		defer cancel()
	}
	args := make([]string, 0, len(images)+3)
	args = append(args, "convert", "-adjoin")
	for _, fn := range images {
		// the first frame only, of multi-frame GIF and TIFF
		args = append(args, fn+"[0]")
	}
	args = append(args, "pdf:-")

	// nosemgrep: go.lang.security.audit.dangerous-exec-command.dangerous-exec-command
	cmd := command(ctx, *ConfGm, args...)
	cmd.Stdout = w
	errout := bytes.NewBuffer(nil)
	cmd.Stderr = errout
	if err := cmd.Run(); err != nil {
		err = fmt.Errorf("%q: %w", cmd.Args, err)
		return fmt.Errorf("gm convert %q: %s: %w", images, errout.Bytes(), err)
	}
	if errout.Len() > 0 {
		getLogger().Warn("gm convert", "images", images, "error", errout.String())
	}
	return nil
}
