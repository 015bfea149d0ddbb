// Copyright 2023 The Img2pdf Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package converter

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "image/gif" // to be able to open GIF files

	_ "golang.org/x/image/bmp" // to be able to open BMP files

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// ImagesToPdfPdfCPU converts images to PDF using pdfcpu.
//
// With the default import configuration every page gets the size of its image.
func ImagesToPdfPdfCPU(ctx context.Context, w io.Writer, images []string) error {
	rs := make([]io.Reader, 0, len(images))
	for _, fn := range images {
		if err := ctx.Err(); err != nil {
			return err
		}
		r, err := openForPdfCPU(fn)
		if err != nil {
			return err
		}
		rs = append(rs, r)
	}
	if err := api.ImportImages(nil, w, rs, nil, nil); err != nil {
		return fmt.Errorf("pdfcpu import %q: %w", images, err)
	}
	return nil
}

// openForPdfCPU reads the image, re-encoding formats pdfcpu cannot import (GIF, BMP) as PNG.
func openForPdfCPU(fn string) (io.Reader, error) {
	b, err := os.ReadFile(fn)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(fn)) {
	case ".gif", ".bmp":
	default:
		return bytes.NewReader(b), nil
	}
	img, _, err := image.Decode(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", fn, err)
	}
	var buf bytes.Buffer
	if err = png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("re-encode %s as png: %w", fn, err)
	}
	getLogger().Debug("re-encoded as png", "file", fn, "size", buf.Len())
	return &buf, nil
}
