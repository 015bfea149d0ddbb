// Copyright 2017 The Img2pdf Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package converter

import (
	"context"
	"fmt"
	"image"
	"io"
	"os"

	_ "image/gif"  // to be able to open GIF files
	_ "image/jpeg" // to be able to open JPEG files
	_ "image/png"  // to be able to open PNG files

	_ "golang.org/x/image/bmp"  // to be able to open BMP files
	_ "golang.org/x/image/tiff" // to be able to open TIFF files

	"bitbucket.org/zombiezen/gopdf/pdf"
)

// ImagesToPdfDirect converts images to PDF using gopdf, one page per image,
// each page exactly as large as the image (one point per pixel).
func ImagesToPdfDirect(ctx context.Context, w io.Writer, images []string) error {
	doc := pdf.New()
	for _, fn := range images {
		if err := ctx.Err(); err != nil {
			return err
		}
		img, err := decodeImage(fn)
		if err != nil {
			return err
		}
		ib := img.Bounds().Canon().Size()
		canvas := doc.NewPage(pdf.Unit(ib.X), pdf.Unit(ib.Y))
		canvas.DrawImage(img, pdf.Rectangle{
			Max: pdf.Point{X: pdf.Unit(ib.X), Y: pdf.Unit(ib.Y)},
		})
		if err = canvas.Close(); err != nil {
			return fmt.Errorf("page of %s: %w", fn, err)
		}
	}
	return doc.Encode(w)
}

func decodeImage(fn string) (image.Image, error) {
	fh, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	img, _, err := image.Decode(fh)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", fn, err)
	}
	return img, nil
}
