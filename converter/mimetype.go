// Copyright 2019 The Img2pdf Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package converter

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// DetectImageType returns the MIME type of the file's content.
// It falls back to http.DetectContentType when mimetype does not know it.
func DetectImageType(fn string) (string, error) {
	fh, err := os.Open(fn)
	if err != nil {
		return "", err
	}
	defer fh.Close()
	mt, err := mimetype.DetectReader(fh)
	if err != nil {
		return "", fmt.Errorf("detect %s: %w", fn, err)
	}
	if typ := mt.String(); typ != "application/octet-stream" {
		if i := strings.IndexByte(typ, ';'); i >= 0 {
			typ = typ[:i]
		}
		return typ, nil
	}
	if _, err = fh.Seek(0, 0); err != nil {
		return "", err
	}
	var a [512]byte
	n, _ := fh.Read(a[:])
	return http.DetectContentType(a[:n]), nil
}

// CheckImages returns an error for the first file whose content is not an image.
func CheckImages(images []string) error {
	for _, fn := range images {
		typ, err := DetectImageType(fn)
		if err != nil {
			return err
		}
		if !strings.HasPrefix(typ, "image/") {
			return fmt.Errorf("%s: not an image (%s)", fn, typ)
		}
	}
	return nil
}
