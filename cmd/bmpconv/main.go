// Command bmpconv converts BMP files to PNG and dumps their headers.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"

	"github.com/rcarmo/go-bmp/internal/codec/bmp"
	"github.com/rcarmo/go-bmp/internal/imaging"
	"github.com/rcarmo/go-bmp/internal/logging"
)

type options struct {
	in            string
	out           string
	scale         int
	info          bool
	noColorimetry bool
	logLevel      string
}

func main() {
	opts, err := parseArgs(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		os.Exit(2)
	}

	logging.Setup(opts.logLevel, "text", os.Stderr)

	if err := convert(opts, os.Stdout); err != nil {
		logging.Error("%v", err)
		os.Exit(1)
	}
}

func parseArgs(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("bmpconv", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.in, "in", "", "input BMP file (required)")
	fs.StringVar(&opts.out, "out", "", "output PNG file")
	fs.IntVar(&opts.scale, "scale", 1, "divide both dimensions by this factor")
	fs.BoolVar(&opts.info, "info", false, "print the parsed headers as JSON")
	fs.BoolVar(&opts.noColorimetry, "no-colorimetry", false, "ignore v4/v5 calibration data")
	fs.StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	switch {
	case opts.in == "":
		err := errors.New("-in is required")
		fmt.Fprintln(stderr, err)
		return opts, err
	case opts.out == "" && !opts.info:
		err := errors.New("nothing to do: pass -out and/or -info")
		fmt.Fprintln(stderr, err)
		return opts, err
	case opts.scale < 1:
		err := fmt.Errorf("-scale must be >= 1, got %d", opts.scale)
		fmt.Fprintln(stderr, err)
		return opts, err
	}
	return opts, nil
}

func convert(opts options, stdout io.Writer) error {
	data, err := os.ReadFile(opts.in)
	if err != nil {
		return err
	}

	decOpts := bmp.DefaultOptions()
	decOpts.ApplyColorimetry = !opts.noColorimetry
	dec := bmp.NewDecoder(decOpts)

	if opts.info {
		desc, err := dec.ParseHeader(data)
		if err != nil {
			return fmt.Errorf("%s: %w", opts.in, err)
		}
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(desc); err != nil {
			return err
		}
	}

	if opts.out == "" {
		return nil
	}

	grid, err := dec.Parse(data)
	if err != nil {
		return fmt.Errorf("%s: %w", opts.in, err)
	}

	var img image.Image = grid.Image()
	if opts.scale > 1 {
		img = imaging.Downscale(img, opts.scale)
	}

	f, err := os.Create(opts.out)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	logging.Info("wrote %s (%dx%d)", opts.out, img.Bounds().Dx(), img.Bounds().Dy())
	return nil
}
