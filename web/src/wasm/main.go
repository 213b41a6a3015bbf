//go:build js && wasm

// Package main exposes the BMP decoder to JavaScript.
// This file contains only glue code; decoding lives in internal/codec/bmp.
package main

import (
	"encoding/json"
	"errors"
	"syscall/js"

	"github.com/rcarmo/go-bmp/internal/codec/bmp"
)

func bytesFromJS(v js.Value) []byte {
	data := make([]byte, v.Get("length").Int())
	js.CopyBytesToGo(data, v)
	return data
}

func errorValue(err error) js.Value {
	out := map[string]interface{}{"error": err.Error()}
	var de *bmp.DecodeError
	if errors.As(err, &de) {
		out["phase"] = de.Phase.String()
		out["error"] = de.Err.Error()
	}
	return js.ValueOf(out)
}

// jsDecodeBMP decodes a Uint8Array holding a BMP file and returns
// {width, height, pixels} with pixels as a Uint8ClampedArray of RGBA rows,
// or {error, phase} on failure.
func jsDecodeBMP(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorValue(errors.New("decodeBMP: missing data argument"))
	}

	grid, err := bmp.Parse(bytesFromJS(args[0]))
	if err != nil {
		return errorValue(err)
	}

	rgba := grid.RGBA()
	pixels := js.Global().Get("Uint8ClampedArray").New(len(rgba))
	js.CopyBytesToJS(pixels, rgba)

	return js.ValueOf(map[string]interface{}{
		"width":  grid.Width,
		"height": grid.Height,
		"pixels": pixels,
	})
}

// jsInspectBMP returns the parsed headers as a JSON string.
func jsInspectBMP(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorValue(errors.New("inspectBMP: missing data argument"))
	}

	desc, err := bmp.ParseHeader(bytesFromJS(args[0]))
	if err != nil {
		return errorValue(err)
	}
	out, err := json.Marshal(desc)
	if err != nil {
		return errorValue(err)
	}
	return string(out)
}

func main() {
	js.Global().Set("goBMP", js.ValueOf(map[string]interface{}{
		"decodeBMP":  js.FuncOf(jsDecodeBMP),
		"inspectBMP": js.FuncOf(jsInspectBMP),
	}))

	select {}
}
