package qrtoken

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"github.com/makiuchi-d/gozxing"
	zxqr "github.com/makiuchi-d/gozxing/qrcode"
	"github.com/skip2/go-qrcode"
)

// ErrNoToken means a frame held no readable token. Scanners treat it as
// "keep looking", never as a fatal error.
var ErrNoToken = errors.New("no token detected")

// Options controls how a token is rendered.
type Options struct {
	Size       int
	Foreground color.Color
	Background color.Color
	Level      qrcode.RecoveryLevel
}

// DefaultOptions renders 400px indigo-on-white codes.
func DefaultOptions() Options {
	return Options{
		Size:       400,
		Foreground: color.RGBA{R: 0x1e, G: 0x1b, B: 0x4b, A: 0xff},
		Background: color.White,
		Level:      qrcode.Medium,
	}
}

func build(payload string, opts Options) (*qrcode.QRCode, error) {
	if payload == "" {
		return nil, errors.New("qrtoken: empty payload")
	}
	q, err := qrcode.New(payload, opts.Level)
	if err != nil {
		return nil, fmt.Errorf("qrtoken: encode: %w", err)
	}
	if opts.Foreground != nil {
		q.ForegroundColor = opts.Foreground
	}
	if opts.Background != nil {
		q.BackgroundColor = opts.Background
	}
	return q, nil
}

// Encode renders payload as PNG bytes.
func Encode(payload string, opts Options) ([]byte, error) {
	q, err := build(payload, opts)
	if err != nil {
		return nil, err
	}
	png, err := q.PNG(opts.Size)
	if err != nil {
		return nil, fmt.Errorf("qrtoken: png: %w", err)
	}
	return png, nil
}

// Image renders payload as an in-memory image.
func Image(payload string, opts Options) (image.Image, error) {
	q, err := build(payload, opts)
	if err != nil {
		return nil, err
	}
	return q.Image(opts.Size), nil
}

// DataURL renders payload as a data:image/png;base64 URL for direct display.
func DataURL(payload string, opts Options) (string, error) {
	png, err := Encode(payload, opts)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}

// Decode reads the token out of a captured frame.
func Decode(img image.Image) (string, error) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoToken, err)
	}
	res, err := zxqr.NewQRCodeReader().Decode(bmp, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoToken, err)
	}
	return res.GetText(), nil
}

// DecodeReader decodes a PNG or JPEG frame.
func DecodeReader(r io.Reader) (string, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoToken, err)
	}
	return Decode(img)
}

// DecodeBytes is DecodeReader over a byte slice.
func DecodeBytes(b []byte) (string, error) {
	return DecodeReader(bytes.NewReader(b))
}
