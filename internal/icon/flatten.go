// Package icon implements the PNG alpha-flattening transform used to
// prepare application icon sources. macOS renders halos around icons with
// transparent edges, so the transform composites every pixel against a
// vertical gradient sampled from the image's own background before the
// icon ladder is generated.
package icon

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/macbundler/internal/errors"
	"git.home.luguber.info/inful/macbundler/internal/workspace"
)

// FlattenFile reads a PNG, flattens its alpha channel against an
// edge-sampled background gradient, and writes the fully opaque result.
func FlattenFile(inputPath, outputPath string) error {
	in, err := os.Open(inputPath)
	if err != nil {
		return errors.FilesystemError("open icon source", err)
	}
	defer in.Close()

	img, err := png.Decode(in)
	if err != nil {
		return errors.Wrap(err, errors.CategoryFileSystem, errors.SeverityFatal, "decode icon source")
	}

	flat, err := Flatten(img)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), workspace.DirMode); err != nil {
		return errors.FilesystemError("create icon output directory", err)
	}
	out, err := os.Create(outputPath)
	if err != nil {
		return errors.FilesystemError("create icon output", err)
	}
	defer out.Close()

	if err := png.Encode(out, flat); err != nil {
		return errors.FilesystemError("encode icon output", err)
	}
	return nil
}

// Flatten composites an image against a vertical background gradient
// sampled from its top and bottom edges, producing a fully opaque copy.
// The input is not modified.
func Flatten(img image.Image) (*image.NRGBA, error) {
	src := toNRGBA(img)
	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return nil, errors.New(errors.CategoryIcon, errors.SeverityFatal, "empty icon image")
	}

	cx := width / 2
	top, err := findBackground(src, cx, 0, 1)
	if err != nil {
		return nil, err
	}
	bottom, err := findBackground(src, cx, height-1, -1)
	if err != nil {
		return nil, err
	}

	out := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		bg := gradientColor(top, bottom, y, height)
		for x := 0; x < width; x++ {
			px := src.NRGBAAt(bounds.Min.X+x, bounds.Min.Y+y)
			out.SetNRGBA(x, y, composite(px, bg))
		}
	}
	return out, nil
}

// composite blends a straight-alpha pixel over an opaque background color.
func composite(px, bg color.NRGBA) color.NRGBA {
	switch px.A {
	case 255:
		return color.NRGBA{R: px.R, G: px.G, B: px.B, A: 255}
	case 0:
		return color.NRGBA{R: bg.R, G: bg.G, B: bg.B, A: 255}
	}

	a := uint16(px.A)
	inv := 255 - a
	blend := func(fg, back uint8) uint8 {
		return uint8((uint16(fg)*a + uint16(back)*inv + 127) / 255)
	}
	return color.NRGBA{
		R: blend(px.R, bg.R),
		G: blend(px.G, bg.G),
		B: blend(px.B, bg.B),
		A: 255,
	}
}

// findBackground scans a vertical column from startY in the given direction
// for the first usable background pixel. Transparent pixels are skipped, as
// are near-white ones: foreground shapes are typically white and may
// overlap the sample column.
func findBackground(src *image.NRGBA, x, startY, step int) (color.NRGBA, error) {
	bounds := src.Bounds()
	for y := startY; y >= 0 && y < bounds.Dy(); y += step {
		px := src.NRGBAAt(bounds.Min.X+x, bounds.Min.Y+y)
		if px.A > 0 && !(px.R > 240 && px.G > 240 && px.B > 240) {
			return color.NRGBA{R: px.R, G: px.G, B: px.B, A: 255}, nil
		}
	}
	return color.NRGBA{}, errors.New(errors.CategoryIcon, errors.SeverityFatal,
		"could not find a suitable background color")
}

// gradientColor interpolates between the top and bottom background colors
// for a given row, rounding to nearest.
func gradientColor(top, bottom color.NRGBA, y, height int) color.NRGBA {
	if height <= 1 {
		return top
	}
	denom := uint32(height - 1)
	yy := uint32(y)
	inv := denom - yy

	lerp := func(a, b uint8) uint8 {
		v := uint32(a)*inv + uint32(b)*yy
		return uint8((v + denom/2) / denom)
	}
	return color.NRGBA{
		R: lerp(top.R, bottom.R),
		G: lerp(top.G, bottom.G),
		B: lerp(top.B, bottom.B),
		A: 255,
	}
}

// toNRGBA converts any image to straight-alpha RGBA8.
func toNRGBA(img image.Image) *image.NRGBA {
	if nrgba, ok := img.(*image.NRGBA); ok {
		return nrgba
	}
	bounds := img.Bounds()
	out := image.NewNRGBA(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			out.SetNRGBA(x, y, color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA))
		}
	}
	return out
}
