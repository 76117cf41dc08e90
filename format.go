package aerialmap

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/webp"
)

type ImageFormat uint8

const (
	FormatUnknown ImageFormat = iota
	FormatPNG
	FormatJPEG
	FormatWebp
)

var imageFormatStrings = map[ImageFormat]string{
	FormatUnknown: "unknown",
	FormatPNG:     "png",
	FormatJPEG:    "jpeg",
	FormatWebp:    "webp",
}

func (f ImageFormat) String() string {
	return imageFormatStrings[f]
}

func (f ImageFormat) MarshalJSON() ([]byte, error) {
	str, ok := imageFormatStrings[f]
	if !ok {
		str = imageFormatStrings[FormatUnknown]
	}
	return json.Marshal(str)
}

var (
	pngMagic  = []byte{0x89, 'P', 'N', 'G'}
	jpegMagic = []byte{0xff, 0xd8, 0xff}
	riffMagic = []byte("RIFF")
	webpMagic = []byte("WEBP")
)

// DetectImageFormat sniffs the payload's magic bytes. Tile servers are not
// trusted to set content types; the bytes are.
func DetectImageFormat(data []byte) ImageFormat {
	switch {
	case bytes.HasPrefix(data, pngMagic):
		return FormatPNG
	case bytes.HasPrefix(data, jpegMagic):
		return FormatJPEG
	case bytes.HasPrefix(data, riffMagic) && len(data) >= 12 && bytes.Equal(data[8:12], webpMagic):
		return FormatWebp
	default:
		return FormatUnknown
	}
}

// decodeTile decodes a fetched tile payload into an image.
func decodeTile(data []byte) (image.Image, ImageFormat, error) {
	format := DetectImageFormat(data)

	var (
		img image.Image
		err error
	)
	switch format {
	case FormatPNG:
		img, err = png.Decode(bytes.NewReader(data))
	case FormatJPEG:
		img, err = jpeg.Decode(bytes.NewReader(data))
	case FormatWebp:
		img, err = webp.Decode(bytes.NewReader(data))
	default:
		return nil, format, fmt.Errorf("tile payload is not a supported raster image")
	}
	if err != nil {
		return nil, format, fmt.Errorf("decoding %s tile: %w", format, err)
	}

	return img, format, nil
}
