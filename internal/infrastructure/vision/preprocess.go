package vision

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
)

const (
	resizeShortSide = 256
	cropSize        = 224
)

// Нормализация ImageNet
var (
	channelMean = [3]float32{0.485, 0.456, 0.406}
	channelStd  = [3]float32{0.229, 0.224, 0.225}
)

// DecodeImage декодирует JPEG или PNG
func DecodeImage(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	return img, format, nil
}

// Preprocess готовит тензор 1x3x224x224 (NCHW): короткая сторона до 256, центральный кроп 224, нормализация ImageNet.
func Preprocess(img image.Image) []float32 {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	short := w
	if h < short {
		short = h
	}
	scale := float64(resizeShortSide) / float64(short)
	nw := maxInt(cropSize, int(float64(w)*scale+0.5))
	nh := maxInt(cropSize, int(float64(h)*scale+0.5))

	resized := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(resized, resized.Bounds(), img, b, draw.Src, nil)

	x0 := (nw - cropSize) / 2
	y0 := (nh - cropSize) / 2
	plane := cropSize * cropSize
	out := make([]float32, 3*plane)
	for y := 0; y < cropSize; y++ {
		for x := 0; x < cropSize; x++ {
			c := resized.RGBAAt(x0+x, y0+y)
			idx := y*cropSize + x
			out[idx] = (float32(c.R)/255 - channelMean[0]) / channelStd[0]
			out[plane+idx] = (float32(c.G)/255 - channelMean[1]) / channelStd[1]
			out[2*plane+idx] = (float32(c.B)/255 - channelMean[2]) / channelStd[2]
		}
	}
	return out
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
