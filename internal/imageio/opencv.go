package imageio

import (
	"fmt"
	"image"
	"io"

	"gocv.io/x/gocv"
)

// OpenCVCodec reads and writes through OpenCV.
type OpenCVCodec struct{}

func (OpenCVCodec) Name() string { return CodecOpenCV }

func (OpenCVCodec) Load(path string) (image.Image, error) {
	mat := gocv.IMRead(path, gocv.IMReadColor)
	defer mat.Close()
	if mat.Empty() {
		return nil, fmt.Errorf("opencv could not read %s", path)
	}
	return mat.ToImage()
}

func (OpenCVCodec) Decode(data []byte) (image.Image, error) {
	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return nil, err
	}
	defer mat.Close()
	if mat.Empty() {
		return nil, fmt.Errorf("opencv could not decode %d bytes", len(data))
	}
	return mat.ToImage()
}

func (OpenCVCodec) Save(path string, img image.Image) error {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return err
	}
	defer mat.Close()

	if !gocv.IMWrite(path, mat) {
		return fmt.Errorf("opencv could not write %s", path)
	}
	return nil
}

func (OpenCVCodec) EncodePNG(w io.Writer, img image.Image) error {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return err
	}
	defer mat.Close()

	buf, err := gocv.IMEncode(gocv.PNGFileExt, mat)
	if err != nil {
		return err
	}
	defer buf.Close()

	_, err = w.Write(buf.GetBytes())
	return err
}

func (OpenCVCodec) Fit(img image.Image, maxSide int) image.Image {
	b := img.Bounds()
	w, h, scaled := fitSize(b.Dx(), b.Dy(), maxSide)
	if !scaled {
		return img
	}

	src, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return img
	}
	defer src.Close()

	dst := gocv.NewMat()
	defer dst.Close()
	gocv.Resize(src, &dst, image.Point{X: w, Y: h}, 0, 0, gocv.InterpolationArea)

	out, err := dst.ToImage()
	if err != nil {
		return img
	}
	return out
}
