package render

import "gonum.org/v1/gonum/stat"

// rescaled converts one stored sample into modality units, honoring signed
// pixel representation and the rescale slope/intercept.
func rescaled(img *Image, sample uint16) float64 {
	var value float64
	if img.SignedSamples {
		value = float64(int16(sample))
	} else {
		value = float64(sample)
	}
	return value*img.RescaleSlope + img.RescaleIntercept
}

// autoWindow estimates a window center and width from the sample
// distribution when the instance carries no VOI attributes. Center lands on
// the mean and the window spans two standard deviations either side.
func autoWindow(img *Image) (center, width float64) {
	if len(img.Samples) == 0 {
		return 0, 1
	}
	values := make([]float64, len(img.Samples))
	for i, sample := range img.Samples {
		values[i] = rescaled(img, sample)
	}
	mean := stat.Mean(values, nil)
	std := stat.StdDev(values, nil)
	width = 4 * std
	if width < 1 {
		width = 1
	}
	return mean, width
}

// RenderFrame window-levels img into a standalone frame. Images without VOI
// attributes get an auto window first. Reconstructed planes render through
// here; surface frames come from Engine.Display.
func RenderFrame(img *Image) *Frame {
	if img == nil || img.Width <= 0 || img.Height <= 0 {
		return nil
	}
	prepared := *img
	if prepared.WindowWidth <= 0 {
		prepared.WindowCenter, prepared.WindowWidth = autoWindow(&prepared)
	}
	frame := &Frame{Width: prepared.Width, Height: prepared.Height, Gray: make([]uint8, prepared.Width*prepared.Height)}
	n := len(prepared.Samples)
	if n > len(frame.Gray) {
		n = len(frame.Gray)
	}
	windowLevel(&prepared, frame.Gray[:n])
	return frame
}

// windowLevel maps stored samples to 8-bit display values using the DICOM
// linear VOI function. MONOCHROME1 output is inverted.
func windowLevel(img *Image, dst []uint8) {
	center := img.WindowCenter
	width := img.WindowWidth
	if width < 1 {
		width = 1
	}
	lower := center - 0.5 - (width-1)/2
	upper := center - 0.5 + (width-1)/2
	invert := img.Photometric == Monochrome1

	for i, sample := range img.Samples {
		if i >= len(dst) {
			break
		}
		value := rescaled(img, sample)
		var out float64
		switch {
		case value <= lower:
			out = 0
		case value > upper:
			out = 255
		default:
			out = ((value-(center-0.5))/(width-1) + 0.5) * 255
		}
		if invert {
			out = 255 - out
		}
		dst[i] = uint8(out + 0.5)
	}
}
