package frame

// channelOffsets maps each source order to the byte offsets of its
// red, green and blue channels. Source alpha is never read.
var channelOffsets = map[ChannelOrder][3]int{
	BGRA: {2, 1, 0},
	ABGR: {3, 2, 1},
	ARGB: {1, 2, 3},
	RGBA: {0, 1, 2},
}

// Convert repacks buf into an RGBA image with alpha forced to 255.
// Row padding beyond 4*Width bytes is skipped; rows keep their order.
func Convert(buf Buffer) (*Image, error) {
	if err := buf.Validate(); err != nil {
		return nil, err
	}
	off := channelOffsets[buf.Order]
	w, h := buf.Width, buf.Height

	out := make([]byte, Len(w, h))
	o := 0
	for y := 0; y < h; y++ {
		row := buf.Pix[buf.Stride*y : buf.Stride*y+4*w]
		for x := 0; x < w; x++ {
			px := row[4*x : 4*x+4]
			out[o] = px[off[0]]
			out[o+1] = px[off[1]]
			out[o+2] = px[off[2]]
			out[o+3] = 255
			o += 4
		}
	}
	return &Image{Pix: out, Width: w, Height: h}, nil
}
